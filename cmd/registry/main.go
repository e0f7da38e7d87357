package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	ouroboros "github.com/i5heu/ouroboros-registry"
	"github.com/i5heu/ouroboros-registry/internal/config"
	"github.com/i5heu/ouroboros-registry/pkg/registry"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath string
	dataPath   string
	callerFlag string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !jsonOutput || printJSON(os.Stdout, map[string]string{"error": err.Error()}) != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "registry",
		Short: "Access controlled document registry",
		Long: `registry keeps a ledger of documents identified by locator, title,
id and content hash. Only the administrator may register documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "registry.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Data directory, overrides paths[0] of the config")
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", "", "Identity issuing the call (0x followed by 40 hex digits)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(
		newServeCmd(),
		newRegisterCmd(),
		newFindCmd(),
		newAdminCmd(),
		newHashCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func loadConfig() (config.Config, error) {
	conf, err := config.Load(configPath, true)
	if err != nil {
		return config.Config{}, err
	}
	if dataPath != "" {
		conf.Paths = []string{dataPath}
	}
	if callerFlag != "" && conf.Administrator == "" {
		conf.Administrator = callerFlag
	}
	return conf, conf.Validate()
}

// openRegistry opens the ledger of the configured data directory. The
// configured administrator, else --as, initializes an empty ledger; without
// either an empty ledger is left untouched. Periodic garbage collection only
// runs when serving.
func openRegistry(serving bool) (*ouroboros.OuroborosRegistry, config.Config, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, conf, err
	}
	if err := os.MkdirAll(conf.Paths[0], 0o755); err != nil {
		return nil, conf, fmt.Errorf("create data directory: %w", err)
	}

	initializer, err := conf.AdministratorIdentity()
	if err != nil {
		return nil, conf, err
	}
	system, err := conf.SystemIdentityValue()
	if err != nil {
		return nil, conf, err
	}

	log := conf.Logger()
	ouConf := ouroboros.Config{
		Paths:         conf.Paths,
		MinimumFreeGB: conf.MinimumFreeGB,
		Initializer:   initializer,
		System:        system,
		Logger:        log,
	}
	if serving {
		ouConf.GarbageCollectionInterval = conf.GCInterval()
	} else if log.GetLevel() < logrus.DebugLevel {
		// one-shot commands only report warnings
		log.SetLevel(logrus.WarnLevel)
	}

	ou, err := ouroboros.New(ouConf)
	if errors.Is(err, registry.ErrNoInitializer) {
		return nil, conf, fmt.Errorf("%w: pass --as or set administrator in %s", err, configPath)
	}
	if err != nil {
		return nil, conf, err
	}
	return ou, conf, nil
}

func caller() (types.Identity, error) {
	if callerFlag == "" {
		return types.Identity{}, errors.New("--as is required for this command")
	}
	return types.ParseIdentity(callerFlag)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printDocument(w io.Writer, doc types.Document, found bool) error {
	if jsonOutput {
		var created int64
		if !doc.CreatedAt.IsZero() {
			created = doc.CreatedAt.Unix()
		}
		return printJSON(w, map[string]any{
			"found":       found,
			"id":          doc.ID,
			"locator":     doc.Locator,
			"title":       doc.Title.String(),
			"createdAt":   created,
			"author":      doc.Author.String(),
			"contentHash": doc.ContentHash.String(),
		})
	}
	if !found {
		_, err := fmt.Fprintln(w, "not found")
		return err
	}
	_, err := fmt.Fprintf(w, "id:          %d\nlocator:     %s\ntitle:       %s\ncreated:     %s\nauthor:      %s\ncontentHash: %s\n",
		doc.ID, doc.Locator, doc.Title, doc.CreatedAt.Format("2006-01-02 15:04:05 MST"), doc.Author, doc.ContentHash)
	return err
}
