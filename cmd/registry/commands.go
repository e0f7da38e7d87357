package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/i5heu/ouroboros-registry/apiServer"
	"github.com/i5heu/ouroboros-registry/internal/digest"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	workerpool "github.com/i5heu/ouroboros-registry/pkg/workerPool"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ou, conf, err := openRegistry(true)
			if err != nil {
				return err
			}
			defer ou.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if listen == "" {
				listen = conf.Listen
			}
			server := apiServer.New(ou, apiServer.WithLogger(ou.Logger()))
			return server.ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides the config")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var (
		locator  string
		title    string
		hashFlag string
		file     string
		algo     string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a document (administrator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := caller()
			if err != nil {
				return err
			}
			parsedTitle, err := types.ParseTitle(title)
			if err != nil {
				return err
			}

			var contentHash types.Hash
			switch {
			case hashFlag != "" && file != "":
				return errors.New("use either --hash or --file")
			case hashFlag != "":
				contentHash, err = types.ParseHash(hashFlag)
			case file != "":
				var a digest.Algorithm
				if a, err = digest.ParseAlgorithm(algo); err == nil {
					contentHash, err = digest.File(file, a)
				}
			default:
				return errors.New("one of --hash or --file is required")
			}
			if err != nil {
				return err
			}

			ou, _, err := openRegistry(false)
			if err != nil {
				return err
			}
			defer ou.Close()

			id, err := ou.RegisterDocument(types.Call{Caller: who}, locator, parsedTitle, contentHash)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "contentHash": contentHash.String()})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered document %d (%s)\n", id, contentHash)
			return err
		},
	}

	cmd.Flags().StringVar(&locator, "locator", "", "Document locator")
	cmd.Flags().StringVar(&title, "title", "", "Document title, at most 32 bytes or a 0x prefixed bytes32")
	cmd.Flags().StringVar(&hashFlag, "hash", "", "Content hash (0x followed by 64 hex digits)")
	cmd.Flags().StringVar(&file, "file", "", "Compute the content hash from this file")
	cmd.Flags().StringVar(&algo, "algo", string(digest.SHA256), "Hash algorithm for --file (sha256 or blake3)")
	cobra.CheckErr(cmd.MarkFlagRequired("locator"))
	return cmd
}

func newFindCmd() *cobra.Command {
	var (
		locator string
		title   string
		id      uint64
		hash    string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Look up a document by locator, title, id or content hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			ou, _, err := openRegistry(false)
			if err != nil {
				return err
			}
			defer ou.Close()

			var (
				doc   types.Document
				found bool
			)
			flags := cmd.Flags()
			switch {
			case flags.Changed("locator"):
				doc, found, err = ou.LookupByLocator(locator)
			case flags.Changed("title"):
				var t types.Title
				if t, err = types.ParseTitle(title); err == nil {
					doc, found, err = ou.LookupByTitle(t)
				}
			case flags.Changed("id"):
				doc, found, err = ou.LookupByID(id)
			case flags.Changed("hash"):
				var h types.Hash
				if h, err = types.ParseHash(hash); err == nil {
					doc, found, err = ou.LookupByHash(h)
				}
			default:
				return errors.New("one of --locator, --title, --id or --hash is required")
			}
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc, found)
		},
	}

	cmd.Flags().StringVar(&locator, "locator", "", "Document locator")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().Uint64Var(&id, "id", 0, "Document id")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash")
	cmd.MarkFlagsMutuallyExclusive("locator", "title", "id", "hash")
	return cmd
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect or transfer administration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <identity>",
		Short: "Report whether an identity is the administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := types.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			ou, _, err := openRegistry(false)
			if err != nil {
				return err
			}
			defer ou.Close()

			isAdmin := ou.IsAdministrator(id)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"identity": id.String(), "isAdministrator": isAdmin})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(isAdmin))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "transfer <identity>",
		Short: "Hand administration to another identity (administrator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := caller()
			if err != nil {
				return err
			}
			newID, err := types.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			ou, _, err := openRegistry(false)
			if err != nil {
				return err
			}
			defer ou.Close()

			applied, err := ou.TransferAdministration(types.Call{Caller: who}, newID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case jsonOutput:
				return printJSON(out, map[string]any{"requested": true, "applied": applied})
			case applied:
				_, err = fmt.Fprintf(out, "administrator is now %s\n", newID)
			default:
				_, err = fmt.Fprintln(out, "transfer to the system identity ignored")
			}
			return err
		},
	})

	return cmd
}

func newHashCmd() *cobra.Command {
	var (
		algo    string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content hash of one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := digest.ParseAlgorithm(algo)
			if err != nil {
				return err
			}

			wp := workerpool.NewWorkerPool(workerpool.Config{WorkerCount: workers})
			defer wp.Close()

			results, err := digest.Files(wp, args, a)
			if err != nil {
				return err
			}

			type fileHash struct {
				File        string `json:"file"`
				Algorithm   string `json:"algorithm"`
				ContentHash string `json:"contentHash,omitempty"`
				Error       string `json:"error,omitempty"`
			}
			var (
				out    []fileHash
				failed int
			)
			for _, r := range results {
				entry := fileHash{File: r.Path, Algorithm: string(a)}
				if r.Err != nil {
					failed++
					entry.Error = r.Err.Error()
				} else {
					entry.ContentHash = r.Hash.String()
				}
				out = append(out, entry)
			}

			if jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				for _, entry := range out {
					if entry.Error != "" {
						fmt.Fprintf(os.Stderr, "%s: %s\n", entry.File, entry.Error)
						continue
					}
					if len(out) == 1 {
						fmt.Fprintln(cmd.OutOrStdout(), entry.ContentHash)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", entry.ContentHash, entry.File)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be hashed", failed, len(out))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&algo, "algo", string(digest.SHA256), "Hash algorithm (sha256 or blake3)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent hashing workers, 0 picks a default")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.xz>",
		Short: "Write all documents to an xz compressed export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ou, _, err := openRegistry(false)
			if err != nil {
				return err
			}
			defer ou.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			n, err := ou.Export(cmd.Context(), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"file": args[0], "documents": n})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d documents to %s\n", n, args[0])
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "registry %s (%s, %s)\n", version, commit, buildDate)
			return err
		},
	}
}
