package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	DefaultListen            = "localhost:4242"
	DefaultMinimumFreeGB     = 1
	DefaultGCIntervalMinutes = 10
	DefaultLogLevel          = "info"
)

type Config struct {
	Paths             []string `yaml:"paths"`
	MinimumFreeGB     int      `yaml:"minimumFreeGB"`
	Listen            string   `yaml:"listen"`
	Administrator     string   `yaml:"administrator"`
	SystemIdentity    string   `yaml:"systemIdentity"`
	GCIntervalMinutes int      `yaml:"gcIntervalMinutes"`
	LogLevel          string   `yaml:"logLevel"`
}

// Default returns a configuration that stores data in ./data.
func Default() Config {
	c := Config{Paths: []string{"./data"}}
	c.applyDefaults()
	return c
}

// Load reads a YAML file and fills unset fields with defaults. A missing
// file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && allowMissing {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	return c, c.Validate()
}

func (c *Config) applyDefaults() {
	if len(c.Paths) == 0 {
		c.Paths = []string{"./data"}
	}
	if c.MinimumFreeGB == 0 {
		c.MinimumFreeGB = DefaultMinimumFreeGB
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.GCIntervalMinutes == 0 {
		c.GCIntervalMinutes = DefaultGCIntervalMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c Config) Validate() error {
	if len(c.Paths) == 0 || c.Paths[0] == "" {
		return errors.New("config: paths must not be empty")
	}
	if c.MinimumFreeGB < 0 {
		return fmt.Errorf("config: minimumFreeGB must not be negative, got %d", c.MinimumFreeGB)
	}
	if c.GCIntervalMinutes < 0 {
		return fmt.Errorf("config: gcIntervalMinutes must not be negative, got %d", c.GCIntervalMinutes)
	}
	if _, err := c.AdministratorIdentity(); err != nil {
		return err
	}
	if _, err := c.SystemIdentityValue(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AdministratorIdentity is the identity that initializes a fresh registry.
// It is the zero identity when unset.
func (c Config) AdministratorIdentity() (types.Identity, error) {
	return optionalIdentity("administrator", c.Administrator)
}

// SystemIdentityValue is the configured system identity, zero when unset.
func (c Config) SystemIdentityValue() (types.Identity, error) {
	return optionalIdentity("systemIdentity", c.SystemIdentity)
}

func (c Config) GCInterval() time.Duration {
	return time.Duration(c.GCIntervalMinutes) * time.Minute
}

// Logger builds a logrus logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return log
}

func optionalIdentity(field, value string) (types.Identity, error) {
	if value == "" {
		return types.Identity{}, nil
	}
	id, err := types.ParseIdentity(value)
	if err != nil {
		return types.Identity{}, fmt.Errorf("config: %s: %w", field, err)
	}
	return id, nil
}
