// Package config holds the defaults and the optional YAML config file
// for the command line tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultStoreFile is the store consulted when no --file is given.
	DefaultStoreFile = "2sure.dat.gz"

	// DefaultHash matches the digest attribute historical surefiles
	// carry, so old and new snapshots stay comparable.
	DefaultHash = "sha1"
)

// Config is what the YAML config file can set. Flags override it.
type Config struct {
	// Hash selects the digest algorithm: sha1, sha256 or xxh3.
	Hash string `yaml:"hash"`
	// Jobs bounds the hashing worker pool; 0 means one per CPU.
	Jobs int `yaml:"jobs"`
	// Cache is the path of the SQLite digest cache. Empty disables it.
	Cache string `yaml:"cache"`
	// Compress gzips store files whose name leaves the choice open.
	Compress bool `yaml:"compression"`
	// Progress toggles the live progress line on stderr.
	Progress bool `yaml:"progress"`
}

func Default() *Config {
	return &Config{
		Hash:     DefaultHash,
		Jobs:     0,
		Compress: true,
		Progress: true,
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".gosure.yaml")
	}
	return ""
}

// Load reads the YAML file at path over cfg. Environment references
// like ${HOME} in values are expanded. A missing file is only an error
// when explicit is set.
func Load(path string, cfg *Config, explicit bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Hash {
	case "sha1", "sha256", "xxh3":
	default:
		return fmt.Errorf("unknown hash algorithm %q (want sha1, sha256 or xxh3)", c.Hash)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	return nil
}
