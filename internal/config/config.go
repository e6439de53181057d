// Package config loads ifdyarc settings from a YAML file.
//
// The file is located by, in order: an explicit path (the --config flag),
// the IFDYARC_CONFIG environment variable, then
// $XDG_CONFIG_HOME/ifdyarc/config.yaml. An explicit file must exist; the
// default location is optional and its absence yields the defaults.
// Values present in the file override the defaults field by field.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "IFDYARC_CONFIG"

// Config is the ifdyarc configuration.
type Config struct {
	// PassphraseEnv is the environment variable read for the passphrase.
	// Default: IFDYARC_PASS
	PassphraseEnv string `yaml:"passphrase_env"`

	// UserSaltFile is the per-user fallback salt file. A leading "~/" is
	// expanded to the home directory.
	// Default: ~/.saltzaes.txt
	UserSaltFile string `yaml:"user_salt_file"`

	// LogLevel is a logrus level name.
	// Default: warning
	LogLevel string `yaml:"log_level"`

	// CompressionLevel is the DEFLATE level for archived files, -2..9.
	// Default: 6
	CompressionLevel int `yaml:"compression_level"`

	// Index configures the embedded search index.
	Index IndexConfig `yaml:"index"`
}

// IndexConfig configures the search index.
type IndexConfig struct {
	// Enabled builds an index when creating archives.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Compression is the segment compression: zstd, lz4 or none.
	// Default: zstd
	Compression string `yaml:"compression"`

	// MaxSegmentDocs splits the index into segments; 0 keeps one segment.
	MaxSegmentDocs int `yaml:"max_segment_docs"`

	// ResultLimit caps search results; 0 or less returns every match.
	// Default: 10
	ResultLimit int `yaml:"result_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PassphraseEnv:    "IFDYARC_PASS",
		UserSaltFile:     "~/.saltzaes.txt",
		LogLevel:         "warning",
		CompressionLevel: 6,
		Index: IndexConfig{
			Enabled:     true,
			Compression: "zstd",
			ResultLimit: 10,
		},
	}
}

// Load reads the configuration file selected by path, IFDYARC_CONFIG or
// the default location, applied over Default.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		explicit = false
		path = defaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// defaultPath returns $XDG_CONFIG_HOME/ifdyarc/config.yaml, or "" when no
// configuration directory is known.
func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ifdyarc", "config.yaml")
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.PassphraseEnv == "" {
		return errors.New("passphrase_env must not be empty")
	}
	if c.CompressionLevel < -2 || c.CompressionLevel > 9 {
		return fmt.Errorf("compression_level %d out of range -2..9", c.CompressionLevel)
	}
	switch c.Index.Compression {
	case "zstd", "lz4", "none":
	default:
		return fmt.Errorf("unknown index.compression %q", c.Index.Compression)
	}
	if c.Index.MaxSegmentDocs < 0 {
		return fmt.Errorf("index.max_segment_docs %d must not be negative", c.Index.MaxSegmentDocs)
	}
	switch strings.ToLower(c.LogLevel) {
	case "panic", "fatal", "error", "warn", "warning", "info", "debug", "trace":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// SaltFile returns UserSaltFile with "~/" expanded.
func (c *Config) SaltFile() string {
	if rest, ok := strings.CutPrefix(c.UserSaltFile, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return c.UserSaltFile
}
