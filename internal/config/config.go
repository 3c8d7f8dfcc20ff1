// Package config loads the optional config.yaml that tunes where the
// vault lives and how it behaves. Every field has a working default so
// a missing file is never an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file inside the data directory.
const FileName = "config.yaml"

// DefaultDirName is the data directory created under the user's home
// when no explicit data_dir is configured.
const DefaultDirName = ".securevault"

// Config holds the tunable parameters of the application.
type Config struct {
	// DataDir is where the database, key file and config live.
	DataDir string `yaml:"data_dir"`

	// BcryptCost is the work factor for master password hashing.
	BcryptCost int `yaml:"bcrypt_cost"`

	// AuditViewLimit is the default number of audit entries shown by views.
	AuditViewLimit int `yaml:"audit_view_limit"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		DataDir:        defaultDataDir(),
		BcryptCost:     12,
		AuditViewLimit: 50,
	}
}

// Load reads config.yaml from dir and fills unset fields with defaults.
// If dir is empty the default data directory is used. A missing file
// returns the defaults; a malformed file is an error.
func Load(dir string) (Config, error) {
	cfg := Default()
	if dir != "" {
		cfg.DataDir = dir
	}

	path := filepath.Join(cfg.DataDir, FileName)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", FileName, err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = Default().BcryptCost
	}
	if cfg.AuditViewLimit <= 0 {
		cfg.AuditViewLimit = Default().AuditViewLimit
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}
