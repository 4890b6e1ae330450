// Package config loads the host's acsqe.toml, resolved by walking up from
// the working directory to the nearest project root.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const configFileName = "acsqe.toml"

// Config is the host-level configuration for running ACSQE against a
// directory of per-datastore SQLite files.
type Config struct {
	// DatastoreDir is the directory holding one SQLite file per datastore,
	// named by datastore id. Relative paths are resolved against the
	// directory containing acsqe.toml.
	DatastoreDir string `toml:"datastore_dir"`

	// DefaultPageSize is the page size the query command uses when a
	// request omits an explicit page size.
	DefaultPageSize int `toml:"default_page_size"`

	// BusyTimeoutMS overrides the per-connection busy_timeout pragma.
	BusyTimeoutMS int `toml:"busy_timeout_ms"`

	ConfigFilePath string `toml:"-"`
}

const defaultPageSize = 50
const defaultBusyTimeoutMS = 5000

// Load reads acsqe.toml by walking up from the working directory, then
// overlays any .env file found alongside it (process environment variables
// take precedence over the .env file, matching godotenv's own convention).
func Load() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, describeDecodeError(err)
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if !filepath.IsAbs(cfg.DatastoreDir) {
		cfg.DatastoreDir = filepath.Join(filepath.Dir(configPath), cfg.DatastoreDir)
	}

	cfg.ConfigFilePath = configPath
	return &cfg, nil
}

func describeDecodeError(err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("acsqe.toml:%d:%d: %w", row, col, err)
	}
	return err
}

func findConfigPath() (string, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := startDir
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found (searched upward from %s)", configFileName, startDir)
}

func isProjectRoot(dir string) bool {
	markers := []string{".git", "go.mod"}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}
