// Package config reads environment configuration, optionally seeded from a
// .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys.
const (
	EnvStore      = "ECDNA_STORE"
	EnvDBPath     = "ECDNA_DB_PATH"
	EnvRunsDir    = "ECDNA_RUNS_DIR"
	EnvExportsDir = "ECDNA_EXPORTS_DIR"
	EnvLogLevel   = "ECDNA_LOG_LEVEL"
	EnvWorkers    = "ECDNA_WORKERS"
)

// Default values
const (
	DefaultStore      = "memory"
	DefaultDBPath     = "ecdnaabc.db"
	DefaultRunsDir    = "runs"
	DefaultExportsDir = "exports"
	DefaultLogLevel   = "info"
	DefaultWorkers    = 1
)

// Config holds the process configuration.
type Config struct {
	Store      string
	DBPath     string
	RunsDir    string
	ExportsDir string
	LogLevel   string
	Workers    int
}

// Load reads the first .env file found, then environment variables. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			break
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	workers, err := getEnvInt(EnvWorkers, DefaultWorkers)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("%s must be >= 1, got %d", EnvWorkers, workers)
	}
	cfg := &Config{
		Store:      strings.ToLower(getEnvString(EnvStore, DefaultStore)),
		DBPath:     getEnvString(EnvDBPath, DefaultDBPath),
		RunsDir:    getEnvString(EnvRunsDir, DefaultRunsDir),
		ExportsDir: getEnvString(EnvExportsDir, DefaultExportsDir),
		LogLevel:   getEnvString(EnvLogLevel, DefaultLogLevel),
		Workers:    workers,
	}
	switch cfg.Store {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("%s must be memory or sqlite, got %q", EnvStore, cfg.Store)
	}
	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ecdnaabc", ".env"))
	}
	return paths
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
