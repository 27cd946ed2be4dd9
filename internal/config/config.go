// Package config loads tbprobe settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hailam/tbprobe/internal/tablebase"
)

// Config holds the tablebase settings.
type Config struct {
	SyzygyPath     string        // SYZYGY_PATH
	CacheDir       string        // TB_CACHE_DIR, empty keeps the probe cache in memory
	APIURL         string        // TB_API_URL
	HTTPTimeout    time.Duration // TB_HTTP_TIMEOUT
	CacheSize      int           // TB_CACHE_SIZE
	LogLevel       string        // LOG_LEVEL
	UniformMoveWDL bool          // TB_UNIFORM_MOVE_WDL
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		SyzygyPath:  tablebase.DefaultSyzygyDir(),
		APIURL:      tablebase.DefaultLichessURL,
		HTTPTimeout: 5 * time.Second,
		CacheSize:   100000,
		LogLevel:    "info",
	}
}

// Load reads envFile (if it exists) into the environment and builds a Config
// from the environment on top of the defaults. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if v := os.Getenv("SYZYGY_PATH"); v != "" {
		cfg.SyzygyPath = v
	}
	if v := os.Getenv("TB_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TB_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TB_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TB_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v := os.Getenv("TB_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("TB_CACHE_SIZE: %w", err)
		}
		if n < 2 {
			return nil, fmt.Errorf("TB_CACHE_SIZE: %d is below the minimum of 2", n)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv("TB_UNIFORM_MOVE_WDL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("TB_UNIFORM_MOVE_WDL: %w", err)
		}
		cfg.UniformMoveWDL = b
	}
	return cfg, nil
}
