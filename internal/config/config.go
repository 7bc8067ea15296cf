// Package config loads scrawl configuration from file, environment, and
// defaults.
//
// Lookup order is the usual viper one: explicit --config path, then
// ~/.scrawl/config.yaml, then SCRAWL_* environment variables, then the
// built-in defaults.
package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the resolved scrawl configuration.
type Config struct {
	// RemoteURL is the base URL of the shared story store.
	RemoteURL string `mapstructure:"remote_url"`

	// DBPath is the path of the local durable store.
	DBPath string `mapstructure:"db_path"`

	// SpoolDir is where the daemon picks up dropped draft files.
	SpoolDir string `mapstructure:"spool_dir"`

	// LogFile, when set, routes daemon logs through a rotating file.
	LogFile string `mapstructure:"log_file"`

	// MaxRetries is the retry ceiling for pending writes.
	MaxRetries int `mapstructure:"max_retries"`

	// ProbeInterval is how often connectivity is re-checked.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`

	// DrainInterval is how often the daemon runs a safety-net drain.
	DrainInterval time.Duration `mapstructure:"drain_interval"`

	// RequestTimeout bounds each remote write attempt.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// DashboardPort is the websocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".scrawl")

	return Config{
		RemoteURL:      "http://localhost:8080",
		DBPath:         filepath.Join(base, "local.db"),
		SpoolDir:       filepath.Join(base, "spool"),
		LogFile:        "",
		MaxRetries:     3,
		ProbeInterval:  10 * time.Second,
		DrainInterval:  30 * time.Second,
		RequestTimeout: 15 * time.Second,
		DashboardPort:  8137,
	}
}

// Load resolves the configuration. path may be empty, in which case only
// the default locations and environment are consulted. A missing config
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("remote_url", def.RemoteURL)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("spool_dir", def.SpoolDir)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("probe_interval", def.ProbeInterval)
	v.SetDefault("drain_interval", def.DrainInterval)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("dashboard_port", def.DashboardPort)

	v.SetEnvPrefix("SCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".scrawl"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// A missing default config file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds a prefixed logger. When the config names a log file, the
// logger writes through a size-rotated file; otherwise it writes to stderr.
func (c Config) NewLogger(prefix string) *log.Logger {
	var out io.Writer = os.Stderr
	if c.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	return log.New(out, prefix, log.LstdFlags)
}
