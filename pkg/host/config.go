package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/srediag/plugin-status/internal/logging"
)

const (
	defaultStatusTimeout     = 5 * time.Second
	defaultLoadRetryInterval = 100 * time.Millisecond
	defaultWorkers           = 8
	defaultLogQueueCap       = 1024
	defaultLogHistory        = 256
	defaultListenAddr        = "127.0.0.1:8780"
	maxStatusTimeout         = 5 * time.Minute
)

// Config is the host configuration.
type Config struct {
	// StatusTimeout bounds a single status handler call; 0 disables it.
	StatusTimeout     time.Duration
	LoadRetries       uint64
	LoadRetryInterval time.Duration
	// Workers sizes the pool used by StatusAll.
	Workers     int
	LogQueueCap int
	LogHistory  int
	LogLevel    logging.Level
	LogFile     string
	ListenAddr  string
}

// DefaultConfig returns the default configuration. The log level honours
// PLUGINHOST_LOG_LEVEL.
func DefaultConfig() *Config {
	return &Config{
		StatusTimeout:     defaultStatusTimeout,
		LoadRetryInterval: defaultLoadRetryInterval,
		Workers:           defaultWorkers,
		LogQueueCap:       defaultLogQueueCap,
		LogHistory:        defaultLogHistory,
		LogLevel:          logging.LevelFromEnv(logging.LevelWarn),
		ListenAddr:        defaultListenAddr,
	}
}

// VerifyConfig checks that config is usable.
func VerifyConfig(config *Config) error {
	if config == nil {
		return errors.New("config is nil")
	}
	if config.StatusTimeout < 0 || config.StatusTimeout > maxStatusTimeout {
		return fmt.Errorf("status timeout must be between 0 and %s, got %s", maxStatusTimeout, config.StatusTimeout)
	}
	if config.LoadRetryInterval < 0 {
		return errors.New("load retry interval must not be negative")
	}
	if config.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	if config.LogQueueCap < 1 || config.LogHistory < 1 {
		return errors.New("log queue cap and log history must be positive")
	}
	if config.LogLevel < logging.LevelTrace || config.LogLevel > logging.LevelNoPrint {
		return fmt.Errorf("log level %d out of range", config.LogLevel)
	}
	if config.ListenAddr == "" {
		return errors.New("listen address is empty")
	}
	return nil
}

// fileConfig is the on-disk shape. Durations are strings such as "250ms".
type fileConfig struct {
	StatusTimeout     string `toml:"status_timeout" yaml:"status_timeout"`
	LoadRetries       *int   `toml:"load_retries" yaml:"load_retries"`
	LoadRetryInterval string `toml:"load_retry_interval" yaml:"load_retry_interval"`
	Workers           int    `toml:"workers" yaml:"workers"`
	LogQueueCap       int    `toml:"log_queue_cap" yaml:"log_queue_cap"`
	LogHistory        int    `toml:"log_history" yaml:"log_history"`
	LogLevel          *int   `toml:"log_level" yaml:"log_level"`
	LogFile           string `toml:"log_file" yaml:"log_file"`
	ListenAddr        string `toml:"listen_addr" yaml:"listen_addr"`
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file on top of
// DefaultConfig and verifies the result. PLUGINHOST_LOG_LEVEL overrides the
// file's log_level.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := fc.apply(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.LogLevel = logging.LevelFromEnv(cfg.LogLevel)
	if err := VerifyConfig(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if fc.StatusTimeout != "" {
		d, err := time.ParseDuration(fc.StatusTimeout)
		if err != nil {
			return fmt.Errorf("status_timeout: %w", err)
		}
		cfg.StatusTimeout = d
	}
	if fc.LoadRetryInterval != "" {
		d, err := time.ParseDuration(fc.LoadRetryInterval)
		if err != nil {
			return fmt.Errorf("load_retry_interval: %w", err)
		}
		cfg.LoadRetryInterval = d
	}
	if fc.LoadRetries != nil {
		if *fc.LoadRetries < 0 {
			return errors.New("load_retries must not be negative")
		}
		cfg.LoadRetries = uint64(*fc.LoadRetries)
	}
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	if fc.LogQueueCap != 0 {
		cfg.LogQueueCap = fc.LogQueueCap
	}
	if fc.LogHistory != 0 {
		cfg.LogHistory = fc.LogHistory
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = logging.Level(*fc.LogLevel)
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	return nil
}
