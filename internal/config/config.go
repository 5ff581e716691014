// Package config provides configuration management for tunecast using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8090
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultWarmupThreshold     = 10 * time.Second
	defaultSeekBackBytes       = 20000
	defaultChunkSize           = 64 * 1024
	defaultPollInterval        = 50 * time.Millisecond
	defaultEmptyReadLimit      = 2
	defaultTailEmptyReadLimit  = 1000
	defaultVolatileTail        = 1
	defaultMaxSessions         = 50
	defaultCleanupAttempts     = 40
	defaultCleanupRetryDelay   = 500 * time.Millisecond
	defaultOrphanSweepSchedule = "@hourly"
	defaultOrphanMaxAge        = 1 * time.Hour
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Relay   RelayConfig   `mapstructure:"relay"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	// TempDir is the directory where live capture temp files are written.
	// Empty means the operating system temp directory.
	TempDir string `mapstructure:"temp_dir"`
	// OrphanSweepSchedule is a cron expression for the orphaned temp file sweep.
	OrphanSweepSchedule string `mapstructure:"orphan_sweep_schedule"`
	// OrphanMaxAge is how old an unclaimed temp file must be before the sweep removes it.
	OrphanMaxAge time.Duration `mapstructure:"orphan_max_age"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// RelayConfig holds live stream relay configuration.
type RelayConfig struct {
	// WarmupThreshold is how long a session must have been open before a newly
	// attaching consumer is fast-forwarded near the live edge.
	WarmupThreshold time.Duration `mapstructure:"warmup_threshold"`
	// SeekBackBytes is how far from the end of the first segment a live-edge
	// consumer starts reading.
	SeekBackBytes int64 `mapstructure:"seek_back_bytes"`
	// ChunkSize is the read buffer size for segment copies.
	ChunkSize int `mapstructure:"chunk_size"`
	// PollInterval is the delay between consecutive empty reads.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// EmptyReadLimit bounds empty-read polling on segments the writer has moved past.
	EmptyReadLimit int `mapstructure:"empty_read_limit"`
	// TailEmptyReadLimit bounds empty-read polling on the last known segment,
	// which may still be actively written.
	TailEmptyReadLimit int `mapstructure:"tail_empty_read_limit"`
	// VolatileTailSegments is how many trailing segments are considered still
	// volatile when deciding whether a segment is the last known one.
	VolatileTailSegments int `mapstructure:"volatile_tail_segments"`
	// MaxSessions is the maximum number of concurrent live sessions.
	MaxSessions int `mapstructure:"max_sessions"`
	// CleanupAttempts is the retry ceiling for temp file deletion.
	CleanupAttempts int `mapstructure:"cleanup_attempts"`
	// CleanupRetryDelay is the fixed delay between cleanup retry rounds.
	CleanupRetryDelay time.Duration `mapstructure:"cleanup_retry_delay"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with TUNECAST_ and use underscores for
// nesting. Example: TUNECAST_SERVER_PORT=8090.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tunecast")
		v.AddConfigPath("$HOME/.tunecast")
	}

	v.SetEnvPrefix("TUNECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file so defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Storage defaults
	v.SetDefault("storage.temp_dir", "")
	v.SetDefault("storage.orphan_sweep_schedule", defaultOrphanSweepSchedule)
	v.SetDefault("storage.orphan_max_age", defaultOrphanMaxAge)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Relay defaults
	v.SetDefault("relay.warmup_threshold", defaultWarmupThreshold)
	v.SetDefault("relay.seek_back_bytes", defaultSeekBackBytes)
	v.SetDefault("relay.chunk_size", defaultChunkSize)
	v.SetDefault("relay.poll_interval", defaultPollInterval)
	v.SetDefault("relay.empty_read_limit", defaultEmptyReadLimit)
	v.SetDefault("relay.tail_empty_read_limit", defaultTailEmptyReadLimit)
	v.SetDefault("relay.volatile_tail_segments", defaultVolatileTail)
	v.SetDefault("relay.max_sessions", defaultMaxSessions)
	v.SetDefault("relay.cleanup_attempts", defaultCleanupAttempts)
	v.SetDefault("relay.cleanup_retry_delay", defaultCleanupRetryDelay)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Relay.ChunkSize < 1 {
		return fmt.Errorf("relay.chunk_size must be at least 1")
	}
	if c.Relay.PollInterval <= 0 {
		return fmt.Errorf("relay.poll_interval must be positive")
	}
	if c.Relay.EmptyReadLimit < 1 {
		return fmt.Errorf("relay.empty_read_limit must be at least 1")
	}
	if c.Relay.TailEmptyReadLimit < c.Relay.EmptyReadLimit {
		return fmt.Errorf("relay.tail_empty_read_limit must be >= relay.empty_read_limit")
	}
	if c.Relay.VolatileTailSegments < 0 {
		return fmt.Errorf("relay.volatile_tail_segments must not be negative")
	}
	if c.Relay.MaxSessions < 1 {
		return fmt.Errorf("relay.max_sessions must be at least 1")
	}
	if c.Relay.CleanupAttempts < 1 {
		return fmt.Errorf("relay.cleanup_attempts must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
