// Package config loads server settings from an optional TOML file and
// SHOP_* environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// BackupDisabled turns the backup scheduler off when used as the schedule.
const BackupDisabled = "off"

type Config struct {
	Store        string `toml:"store"`         // SHOP_STORE (default "memory")
	DataFile     string `toml:"data_file"`     // SHOP_DATA_FILE (memory store snapshot; empty = not persisted)
	DatabaseURL  string `toml:"database_url"`  // SHOP_DATABASE_URL (required for postgres)
	DatabaseName string `toml:"database_name"` // SHOP_DATABASE_NAME (default "ecommerce_db")

	HTTPAddr  string `toml:"http_addr"`  // SHOP_HTTP_ADDR (default ":8000")
	GRPCAddr  string `toml:"grpc_addr"`  // SHOP_GRPC_ADDR (optional, empty = no gRPC listener)
	NATSURL   string `toml:"nats_url"`   // SHOP_NATS_URL (optional, empty = no events)
	AuthToken string `toml:"auth_token"` // SHOP_AUTH_TOKEN (optional, empty = auth disabled)

	LogLevel       string        `toml:"log_level"`       // SHOP_LOG_LEVEL (default "info")
	LogFormat      string        `toml:"log_format"`      // SHOP_LOG_FORMAT (text|json, default "text")
	HealthInterval time.Duration `toml:"health_interval"` // SHOP_HEALTH_INTERVAL (default 15s)

	Backup Backup `toml:"backup"`
	Hooks  []Hook `toml:"hooks"` // file only
}

// Hook runs a shell command for each record event matching Topic, e.g.
//
//	[[hooks]]
//	topic = "shop.orders.created"
//	command = "notify-warehouse"
//	timeout = "10s"
type Hook struct {
	Topic   string        `toml:"topic"`
	Command string        `toml:"command"`
	Timeout time.Duration `toml:"timeout"`
}

// Backup configures periodic JSONL exports. Each destination is enabled by
// setting its location.
type Backup struct {
	Schedule   string `toml:"schedule"`    // SHOP_BACKUP_SCHEDULE (cron spec, default "@every 3m"; "off" disables)
	S3Bucket   string `toml:"s3_bucket"`   // SHOP_BACKUP_S3_BUCKET
	S3Endpoint string `toml:"s3_endpoint"` // SHOP_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region   string `toml:"s3_region"`   // SHOP_BACKUP_S3_REGION (default "us-east-1")
	S3Key      string `toml:"s3_key"`      // SHOP_BACKUP_S3_KEY (default "shop/backup.jsonl")
	GitRepo    string `toml:"git_repo"`    // SHOP_BACKUP_GIT_REPO (path to a clone)
	GitFile    string `toml:"git_file"`    // SHOP_BACKUP_GIT_FILE (default "shop.jsonl")
	GitBranch  string `toml:"git_branch"`  // SHOP_BACKUP_GIT_BRANCH (default "main")
	Dir        string `toml:"dir"`         // SHOP_BACKUP_DIR (keeps timestamped copies)
	Keep       int    `toml:"keep"`        // SHOP_BACKUP_KEEP (copies kept in Dir, default 10; 0 keeps all)
}

// Enabled reports whether a schedule is set and at least one destination is.
func (b Backup) Enabled() bool {
	if b.Schedule == "" || b.Schedule == BackupDisabled {
		return false
	}
	return b.S3Bucket != "" || b.GitRepo != "" || b.Dir != ""
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Store:          StoreMemory,
		DatabaseName:   "ecommerce_db",
		HTTPAddr:       ":8000",
		LogLevel:       "info",
		LogFormat:      "text",
		HealthInterval: 15 * time.Second,
		Backup: Backup{
			Schedule:  "@every 3m",
			S3Region:  "us-east-1",
			S3Key:     "shop/backup.jsonl",
			GitFile:   "shop.jsonl",
			GitBranch: "main",
			Keep:      10,
		},
	}
}

// Load builds the configuration: defaults, then the TOML file named by
// SHOP_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("SHOP_CONFIG_FILE"); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Store = envOrDefault("SHOP_STORE", c.Store)
	c.DataFile = envOrDefault("SHOP_DATA_FILE", c.DataFile)
	c.DatabaseURL = envOrDefault("SHOP_DATABASE_URL", c.DatabaseURL)
	c.DatabaseName = envOrDefault("SHOP_DATABASE_NAME", c.DatabaseName)
	c.HTTPAddr = envOrDefault("SHOP_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = envOrDefault("SHOP_GRPC_ADDR", c.GRPCAddr)
	c.NATSURL = envOrDefault("SHOP_NATS_URL", c.NATSURL)
	c.AuthToken = envOrDefault("SHOP_AUTH_TOKEN", c.AuthToken)
	c.LogLevel = envOrDefault("SHOP_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("SHOP_LOG_FORMAT", c.LogFormat)

	if v := os.Getenv("SHOP_HEALTH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHOP_HEALTH_INTERVAL: %w", err)
		}
		c.HealthInterval = d
	}

	b := &c.Backup
	b.Schedule = envOrDefault("SHOP_BACKUP_SCHEDULE", b.Schedule)
	b.S3Bucket = envOrDefault("SHOP_BACKUP_S3_BUCKET", b.S3Bucket)
	b.S3Endpoint = envOrDefault("SHOP_BACKUP_S3_ENDPOINT", b.S3Endpoint)
	b.S3Region = envOrDefault("SHOP_BACKUP_S3_REGION", b.S3Region)
	b.S3Key = envOrDefault("SHOP_BACKUP_S3_KEY", b.S3Key)
	b.GitRepo = envOrDefault("SHOP_BACKUP_GIT_REPO", b.GitRepo)
	b.GitFile = envOrDefault("SHOP_BACKUP_GIT_FILE", b.GitFile)
	b.GitBranch = envOrDefault("SHOP_BACKUP_GIT_BRANCH", b.GitBranch)
	b.Dir = envOrDefault("SHOP_BACKUP_DIR", b.Dir)
	if v := os.Getenv("SHOP_BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHOP_BACKUP_KEEP: %w", err)
		}
		b.Keep = n
	}
	return nil
}

// Validate checks option combinations and value formats.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("SHOP_DATABASE_URL is required when SHOP_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("SHOP_STORE: unknown store %q (want %s or %s)", c.Store, StoreMemory, StorePostgres))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("SHOP_HTTP_ADDR must not be empty"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("SHOP_LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("SHOP_LOG_FORMAT: unknown format %q (want text or json)", c.LogFormat))
	}
	if c.HealthInterval <= 0 {
		errs = append(errs, errors.New("SHOP_HEALTH_INTERVAL must be positive"))
	}
	if c.Backup.Keep < 0 {
		errs = append(errs, errors.New("SHOP_BACKUP_KEEP must not be negative"))
	}
	for i, h := range c.Hooks {
		if h.Topic == "" || h.Command == "" {
			errs = append(errs, fmt.Errorf("hooks[%d]: topic and command are required", i))
		}
		if h.Timeout < 0 {
			errs = append(errs, fmt.Errorf("hooks[%d]: timeout must not be negative", i))
		}
	}
	if s := c.Backup.Schedule; s != "" && s != BackupDisabled {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, fmt.Errorf("SHOP_BACKUP_SCHEDULE: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
