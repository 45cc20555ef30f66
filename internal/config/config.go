// Package config loads readlater settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// AppName is used for the XDG data and config directories.
const AppName = "readlater"

// Cloud providers.
const (
	ProviderNone     = "none"
	ProviderPostgres = "postgres"
	ProviderRedis    = "redis"
	ProviderMemory   = "memory"
)

// Defaults.
const (
	DefaultServerAddr     = "127.0.0.1:19191"
	DefaultGeminiModel    = "gemini-2.0-flash-exp"
	DefaultTagTimeout     = 15 * time.Second
	DefaultRemoteTimeout  = 10 * time.Second
	DefaultFlushInterval  = 30 * time.Second
	DefaultMetaTimeout    = 15 * time.Second
	DefaultStaleDays      = 7
	DefaultProjectRef     = "readlater"
	DefaultRedisPoolSize  = 10
	DefaultConnectTimeout = 30 * time.Second
)

// Config is the full application configuration.
type Config struct {
	DataDir   string `yaml:"data_dir"`
	LogLevel  string `yaml:"log_level"`
	PrettyLog bool   `yaml:"pretty_log"`
	StaleDays int    `yaml:"stale_days"`

	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Cloud    CloudConfig    `yaml:"cloud"`
	Metadata MetadataConfig `yaml:"metadata"`
	Notion   NotionConfig   `yaml:"notion"`
}

// ServerConfig configures the bridge and HTTP API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GeminiConfig configures AI tag generation. APIKey is the server-side key used by
// the tag proxy endpoint; interactive saves read the key from local settings.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"` // override for tests and proxies
	Timeout time.Duration `yaml:"timeout"`
}

// CloudConfig selects and configures the remote page repository.
type CloudConfig struct {
	Provider       string        `yaml:"provider"`
	ProjectRef     string        `yaml:"project_ref"` // names the injected session key
	DSN            string        `yaml:"dsn"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisUser      string        `yaml:"redis_user"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	RedisPoolSize  int           `yaml:"redis_pool_size"`
	Timeout        time.Duration `yaml:"timeout"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// MetadataConfig controls title/excerpt prefill for saved URLs.
type MetadataConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// NotionConfig configures the Notion exporter.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		DataDir:   XDGDataDir(),
		LogLevel:  "info",
		StaleDays: DefaultStaleDays,
		Server:    ServerConfig{Addr: DefaultServerAddr},
		Gemini: GeminiConfig{
			Model:   DefaultGeminiModel,
			Timeout: DefaultTagTimeout,
		},
		Cloud: CloudConfig{
			Provider:       ProviderNone,
			ProjectRef:     DefaultProjectRef,
			RedisPoolSize:  DefaultRedisPoolSize,
			Timeout:        DefaultRemoteTimeout,
			FlushInterval:  DefaultFlushInterval,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Metadata: MetadataConfig{Timeout: DefaultMetaTimeout},
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/readlater on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/readlater on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultConfigPath is where Load looks when no explicit path is given.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "readlater.db")
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	switch c.Cloud.Provider {
	case ProviderNone, ProviderMemory:
	case ProviderPostgres:
		if c.Cloud.DSN == "" {
			return errors.New("cloud.dsn is required for the postgres provider")
		}
	case ProviderRedis:
		if c.Cloud.RedisAddr == "" {
			return errors.New("cloud.redis_addr is required for the redis provider")
		}
	default:
		return fmt.Errorf("unknown cloud provider %q", c.Cloud.Provider)
	}
	if c.Cloud.Timeout <= 0 {
		return fmt.Errorf("cloud.timeout must be > 0, got %v", c.Cloud.Timeout)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be > 0, got %v", c.Gemini.Timeout)
	}
	if c.StaleDays < 0 {
		return fmt.Errorf("stale_days must be >= 0, got %d", c.StaleDays)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	return nil
}

// applyEnv overrides file values with READLATER_* and well-known variables.
func (c *Config) applyEnv() {
	c.DataDir = getenv("READLATER_DATA_DIR", c.DataDir)
	c.LogLevel = getenv("READLATER_LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("READLATER_PRETTY_LOG", c.PrettyLog)
	c.StaleDays = getenvInt("READLATER_STALE_DAYS", c.StaleDays)

	c.Server.Addr = getenv("READLATER_ADDR", c.Server.Addr)

	c.Gemini.APIKey = getenv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getenv("READLATER_GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.BaseURL = getenv("READLATER_GEMINI_BASE_URL", c.Gemini.BaseURL)
	c.Gemini.Timeout = mustDuration("READLATER_TAG_TIMEOUT", c.Gemini.Timeout)

	c.Cloud.Provider = getenv("READLATER_CLOUD", c.Cloud.Provider)
	c.Cloud.ProjectRef = getenv("READLATER_PROJECT_REF", c.Cloud.ProjectRef)
	c.Cloud.DSN = getenv("DATABASE_URL", c.Cloud.DSN)
	c.Cloud.RedisAddr = getenv("REDIS_ADDR", c.Cloud.RedisAddr)
	c.Cloud.RedisPassword = getenv("REDIS_PASSWORD", c.Cloud.RedisPassword)
	c.Cloud.Timeout = mustDuration("READLATER_REMOTE_TIMEOUT", c.Cloud.Timeout)
	c.Cloud.FlushInterval = mustDuration("READLATER_FLUSH_INTERVAL", c.Cloud.FlushInterval)

	c.Metadata.Enabled = mustBool("READLATER_METADATA", c.Metadata.Enabled)

	c.Notion.Token = getenv("NOTION_API_KEY", c.Notion.Token)
	c.Notion.DatabaseID = getenv("NOTION_DATABASE_ID", c.Notion.DatabaseID)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
