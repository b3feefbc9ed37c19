package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

// Session storage backends.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Duration is a time.Duration that reads and writes as "15s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"15s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds application configuration
type Config struct {
	APIBaseURL     string   `json:"apiBaseUrl"`
	APITimeout     Duration `json:"apiTimeout"`
	HTTPAddr       string   `json:"httpAddr"`
	DataDir        string   `json:"dataDir"`
	SessionStorage string   `json:"sessionStorage"`
	RedisAddr      string   `json:"redisAddr,omitempty"`
	RedisPassword  string   `json:"redisPassword,omitempty"`
	RedisDB        int      `json:"redisDb,omitempty"`
	RedisKey       string   `json:"redisKey,omitempty"`
	LogLevel       string   `json:"logLevel"`
	LogFormat      string   `json:"logFormat"`
	MetricsEnabled bool     `json:"metricsEnabled"`
}

// configDir returns ~/.config/paydesk, or "." when no home is available.
func configDir() string {
	currentUser, err := user.Current()
	if err != nil || currentUser.HomeDir == "" {
		return "."
	}
	return filepath.Join(currentUser.HomeDir, ".config", "paydesk")
}

// GetDefaultDataPath returns the default directory for the persisted session
func GetDefaultDataPath() string {
	dir := configDir()
	if dir == "." {
		return "./data"
	}
	return filepath.Join(dir, "data")
}

// GetConfigFilePath returns the path where the config file should be stored
func GetConfigFilePath() string {
	if p := EnvString("PAYDESK_CONFIG", ""); p != "" {
		return p
	}
	dir := configDir()
	if dir == "." {
		return "./config.json"
	}
	return filepath.Join(dir, "config")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:4000",
		APITimeout:     Duration(15 * time.Second),
		HTTPAddr:       "127.0.0.1:8080",
		DataDir:        GetDefaultDataPath(),
		SessionStorage: StorageFile,
		LogLevel:       "info",
		LogFormat:      "json",
		MetricsEnabled: true,
	}
}

// Load loads configuration from the default file, then applies PAYDESK_*
// environment overrides. A missing file means defaults.
func Load() (*Config, error) {
	return LoadFrom(GetConfigFilePath())
}

// LoadFrom loads configuration from path, then applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays PAYDESK_* environment variables.
func (c *Config) ApplyEnv() {
	c.APIBaseURL = EnvString("PAYDESK_API_BASE_URL", c.APIBaseURL)
	c.APITimeout = Duration(EnvDuration("PAYDESK_API_TIMEOUT", c.APITimeout.Std()))
	c.HTTPAddr = EnvString("PAYDESK_HTTP_ADDR", c.HTTPAddr)
	c.DataDir = EnvString("PAYDESK_DATA_DIR", c.DataDir)
	c.SessionStorage = EnvString("PAYDESK_SESSION_STORAGE", c.SessionStorage)
	c.RedisAddr = EnvString("PAYDESK_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = EnvString("PAYDESK_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = EnvInt("PAYDESK_REDIS_DB", c.RedisDB)
	c.RedisKey = EnvString("PAYDESK_REDIS_KEY", c.RedisKey)
	c.LogLevel = EnvString("PAYDESK_LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvString("PAYDESK_LOG_FORMAT", c.LogFormat)
	c.MetricsEnabled = EnvBool("PAYDESK_METRICS_ENABLED", c.MetricsEnabled)
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: apiBaseUrl %q must be an absolute http(s) url", c.APIBaseURL)
	}
	switch strings.ToLower(c.SessionStorage) {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("config: redisAddr is required for redis session storage")
		}
	default:
		return fmt.Errorf("config: unknown sessionStorage %q", c.SessionStorage)
	}
	if c.APITimeout <= 0 {
		return errors.New("config: apiTimeout must be positive")
	}
	return nil
}

// SaveTo writes the configuration to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
