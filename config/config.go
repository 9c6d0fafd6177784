package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const appName = "cliptrans"

type Config struct {
	Hotkey      HotkeyConfig      `toml:"hotkey"`
	Capture     CaptureConfig     `toml:"capture"`
	Cache       CacheConfig       `toml:"cache"`
	Translation TranslationConfig `toml:"translation"`
	Web         WebConfig         `toml:"web"`
	Notify      NotifyConfig      `toml:"notify"`
}

type HotkeyConfig struct {
	Key            string `toml:"key"`
	CancelModifier string `toml:"cancel_modifier"`
	WindowMs       int    `toml:"window_ms"`
}

type CaptureConfig struct {
	Attempts   int `toml:"attempts"`
	IntervalMs int `toml:"interval_ms"`
}

type CacheConfig struct {
	DBPath    string  `toml:"db_path"`
	Fuzzy     bool    `toml:"fuzzy"`
	Threshold float64 `toml:"threshold"`
}

type TranslationConfig struct {
	Provider         string  `toml:"provider"`
	Model            string  `toml:"model"`
	BaseURL          string  `toml:"base_url"`
	APIKey           string  `toml:"api_key"`
	TargetLanguage   string  `toml:"target_language"`
	Style            string  `toml:"style"`
	Temperature      float64 `toml:"temperature"`
	MaxRetries       int     `toml:"max_retries"`
	KeepaliveSeconds int     `toml:"keepalive_seconds"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

// envOverrides are read from the environment (and .env) after the file
type envOverrides struct {
	APIKey       string `env:"CLIPTRANS_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	Provider     string `env:"CLIPTRANS_PROVIDER"`
	Model        string `env:"CLIPTRANS_MODEL"`
	BaseURL      string `env:"CLIPTRANS_BASE_URL"`
	DBPath       string `env:"CLIPTRANS_DB_PATH"`
	WebPort      int    `env:"CLIPTRANS_WEB_PORT"`
}

// Default configuration
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Key:            "c",
			CancelModifier: "ctrl",
			WindowMs:       500,
		},
		Capture: CaptureConfig{
			Attempts:   100,
			IntervalMs: 10,
		},
		Cache: CacheConfig{
			DBPath:    filepath.Join(Dir(), appName+".db"),
			Fuzzy:     true,
			Threshold: 90,
		},
		Translation: TranslationConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			TargetLanguage:   "Turkish",
			Style:            "Academic",
			Temperature:      0.3,
			MaxRetries:       2,
			KeepaliveSeconds: 45,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8741,
		},
		Notify: NotifyConfig{
			Enabled: false,
		},
	}
}

// Dir returns the per-user configuration directory
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, appName)
}

// Path returns the path to the configuration file
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load loads the configuration from the TOML file at path, creating it
// with default values if it doesn't exist, then applies environment
// overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	// A missing .env file is normal
	_ = godotenv.Load()

	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	switch {
	case o.APIKey != "":
		c.Translation.APIKey = o.APIKey
	case c.Translation.APIKey == "" && o.OpenAIAPIKey != "":
		c.Translation.APIKey = o.OpenAIAPIKey
	}
	if o.Provider != "" {
		c.Translation.Provider = o.Provider
	}
	if o.Model != "" {
		c.Translation.Model = o.Model
	}
	if o.BaseURL != "" {
		c.Translation.BaseURL = o.BaseURL
	}
	if o.DBPath != "" {
		c.Cache.DBPath = o.DBPath
	}
	if o.WebPort != 0 {
		c.Web.Port = o.WebPort
	}
	return nil
}

// Validate checks that values are usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hotkey.Key) == "" {
		return fmt.Errorf("hotkey.key must not be empty")
	}
	if c.Hotkey.WindowMs <= 0 {
		return fmt.Errorf("hotkey.window_ms must be positive, got %d", c.Hotkey.WindowMs)
	}
	if c.Capture.Attempts <= 0 {
		return fmt.Errorf("capture.attempts must be positive, got %d", c.Capture.Attempts)
	}
	if c.Capture.IntervalMs < 0 {
		return fmt.Errorf("capture.interval_ms must not be negative, got %d", c.Capture.IntervalMs)
	}
	if c.Cache.Threshold <= 0 || c.Cache.Threshold > 100 {
		return fmt.Errorf("cache.threshold must be greater than 0 and at most 100, got %g", c.Cache.Threshold)
	}
	if c.Cache.DBPath == "" {
		return fmt.Errorf("cache.db_path must not be empty")
	}
	switch c.Translation.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown translation provider: %s", c.Translation.Provider)
	}
	if c.Translation.MaxRetries < 0 {
		return fmt.Errorf("translation.max_retries must not be negative")
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// Save writes the configuration to the TOML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(c)
}

// DetectWindow returns the double-press window
func (h HotkeyConfig) DetectWindow() time.Duration {
	return time.Duration(h.WindowMs) * time.Millisecond
}

// Interval returns the delay between clipboard read attempts
func (c CaptureConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// KeepaliveInterval returns the engine keepalive period
func (t TranslationConfig) KeepaliveInterval() time.Duration {
	return time.Duration(t.KeepaliveSeconds) * time.Second
}
