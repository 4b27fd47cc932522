package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultURL              = "ws://127.0.0.1:8080/chat"
	DefaultUsername         = "test"
	DefaultAdminURL         = "http://127.0.0.1:9100"
	DefaultReconnectInitial = 1 * time.Second
	DefaultReconnectMax     = 30 * time.Second
	DefaultAdminKeyHeader   = "X-API-Key"
)

// Config is the top-level client configuration.
type Config struct {
	Chat ChatConfig `yaml:"chat"`
}

// ChatConfig holds the connection settings of the chat client.
type ChatConfig struct {
	// URL is the relay's WebSocket endpoint (ws:// or wss://).
	URL string `yaml:"url"`

	// Username is sent as the username query parameter. An explicit empty
	// value omits the parameter and the server assigns its default name.
	Username string `yaml:"username"`

	// Reconnect bounds the backoff between connection attempts.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// AdminURL is the base URL of the relay's admin HTTP API.
	AdminURL string `yaml:"admin_url"`

	// AdminKeyEnv names the environment variable holding the admin API key.
	AdminKeyEnv string `yaml:"admin_api_key_env"`

	// AdminKeyHeader is the request header the key is sent in.
	AdminKeyHeader string `yaml:"admin_api_key_header"`
}

// AdminKey resolves the admin API key from the environment at call time.
func (c ChatConfig) AdminKey() string {
	if c.AdminKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.AdminKeyEnv)
}

// ReconnectConfig holds exponential backoff bounds.
type ReconnectConfig struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// Load reads the YAML file at path, applies defaults, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("client config: parse yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Chat: ChatConfig{
			URL:            DefaultURL,
			Username:       DefaultUsername,
			AdminURL:       DefaultAdminURL,
			AdminKeyHeader: DefaultAdminKeyHeader,
			Reconnect: ReconnectConfig{
				Initial: DefaultReconnectInitial,
				Max:     DefaultReconnectMax,
			},
		},
	}
}

// Validate checks URL schemes and backoff bounds. It is exported so that
// callers can re-check a config after applying flag overrides.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.Chat.URL)
	if err != nil {
		return fmt.Errorf("chat.url %q: %w", cfg.Chat.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("chat.url %q: scheme must be ws or wss", cfg.Chat.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("chat.url %q: missing host", cfg.Chat.URL)
	}

	if cfg.Chat.AdminURL != "" {
		a, err := url.Parse(cfg.Chat.AdminURL)
		if err != nil {
			return fmt.Errorf("chat.admin_url %q: %w", cfg.Chat.AdminURL, err)
		}
		if a.Scheme != "http" && a.Scheme != "https" {
			return fmt.Errorf("chat.admin_url %q: scheme must be http or https", cfg.Chat.AdminURL)
		}
	}

	if cfg.Chat.Reconnect.Initial <= 0 {
		return fmt.Errorf("chat.reconnect.initial must be positive")
	}
	if cfg.Chat.Reconnect.Max < cfg.Chat.Reconnect.Initial {
		return fmt.Errorf("chat.reconnect.max %v is below chat.reconnect.initial %v",
			cfg.Chat.Reconnect.Max, cfg.Chat.Reconnect.Initial)
	}
	return nil
}
