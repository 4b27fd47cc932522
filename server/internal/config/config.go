package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the relay configuration.
const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8080
	DefaultPath     = "/chat"
	DefaultUsername = "test"
	DefaultLevel    = "info"
	DefaultFormat   = "json"

	DefaultAPIKeyHeader   = "X-API-Key"
	DefaultSessionHistory = 5 * time.Minute
)

// Config is the root of the relay configuration file.
type Config struct {
	Relay RelayConfig `yaml:"relay"`
	Log   LogConfig   `yaml:"log"`
	Admin AdminConfig `yaml:"admin"`
}

// RelayConfig controls the chat endpoint.
type RelayConfig struct {
	// Host is the interface the chat endpoint binds to.
	Host string `yaml:"host"`

	// Port is the TCP port of the chat endpoint.
	Port int `yaml:"port"`

	// Path is the single route that accepts WebSocket upgrades.
	Path string `yaml:"path"`

	// DefaultUsername is assigned to clients that connect without a
	// username query parameter.
	DefaultUsername string `yaml:"default_username"`
}

// Addr returns the host:port listen address.
func (r RelayConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel returns Level as a slog.Level. Unknown values map to info;
// validate rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// AdminConfig controls the operational listeners. A zero port disables the
// listener.
type AdminConfig struct {
	// HTTPPort serves /healthz, /users and /metrics.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the standard grpc.health.v1 service.
	GRPCPort int `yaml:"grpc_port"`

	// APIKeyEnv names the environment variable holding the admin API key.
	// When empty, or when the variable is unset, the admin HTTP endpoints
	// other than /healthz are unauthenticated.
	APIKeyEnv string `yaml:"api_key_env"`

	// APIKeyHeader is the request header carrying the key.
	APIKeyHeader string `yaml:"api_key_header"`

	// SessionHistory is how long ended sessions stay listed in GET /sessions.
	SessionHistory time.Duration `yaml:"session_history"`
}

// APIKey resolves the admin API key from the environment at call time.
func (a AdminConfig) APIKey() string {
	if a.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(a.APIKeyEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("relay config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			Path:            DefaultPath,
			DefaultUsername: DefaultUsername,
		},
		Log: LogConfig{
			Level:  DefaultLevel,
			Format: DefaultFormat,
		},
		Admin: AdminConfig{
			APIKeyHeader:   DefaultAPIKeyHeader,
			SessionHistory: DefaultSessionHistory,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Relay.Port <= 0 || cfg.Relay.Port > 65535 {
		return fmt.Errorf("relay.port %d is out of range [1, 65535]", cfg.Relay.Port)
	}
	if !strings.HasPrefix(cfg.Relay.Path, "/") {
		return fmt.Errorf("relay.path %q must start with /", cfg.Relay.Path)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	for name, port := range map[string]int{
		"admin.http_port": cfg.Admin.HTTPPort,
		"admin.grpc_port": cfg.Admin.GRPCPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s %d is out of range [0, 65535]", name, port)
		}
		if port != 0 && port == cfg.Relay.Port {
			return fmt.Errorf("%s %d collides with relay.port", name, port)
		}
	}
	if cfg.Admin.HTTPPort != 0 && cfg.Admin.HTTPPort == cfg.Admin.GRPCPort {
		return fmt.Errorf("admin.http_port and admin.grpc_port must differ")
	}
	if cfg.Admin.SessionHistory < 0 {
		return fmt.Errorf("admin.session_history must not be negative")
	}
	if cfg.Admin.APIKeyEnv != "" && cfg.Admin.APIKeyHeader == "" {
		return fmt.Errorf("admin.api_key_header must be set when admin.api_key_env is")
	}
	return nil
}
