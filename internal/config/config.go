// Package config loads ahoy's settings from defaults, an optional config
// file and AHOY_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/codemasonhq/ahoy/internal/compose"
)

// EnvPrefix is prepended to every environment override, e.g.
// AHOY_DATA_DIR or AHOY_TLS_DAYS.
const EnvPrefix = "AHOY"

// ConfigEnv names a config file when --config is not given.
const ConfigEnv = EnvPrefix + "_CONFIG"

// Config holds all application configuration.
type Config struct {
	DataDir         string       `mapstructure:"data_dir"`
	RootDomain      string       `mapstructure:"root_domain"`
	ComposeFile     string       `mapstructure:"compose_file"`
	ComposeTemplate string       `mapstructure:"compose_template"` // template file path; empty means built-in
	Proxy           ProxyConfig  `mapstructure:"proxy"`
	TLS             TLSConfig    `mapstructure:"tls"`
	Hosts           HostsConfig  `mapstructure:"hosts"`
	Pack            PackConfig   `mapstructure:"pack"`
	Docker          DockerConfig `mapstructure:"docker"`
	Log             LogConfig    `mapstructure:"log"`
}

// ProxyConfig describes the reverse-proxy service inserted by `secure`.
type ProxyConfig struct {
	Image   string   `mapstructure:"image"`
	Ports   []string `mapstructure:"ports"`
	Volumes []string `mapstructure:"volumes"`
}

// Definition converts the configuration into a compose.ProxyDefinition.
func (c ProxyConfig) Definition() compose.ProxyDefinition {
	return compose.NewProxyDefinition(c.Image, c.Ports, c.Volumes)
}

// TLSConfig holds certificate generation settings.
type TLSConfig struct {
	Days    int `mapstructure:"days"`
	KeyBits int `mapstructure:"key_bits"`

	// Trust adds generated certificates to the macOS system keychain.
	Trust bool `mapstructure:"trust"`
}

// HostsConfig holds hosts file settings.
type HostsConfig struct {
	File string `mapstructure:"file"`
}

// PackConfig controls where language packs are downloaded from.
type PackConfig struct {
	// OfficialPrefix turns a bare pack name into an official repository,
	// e.g. "php" → "codemasonhq/ahoy-install-php".
	OfficialPrefix string `mapstructure:"official_prefix"`

	// BaseURL is prepended to owner/repo references.
	BaseURL string `mapstructure:"base_url"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	// Host overrides the daemon address. Empty means DOCKER_HOST or socket
	// detection.
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CertDir returns the root of the certificate tree.
func (c *Config) CertDir() string {
	return filepath.Join(c.DataDir, "ssl")
}

// DefaultDataDir returns <user config dir>/ahoy, falling back to ./.ahoy
// when the user config dir cannot be determined.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ahoy"
	}
	return filepath.Join(dir, "ahoy")
}

// Load loads configuration from file and environment. An empty configPath
// falls back to $AHOY_CONFIG; a missing file is ignored, a malformed one is
// an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("root_domain", "ahoyworld.io")
	v.SetDefault("compose_file", "docker-compose.yml")
	v.SetDefault("compose_template", "")
	v.SetDefault("proxy.image", compose.DefaultProxyImage)
	v.SetDefault("proxy.ports", compose.DefaultProxyPorts)
	v.SetDefault("proxy.volumes", compose.DefaultProxyVolumes)
	v.SetDefault("tls.days", 730)
	v.SetDefault("tls.key_bits", 2048)
	v.SetDefault("tls.trust", runtime.GOOS == "darwin")
	v.SetDefault("hosts.file", "/etc/hosts")
	v.SetDefault("pack.official_prefix", "codemasonhq/ahoy-install-")
	v.SetDefault("pack.base_url", "https://github.com/")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath == "" {
		configPath = os.Getenv(ConfigEnv)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Proxy.Image == "" {
		return fmt.Errorf("proxy.image must not be empty")
	}
	if c.TLS.Days <= 0 {
		return fmt.Errorf("tls.days must be positive, got %d", c.TLS.Days)
	}
	if c.TLS.KeyBits < 1024 {
		return fmt.Errorf("tls.key_bits must be at least 1024, got %d", c.TLS.KeyBits)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger writing to w with the configured level and
// format.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
