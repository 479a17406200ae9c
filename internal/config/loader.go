package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = ".adminctl"
	envPrefix  = "ADMINCTL"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile makes Load read path instead of searching for a config file.
// A missing explicit file is an error.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = expandPath(path)
}

// Override sets a value with the highest precedence, above env vars and the
// config file. Used for command-line flags.
func (l *Loader) Override(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load loads configuration from defaults, the config file, environment
// variables and overrides, in increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvVars()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", l.configFile, err)
		}
	} else {
		l.setupConfigPaths()
		// Try to read config file (it's optional)
		if err := l.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.CredentialStore = strings.ToLower(strings.TrimSpace(cfg.CredentialStore))

	if err := l.validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.CredentialPath == "" {
		cfg.CredentialPath = defaultCredentialPath(cfg.CredentialStore)
	}
	cfg.CredentialPath = expandPath(cfg.CredentialPath)

	return &cfg, nil
}

func defaultValues() map[string]any {
	return map[string]any{
		"api_url":          DefaultAPIURL,
		"auth_mode":        DefaultAuthMode,
		"session_cookie":   DefaultSessionCookie,
		"timeout":          DefaultTimeout,
		"credential_store": DefaultCredentialStore,
		"credential_path":  "",
		"log_level":        DefaultLogLevel,
		"log_format":       DefaultLogFormat,
	}
}

// defaultCredentialPath returns where each credential store keeps its data.
func defaultCredentialPath(store string) string {
	switch store {
	case "sqlite":
		return DefaultDatabasePath
	case "memory":
		return ""
	default:
		return DefaultCredentialPath
	}
}

// setDefaults sets default configuration values.
func (l *Loader) setDefaults() {
	for key, value := range defaultValues() {
		l.v.SetDefault(key, value)
	}
}

// setupConfigPaths configures where to search for config files.
func (l *Loader) setupConfigPaths() {
	l.v.SetConfigName(configName)
	l.v.SetConfigType("yaml")

	// Search paths in priority order
	l.v.AddConfigPath("/etc/adminctl")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".adminctl"))
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath(".")
}

// setupEnvVars configures environment variable handling.
func (l *Loader) setupEnvVars() {
	l.v.SetEnvPrefix(envPrefix)
	l.v.AutomaticEnv()
}

// validate validates the configuration.
func (l *Loader) validate(cfg *Config) error {
	if cfg.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url: %s (must be an absolute http(s) URL)", cfg.APIURL)
	}

	if cfg.AuthMode != "bearer" && cfg.AuthMode != "cookie" {
		return fmt.Errorf("invalid auth_mode: %s (must be bearer or cookie)", cfg.AuthMode)
	}

	if cfg.AuthMode == "cookie" && cfg.SessionCookie == "" {
		return fmt.Errorf("session_cookie is required in cookie mode")
	}

	if cfg.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second")
	}

	switch cfg.CredentialStore {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid credential_store: %s (must be file, sqlite, or memory)", cfg.CredentialStore)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be trace, debug, info, warn, or error)", cfg.LogLevel)
	}

	// Validate log format
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	return nil
}

// expandPath expands ~ to home directory in file paths.
func expandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return home
	}

	return filepath.Join(home, path[1:])
}
