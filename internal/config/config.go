package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the adminctl configuration.
type Config struct {
	APIURL          string `mapstructure:"api_url"`
	AuthMode        string `mapstructure:"auth_mode"`
	SessionCookie   string `mapstructure:"session_cookie"`
	Timeout         int    `mapstructure:"timeout"`
	CredentialStore string `mapstructure:"credential_store"`
	CredentialPath  string `mapstructure:"credential_path"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
}

// TimeoutDuration returns the per-call timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Defaults.
const (
	DefaultCredentialPath  = "~/.adminctl/credential"
	DefaultDatabasePath    = "~/.adminctl/sessions.db"
	DefaultAPIURL          = "http://localhost:8080/myfirst"
	DefaultAuthMode        = "bearer"
	DefaultSessionCookie   = "JSESSIONID"
	DefaultTimeout         = 10
	DefaultCredentialStore = "file"
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "text"
)

// ErrConfigExists is returned by CreateDefaultConfig when the file is
// already there.
var ErrConfigExists = errors.New("config file already exists")

// DefaultConfigPath returns ~/.adminctl/.adminctl.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".adminctl", configName+".yaml"), nil
}

// CreateDefaultConfig writes a starter configuration file at path, or at
// DefaultConfigPath when path is empty. apiURL overrides the default URL
// when set. It returns the path written.
func CreateDefaultConfig(path, apiURL string) (string, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", err
		}
	}
	path = expandPath(path)

	if _, err := os.Stat(path); err == nil {
		return path, ErrConfigExists
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaultValues() {
		// an unset credential_path follows the store backend
		if value == "" {
			continue
		}
		v.Set(key, value)
	}
	if apiURL != "" {
		v.Set("api_url", apiURL)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return path, ErrConfigExists
		}
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
