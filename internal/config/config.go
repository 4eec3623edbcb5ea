package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// LoadConfig reads config.toml from ./config (or the working directory) and
// merges it over the built-in defaults. A missing config file is not an
// error; every setting has a default matching the reference deployment.
// Settings can also be overridden through VAULTGATE_* environment variables.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VAULTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	resolvePaths(&config)

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.store_file", "users.json.enc")
	v.SetDefault("storage.key_file", "key.key")
	v.SetDefault("storage.protected_dir", "protected")

	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.max_attempts", 5)
	v.SetDefault("auth.user_lock_duration", 180*time.Second)
	v.SetDefault("auth.freeze_duration", 60*time.Second)
	v.SetDefault("auth.token_expiration", time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.default_admin_password", "admin123")

	v.SetDefault("session.file", "active_sessions.json")
	v.SetDefault("session.stale_after", 300*time.Second)
	v.SetDefault("session.retry_interval", 100*time.Millisecond)
	v.SetDefault("session.lock_timeout", 5*time.Second)

	v.SetDefault("audit.file", "logs/security.log")
}

// resolvePaths anchors the store, key and session files under the data
// directory unless they were configured as absolute paths.
func resolvePaths(config *AppConfig) {
	dir := config.Storage.DataDir
	config.Storage.StoreFile = joinIfRelative(dir, config.Storage.StoreFile)
	config.Storage.KeyFile = joinIfRelative(dir, config.Storage.KeyFile)
	config.Storage.ProtectedDir = joinIfRelative(dir, config.Storage.ProtectedDir)
	config.Session.File = joinIfRelative(dir, config.Session.File)
}

func joinIfRelative(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Env returns the current application environment, defaulting to development.
func Env() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		return EnvDevelopment
	}
	return env
}
