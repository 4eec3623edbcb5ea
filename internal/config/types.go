package config

import "time"

type StorageConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	StoreFile    string `mapstructure:"store_file"`
	KeyFile      string `mapstructure:"key_file"`
	ProtectedDir string `mapstructure:"protected_dir"`
}

type AuthConfig struct {
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	UserLockDuration     time.Duration `mapstructure:"user_lock_duration"`
	FreezeDuration       time.Duration `mapstructure:"freeze_duration"`
	JWTSecret            string        `mapstructure:"jwt_secret"`
	TokenExpiration      time.Duration `mapstructure:"token_expiration"`
	DefaultAdminPassword string        `mapstructure:"default_admin_password"`
}

type SessionConfig struct {
	File          string        `mapstructure:"file"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
}

type AuditConfig struct {
	File string `mapstructure:"file"`
}

type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Session SessionConfig `mapstructure:"session"`
	Audit   AuditConfig   `mapstructure:"audit"`
}
