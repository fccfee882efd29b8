package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	AppPort string

	StoreDriver string
	DatabaseDSN string

	JWTSecret      string
	JWTExpiresIn   time.Duration
	TokenCookieTTL time.Duration
	SessionTTL     time.Duration
	CookieSecure   bool
	BcryptCost     int

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AvatarStore string
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RabbitMQURL string
	LogLevel    string

	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("DATABASE_DSN", "boutique.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("TOKEN_COOKIE_TTL", "24h")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AVATAR_STORE", "disk")
	v.SetDefault("UPLOAD_DIR", "./uploads/avatars")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		StoreDriver:    v.GetString("STORE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpiresIn:   v.GetDuration("JWT_EXPIRES_IN"),
		TokenCookieTTL: v.GetDuration("TOKEN_COOKIE_TTL"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		SessionStore:   v.GetString("SESSION_STORE"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		AvatarStore:    v.GetString("AVATAR_STORE"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		S3Region:       v.GetString("S3_REGION"),
		S3Endpoint:     v.GetString("S3_ENDPOINT"),
		S3AccessKey:    v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:    v.GetString("S3_SECRET_KEY"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminUsername:  v.GetString("ADMIN_USERNAME"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	switch c.AvatarStore {
	case "disk":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when AVATAR_STORE=s3")
		}
	default:
		return fmt.Errorf("unsupported AVATAR_STORE %q", c.AvatarStore)
	}
	if c.JWTExpiresIn <= 0 || c.SessionTTL <= 0 || c.TokenCookieTTL <= 0 {
		return errors.New("JWT_EXPIRES_IN, SESSION_TTL and TOKEN_COOKIE_TTL must be positive")
	}
	return nil
}

// AdminConfigured reports whether an admin account should be bootstrapped.
func (c *Config) AdminConfigured() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}
