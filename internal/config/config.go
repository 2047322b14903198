// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development fallback for TOKEN_MODE=jwt.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBPath      string `mapstructure:"DB_PATH"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	UploadDir       string `mapstructure:"UPLOAD_DIR"`
	UploadMaxSizeMB int    `mapstructure:"UPLOAD_MAX_SIZE_MB"`
	MediaStorage    string `mapstructure:"MEDIA_STORAGE"`
	MinioEndpoint   string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey  string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket     string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL     bool   `mapstructure:"MINIO_USE_SSL"`

	TokenMode       string `mapstructure:"TOKEN_MODE"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	RequireAuth     bool   `mapstructure:"REQUIRE_AUTH"`
	PasswordHashing bool   `mapstructure:"PASSWORD_HASHING"`

	RedisURL               string `mapstructure:"REDIS_URL"`
	LoginRateLimit         int    `mapstructure:"LOGIN_RATE_LIMIT"`
	LoginRateWindowSeconds int    `mapstructure:"LOGIN_RATE_WINDOW_SECONDS"`

	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "3001")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_PATH", "db.json")
	viper.SetDefault("STORE_DRIVER", "json")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("UPLOAD_MAX_SIZE_MB", 10)
	viper.SetDefault("MEDIA_STORAGE", "disk")
	viper.SetDefault("MINIO_ENDPOINT", "")
	viper.SetDefault("MINIO_ACCESS_KEY", "")
	viper.SetDefault("MINIO_SECRET_KEY", "")
	viper.SetDefault("MINIO_BUCKET", "cms-uploads")
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("TOKEN_MODE", "legacy")
	viper.SetDefault("JWT_SECRET", DefaultJWTSecret)
	viper.SetDefault("REQUIRE_AUTH", false)
	viper.SetDefault("PASSWORD_HASHING", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("LOGIN_RATE_LIMIT", 10)
	viper.SetDefault("LOGIN_RATE_WINDOW_SECONDS", 300)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.MediaStorage = strings.ToLower(strings.TrimSpace(c.MediaStorage))
	c.TokenMode = strings.ToLower(strings.TrimSpace(c.TokenMode))
}

// IsProduction reports whether the config describes a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.StoreDriver {
	case "json":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for the json store")
		}
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.UploadMaxSizeMB <= 0 {
		return errors.New("UPLOAD_MAX_SIZE_MB must be positive")
	}

	switch c.MediaStorage {
	case "disk":
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for disk media storage")
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for minio media storage")
		}
	default:
		return fmt.Errorf("unknown MEDIA_STORAGE %q", c.MediaStorage)
	}

	switch c.TokenMode {
	case "legacy":
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when TOKEN_MODE=jwt")
		}
		if c.IsProduction() {
			if c.JWTSecret == DefaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
		} else if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	default:
		return fmt.Errorf("unknown TOKEN_MODE %q", c.TokenMode)
	}

	if c.LoginRateLimit < 0 || c.LoginRateWindowSeconds < 0 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW_SECONDS must not be negative")
	}

	if c.IsProduction() && c.TokenMode == "legacy" {
		log.Println("WARNING: TOKEN_MODE is 'legacy' in production. Session tokens are derived from user ids and are not verifiable.")
	}

	return nil
}

// UploadMaxSizeBytes returns the upload ceiling in bytes.
func (c *Config) UploadMaxSizeBytes() int64 {
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}
