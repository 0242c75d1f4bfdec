// Package config loads application configuration from environment
// variables, with .env support for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the pgx connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// UploadConfig holds file storage settings.
type UploadConfig struct {
	Dir     string // local storage directory
	BaseURL string // public URL prefix for served files

	// R2/S3 settings — when AccountID is set, object storage is used
	// instead of the local directory.
	R2AccountID string
	R2AccessKey string
	R2SecretKey string
	R2Bucket    string
	R2PublicURL string
}

// EmailConfig holds digest mail settings. An empty APIKey selects the
// console sender.
type EmailConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	DigestTo    string // recipient of the daily compliance digest
}

// Config is the root application configuration.
type Config struct {
	Port      string
	JWTSecret string
	DB        DBConfig
	Upload    UploadConfig
	Email     EmailConfig
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over .env entries.
func Load() (*Config, error) {
	// Ignore the error: .env is optional outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "concretrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", "uploads"),
			BaseURL:     getEnv("UPLOAD_BASE_URL", "/api/files"),
			R2AccountID: os.Getenv("R2_ACCOUNT_ID"),
			R2AccessKey: os.Getenv("R2_ACCESS_KEY"),
			R2SecretKey: os.Getenv("R2_SECRET_KEY"),
			R2Bucket:    os.Getenv("R2_BUCKET"),
			R2PublicURL: os.Getenv("R2_PUBLIC_URL"),
		},
		Email: EmailConfig{
			APIKey:      os.Getenv("SENDGRID_API_KEY"),
			FromAddress: getEnv("EMAIL_FROM", "noreply@concretrack.local"),
			FromName:    getEnv("EMAIL_FROM_NAME", "ConcreTrack"),
			DigestTo:    os.Getenv("DIGEST_EMAIL"),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DB.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
