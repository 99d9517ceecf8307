package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every configuration parameter the application reads.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	AppEnv         string
	PublicURL      string // production base URL for links in emails
	FrontendOrigin string // allowed CORS origin

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	ResendAPIKey string
	EmailFrom    string
	EmailEnabled bool
}

// Load reads configuration from environment variables, optionally loading a
// .env file first (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = EnvDevelopment
	}
	if appEnv != EnvDevelopment && appEnv != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, appEnv)
	}

	publicURL := os.Getenv("PUBLIC_URL")
	if appEnv == EnvProduction && publicURL == "" {
		return nil, fmt.Errorf("PUBLIC_URL environment variable is required in production")
	}

	emailEnabled := false
	if v := os.Getenv("EMAIL_ENABLED"); v != "" {
		emailEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EMAIL_ENABLED environment variable: %w", err)
		}
	}
	if emailEnabled && os.Getenv("RESEND_API_KEY") == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required when EMAIL_ENABLED=true")
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		AppEnv:         appEnv,
		PublicURL:      publicURL,
		FrontendOrigin: os.Getenv("FRONTEND_ORIGIN"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		EmailEnabled: emailEnabled,
	}

	return cfg, nil
}

// BaseURL returns the origin links in emails should point at. Development
// points at the local frontend, production at the configured public URL.
func (c *Config) BaseURL() string {
	if c.AppEnv == EnvDevelopment {
		return "http://localhost:3000"
	}
	return c.PublicURL
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
