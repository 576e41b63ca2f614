package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration, loaded once at startup from the
// environment. cmd binaries call godotenv.Load before Load so a local .env
// file works in development.
type Config struct {
	// Server
	DatabaseURL    string
	ServerPort     string
	JWTSecret      string
	AllowedOrigins string

	// QuickBooks OAuth app credentials
	QBOClientID     string
	QBOClientSecret string
	QBORedirectURL  string
	QBOAuthURL      string
	QBOTokenURL     string
	QBOAPIBaseURL   string
	QBOMinorVersion string

	// OpenAI
	OpenAIAPIKey string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. DATABASE_URL, JWT_SECRET and
// the QuickBooks client credentials are required; everything else has defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),

		QBOClientID:     os.Getenv("QBO_CLIENT_ID"),
		QBOClientSecret: os.Getenv("QBO_CLIENT_SECRET"),
		QBORedirectURL:  os.Getenv("QBO_REDIRECT_URL"),
		QBOAuthURL:      getEnv("QBO_AUTH_URL", "https://appcenter.intuit.com/connect/oauth2"),
		QBOTokenURL:     getEnv("QBO_TOKEN_URL", "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"),
		QBOAPIBaseURL:   getEnv("QBO_API_BASE_URL", "https://quickbooks.api.intuit.com/v3"),
		QBOMinorVersion: getEnv("QBO_MINOR_VERSION", "65"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if cfg.QBOClientID == "" || cfg.QBOClientSecret == "" {
		return nil, fmt.Errorf("QBO_CLIENT_ID and QBO_CLIENT_SECRET must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
