package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const defaultScopes = "read_products,read_orders,read_customers,read_checkouts"

// Config holds process configuration read from the environment
type Config struct {
	Port              string
	AppURL            string
	FrontendURL       string
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyScopes     []string
	ShopifyAPIVersion string
	EncryptionKey     string
	LogLevel          zerolog.Level
}

// Load reads .env when present, then the environment
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function and applies defaults
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:              get("PORT", "8080"),
		AppURL:            strings.TrimSuffix(get("APP_URL", "http://localhost:8080"), "/"),
		FrontendURL:       strings.TrimSuffix(get("FRONTEND_URL", "http://localhost:5173"), "/"),
		MongoURI:          get("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     get("MONGODB_DATABASE", "shopify_ingestion"),
		RedisURL:          get("REDIS_URL", ""),
		ShopifyAPIKey:     get("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:  get("SHOPIFY_API_SECRET", ""),
		ShopifyScopes:     splitScopes(get("SHOPIFY_SCOPES", defaultScopes)),
		ShopifyAPIVersion: get("SHOPIFY_API_VERSION", "2025-01"),
		EncryptionKey:     get("ENCRYPTION_KEY", ""),
		LogLevel:          zerolog.InfoLevel,
	}

	if lvl := get("LOG_LEVEL", ""); lvl != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", lvl, err)
		}
		cfg.LogLevel = parsed
	}

	var missing []string
	if cfg.ShopifyAPIKey == "" {
		missing = append(missing, "SHOPIFY_API_KEY")
	}
	if cfg.ShopifyAPISecret == "" {
		missing = append(missing, "SHOPIFY_API_SECRET")
	}
	if cfg.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	return cfg, nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
