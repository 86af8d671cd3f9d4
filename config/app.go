package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// AppConfig holds the service level configuration
type AppConfig struct {
	Environment   Environment
	StoreBackend  string
	SQLitePath    string
	CacheBackend  string
	CacheTTL      time.Duration
	PathSeparator string
	// PathSeparators overrides PathSeparator per locale or language
	PathSeparators map[string]string
	HTTPAddr       string
	LogLevel       string
}

// stringOr returns the value of key or def when it is not set
func stringOr(ctx context.Context, provider Provider, key, def string) string {
	value, err := provider.GetString(ctx, key)
	if err != nil || value == "" {
		return def
	}
	return value
}

// GetAppConfig reads the service configuration using the provided config provider
func GetAppConfig(ctx context.Context, provider Provider) (*AppConfig, error) {
	cfg := &AppConfig{
		Environment:   provider.GetEnvironment(),
		StoreBackend:  strings.ToLower(stringOr(ctx, provider, "STORE_BACKEND", StoreMemory)),
		SQLitePath:    stringOr(ctx, provider, "SQLITE_PATH", ""),
		CacheBackend:  strings.ToLower(stringOr(ctx, provider, "CACHE_BACKEND", "")),
		CacheTTL:      5 * time.Minute,
		PathSeparator: stringOr(ctx, provider, "PATH_SEPARATOR", "-"),
		HTTPAddr:      stringOr(ctx, provider, "HTTP_ADDR", ":8080"),
		LogLevel:      strings.ToLower(stringOr(ctx, provider, "LOG_LEVEL", "info")),
	}

	if _, err := provider.GetString(ctx, "CACHE_TTL_SECONDS"); err == nil {
		seconds, err := provider.GetInt(ctx, "CACHE_TTL_SECONDS")
		if err != nil {
			return nil, &ValidationError{Field: "CACHE_TTL_SECONDS", Message: "must be a whole number of seconds"}
		}
		cfg.CacheTTL = time.Duration(seconds) * time.Second
	}

	separators, err := parseSeparators(stringOr(ctx, provider, "PATH_SEPARATORS", ""))
	if err != nil {
		return nil, err
	}
	cfg.PathSeparators = separators

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseSeparators reads a list such as "fr=_,de_AT=."
func parseSeparators(value string) (map[string]string, error) {
	separators := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		locale, separator, ok := strings.Cut(pair, "=")
		locale = strings.TrimSpace(locale)
		if !ok || locale == "" {
			return nil, &ValidationError{Field: "PATH_SEPARATORS", Message: fmt.Sprintf("%q is not a locale=separator pair", pair)}
		}
		separators[locale] = strings.TrimSpace(separator)
	}
	return separators, nil
}

func validSeparator(separator string) bool {
	return len(separator) == 1 && strings.Contains("-_.~", separator)
}

// Validate checks if the service configuration is valid
func (c *AppConfig) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return &ValidationError{Field: "STORE_BACKEND", Message: "must be one of memory, sqlite, postgres"}
	}

	switch c.CacheBackend {
	case "", "memory", "redis", "dynamodb":
	default:
		return &ValidationError{Field: "CACHE_BACKEND", Message: "must be one of memory, redis, dynamodb"}
	}

	if c.CacheTTL <= 0 {
		return &ValidationError{Field: "CACHE_TTL_SECONDS", Message: "must be positive"}
	}

	if !validSeparator(c.PathSeparator) {
		return &ValidationError{Field: "PATH_SEPARATOR", Message: "must be one of - _ . ~"}
	}
	for locale, separator := range c.PathSeparators {
		if !validSeparator(separator) {
			return &ValidationError{Field: "PATH_SEPARATORS", Message: fmt.Sprintf("separator of %s must be one of - _ . ~", locale)}
		}
	}

	if c.HTTPAddr == "" {
		return &ValidationError{Field: "HTTP_ADDR", Message: "address cannot be empty"}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "LOG_LEVEL", Message: "must be one of debug, info, warn, error"}
	}

	// The in-memory store loses every path on restart
	if c.Environment == Production && c.StoreBackend == StoreMemory {
		return &ValidationError{Field: "STORE_BACKEND", Message: "memory store is not allowed in production"}
	}

	return nil
}
