package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	dbNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	lowerPattern  = regexp.MustCompile(`[a-z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// DatabaseConfig holds the PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, quoteDSNValue(c.Password), c.DBName, c.SSLMode,
	)
}

// quoteDSNValue quotes values containing spaces or quotes
func quoteDSNValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate(env Environment) error {
	if c.Host == "" {
		return &ValidationError{Field: "Host", Message: "host cannot be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "Port", Message: "port must be between 1 and 65535"}
	}
	if c.User == "" {
		return &ValidationError{Field: "User", Message: "user cannot be empty"}
	}
	if c.Password == "" {
		return &ValidationError{Field: "Password", Message: "password cannot be empty"}
	}
	if c.DBName == "" {
		return &ValidationError{Field: "DBName", Message: "database name cannot be empty"}
	}
	if !dbNamePattern.MatchString(c.DBName) {
		return &ValidationError{Field: "DBName", Message: "database name must start with a letter and contain only letters, numbers, and underscores"}
	}
	if !validSSLModes[c.SSLMode] {
		return &ValidationError{Field: "SSLMode", Message: "invalid SSL mode"}
	}

	if env == Production {
		if strings.EqualFold(c.Host, "localhost") {
			return &ValidationError{Field: "Host", Message: "localhost is not allowed in production"}
		}
		if c.SSLMode == "disable" {
			return &ValidationError{Field: "SSLMode", Message: "SSL cannot be disabled in production"}
		}
		if err := validatePassword(c.Password); err != nil {
			return err
		}
	}
	return nil
}

// validatePassword applies the production password rules
func validatePassword(password string) error {
	switch {
	case len(password) < 12:
		return &ValidationError{Field: "Password", Message: "password must be at least 12 characters long in production"}
	case !upperPattern.MatchString(password):
		return &ValidationError{Field: "Password", Message: "password must contain at least one uppercase letter in production"}
	case !lowerPattern.MatchString(password):
		return &ValidationError{Field: "Password", Message: "password must contain at least one lowercase letter in production"}
	case !digitPattern.MatchString(password):
		return &ValidationError{Field: "Password", Message: "password must contain at least one number in production"}
	case !symbolPattern.MatchString(password):
		return &ValidationError{Field: "Password", Message: "password must contain at least one special character in production"}
	}
	return nil
}

// GetDatabaseConfig retrieves database configuration using the provided config provider
func GetDatabaseConfig(ctx context.Context, provider Provider) (*DatabaseConfig, error) {
	host, err := provider.GetString(ctx, "DB_HOST")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_HOST: %w", err)
	}

	port, err := provider.GetInt(ctx, "DB_PORT")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PORT: %w", err)
	}

	user, err := provider.GetString(ctx, "DB_USER")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_USER: %w", err)
	}

	password, err := provider.GetSecret(ctx, "DB_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PASSWORD: %w", err)
	}

	dbname, err := provider.GetString(ctx, "DB_NAME")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_NAME: %w", err)
	}

	sslmode, err := provider.GetString(ctx, "DB_SSLMODE")
	if err != nil {
		sslmode = "disable"
	}

	cfg := &DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		DBName:   dbname,
		SSLMode:  sslmode,
	}

	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	return cfg, nil
}
