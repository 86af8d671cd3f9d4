package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileProvider implements Provider using a flat YAML document.
// Values missing from the file fall back to environment variables.
type FileProvider struct {
	values      map[string]string
	environment Environment
	fallback    Provider
}

// NewFileProvider loads the YAML file at path
func NewFileProvider(path string) (Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return NewFileProviderFromBytes(data)
}

// NewFileProviderFromBytes parses a YAML document of scalar values
func NewFileProviderFromBytes(data []byte) (Provider, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]interface{}, []interface{}:
			return nil, &ValidationError{Field: key, Message: "nested values are not supported"}
		default:
			values[key] = fmt.Sprint(v)
		}
	}

	env := values["APP_ENV"]
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = string(Development)
	}

	return &FileProvider{
		values:      values,
		environment: Environment(env),
		fallback:    NewEnvProvider(""),
	}, nil
}

// GetEnvironment returns the current environment
func (p *FileProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from the file
func (p *FileProvider) GetString(ctx context.Context, key string) (string, error) {
	if value, ok := p.values[key]; ok {
		return value, nil
	}
	return p.fallback.GetString(ctx, key)
}

// GetInt retrieves an integer configuration value from the file
func (p *FileProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// GetBool retrieves a boolean configuration value from the file
func (p *FileProvider) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

// GetSecret retrieves a secret value from the file
func (p *FileProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}
