package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultSecretRefresh is how long fetched secrets are reused
const DefaultSecretRefresh = 15 * time.Minute

// SecretsClient is the part of the Secrets Manager API the provider needs
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsProvider implements Provider using a JSON secret in AWS Secrets
// Manager. Keys that the secret does not carry fall back to environment
// variables, so only credentials need to live in the secret.
type AWSSecretsProvider struct {
	mu          sync.Mutex
	client      SecretsClient
	secretName  string
	refresh     time.Duration
	cache       map[string]string
	lastFetch   time.Time
	environment Environment
	fallback    Provider
}

// NewAWSConfigProvider creates a Secrets Manager provider for the secret
// named by AWS_SECRET_NAME
func NewAWSConfigProvider() (Provider, error) {
	secretName := os.Getenv("AWS_SECRET_NAME")
	if secretName == "" {
		return nil, fmt.Errorf("AWS_SECRET_NAME environment variable not set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSSecretsProvider(secretsmanager.NewFromConfig(cfg), secretName, DefaultSecretRefresh), nil
}

// NewAWSSecretsProvider creates a provider reading secretName through client
func NewAWSSecretsProvider(client SecretsClient, secretName string, refresh time.Duration) *AWSSecretsProvider {
	return &AWSSecretsProvider{
		client:      client,
		secretName:  secretName,
		refresh:     refresh,
		environment: currentEnvironment(),
		fallback:    NewEnvProvider(""),
	}
}

// GetEnvironment returns the current environment
func (p *AWSSecretsProvider) GetEnvironment() Environment {
	return p.environment
}

// secrets returns the cached secret, fetching it when it is stale
func (p *AWSSecretsProvider) secrets(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil && time.Since(p.lastFetch) < p.refresh {
		return p.cache, nil
	}

	secret, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	if secret.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", p.secretName)
	}

	var secretMap map[string]string
	if err := json.Unmarshal([]byte(*secret.SecretString), &secretMap); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	if err := validateSecretSchema(secretMap); err != nil {
		return nil, fmt.Errorf("invalid secret schema: %w", err)
	}

	p.cache = secretMap
	p.lastFetch = time.Now()
	return secretMap, nil
}

// GetString retrieves a value from the secret or the environment
func (p *AWSSecretsProvider) GetString(ctx context.Context, key string) (string, error) {
	secretMap, err := p.secrets(ctx)
	if err != nil {
		return "", err
	}
	if value, ok := secretMap[key]; ok {
		return value, nil
	}
	return p.fallback.GetString(ctx, key)
}

// GetInt retrieves an integer value from the secret or the environment
func (p *AWSSecretsProvider) GetInt(ctx context.Context, key string) (int, error) {
	return parseInt(p.GetString(ctx, key))
}

// GetBool retrieves a boolean value from the secret or the environment
func (p *AWSSecretsProvider) GetBool(ctx context.Context, key string) (bool, error) {
	return parseBool(p.GetString(ctx, key))
}

// GetSecret retrieves a value that must be stored in the secret
func (p *AWSSecretsProvider) GetSecret(ctx context.Context, key string) (string, error) {
	secretMap, err := p.secrets(ctx)
	if err != nil {
		return "", err
	}
	value, ok := secretMap[key]
	if !ok {
		return "", fmt.Errorf("secret key %s not found", key)
	}
	return value, nil
}

// validateSecretSchema checks the database keys of a fetched secret.
// The password is required; the other keys are checked when present.
func validateSecretSchema(secrets map[string]string) error {
	if secrets["DB_PASSWORD"] == "" {
		return &ValidationError{Field: "DB_PASSWORD", Message: "required secret key not found"}
	}
	if port, ok := secrets["DB_PORT"]; ok {
		if _, err := strconv.Atoi(port); err != nil {
			return &ValidationError{Field: "DB_PORT", Message: "port must be a valid number"}
		}
	}
	if mode, ok := secrets["DB_SSLMODE"]; ok && !validSSLModes[mode] {
		return &ValidationError{Field: "DB_SSLMODE", Message: "invalid SSL mode"}
	}
	return nil
}
