// Package secrets resolves provider credentials referenced by name instead
// of carried in the environment. When <PROVIDER>_API_KEY_SECRET is set the
// credential is fetched from the store at startup.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/maildash/assistant-gateway/internal/config"
)

type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Resolve fills in API keys for every descriptor whose
// <PROVIDER>_API_KEY_SECRET env var names a secret. Provider kinds map to
// env prefixes the same way the direct credential vars do
// (azure-openai -> AZURE_OPENAI_API_KEY_SECRET).
func Resolve(ctx context.Context, cfg *config.Config, store SecretStore) error {
	for kind, desc := range cfg.Providers {
		envKey := strings.ReplaceAll(strings.ToUpper(kind), "-", "_") + "_API_KEY_SECRET"
		name := os.Getenv(envKey)
		if name == "" {
			continue
		}

		value, err := store.GetSecret(ctx, name)
		if err != nil {
			return fmt.Errorf("resolve %s credential: %w", kind, err)
		}

		desc.APIKey = value
		cfg.Providers[kind] = desc
	}
	return nil
}

type AWSSecretsManager struct {
	client *secretsmanager.Client
	mu     sync.RWMutex
	cache  map[string]*cachedSecret
	ttl    time.Duration
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewAWSSecretsManager(ctx context.Context, region string) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSSecretsManager{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]*cachedSecret),
		ttl:    5 * time.Minute,
	}, nil
}

func (s *AWSSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if cached, ok := s.cache[name]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}

	var value string
	if result.SecretString != nil {
		value = *result.SecretString
	}

	s.mu.Lock()
	s.cache[name] = &cachedSecret{
		value:     value,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return value, nil
}

type InMemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewInMemorySecretStore() *InMemorySecretStore {
	return &InMemorySecretStore{secrets: make(map[string]string)}
}

func (s *InMemorySecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.secrets[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return value, nil
}

func (s *InMemorySecretStore) SetSecret(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
}
