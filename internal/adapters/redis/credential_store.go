package redis

// Package redis provides the Redis-backed credential store adapter.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
)

// CredentialStore persists the token pair as a single JSON document under
// one key. Writing one document keeps the pair atomic: a reader observes
// both tokens or neither.
type CredentialStore struct {
	client redis.UniversalClient
	key    string
}

// NewCredentialStore creates a Redis-backed credential store with the
// default key.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return &CredentialStore{
		client: client,
		key:    "proserve:credentials",
	}
}

// NewCredentialStoreWithKey creates a Redis credential store with a custom
// storage key.
func NewCredentialStoreWithKey(client redis.UniversalClient, key string) *CredentialStore {
	return &CredentialStore{
		client: client,
		key:    key,
	}
}

func (s *CredentialStore) Get(ctx context.Context) (domainauth.TokenPair, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.TokenPair{}, domainauth.ErrNoCredentials
		}
		return domainauth.TokenPair{}, fmt.Errorf("redis get: %w", err)
	}

	var pair domainauth.TokenPair
	if unmarshalErr := json.Unmarshal([]byte(data), &pair); unmarshalErr != nil {
		return domainauth.TokenPair{}, fmt.Errorf("unmarshal credentials: %w", unmarshalErr)
	}

	// Never surface a half-present pair.
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domainauth.TokenPair{}, domainauth.ErrNoCredentials
	}

	return pair, nil
}

func (s *CredentialStore) Set(ctx context.Context, pair domainauth.TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("both tokens are required")
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
