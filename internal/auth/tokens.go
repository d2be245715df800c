package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// TokenStore keeps opaque bearer tokens in Redis, mapping each token to
// the principal it was issued for. Tokens expire server-side via TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token for the principal.
func (s *TokenStore) Issue(ctx context.Context, principalID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), principalID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token to its principal. Unknown and expired tokens
// return shared.ErrUnauthenticated.
func (s *TokenStore) Lookup(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, shared.ErrUnauthenticated
	}
	id, err := s.client.Get(ctx, s.key(token)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, shared.ErrUnauthenticated
		}
		return 0, err
	}
	return id, nil
}

// Revoke deletes the token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(token)).Err()
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func (s *TokenStore) key(token string) string {
	return "token:" + token
}
