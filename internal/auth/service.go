package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Service wraps authentication business rules: credential verification
// on login and bearer-token resolution on every request.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates email/password credentials and issues a bearer token.
// Every failure collapses into shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Resolve turns a bearer credential into a principal id. A missing,
// malformed, or unknown token all yield shared.ErrUnauthenticated; the
// caller cannot tell the cases apart. Resolve has no side effects.
func (s *Service) Resolve(ctx context.Context, bearer string) (int64, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return 0, shared.ErrUnauthenticated
	}
	id, err := s.tokens.Lookup(ctx, bearer)
	if err != nil {
		return 0, shared.ErrUnauthenticated
	}
	return id, nil
}

// RecordToken persists token metadata in postgres for auditing.
func (s *Service) RecordToken(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.RecordToken(ctx, token, userID, expiresAt, ip, ua)
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, bearer string) error {
	if bearer == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, bearer); err != nil {
		return err
	}
	return s.repo.DeleteToken(ctx, bearer)
}

// TokenTTL exposes the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
