package refreshtoken

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"clientiq/internal/auth/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

type tokenSet struct {
	byJTI map[string]*models.RefreshToken
}

// InMemoryRefreshTokenStore keeps refresh token rows per tenant schema.
type InMemoryRefreshTokenStore struct {
	mu    sync.Mutex
	parts *database.Partitions[tokenSet]
}

func New() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{parts: database.NewPartitions(func() *tokenSet {
		return &tokenSet{byJTI: make(map[string]*models.RefreshToken)}
	})}
}

func (s *InMemoryRefreshTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("refresh token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	if _, ok := set.byJTI[token.JTI]; ok {
		return fmt.Errorf("refresh token exists: %w", sentinel.ErrAlreadyUsed)
	}
	set.byJTI[token.JTI] = clone(token)
	return nil
}

func (s *InMemoryRefreshTokenStore) Find(ctx context.Context, jti string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	token, ok := set.byJTI[jti]
	if !ok {
		return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	return clone(token), nil
}

// Rotate revokes jti in favour of replacement and stores the replacement.
// Exactly one of two concurrent rotations of the same jti succeeds.
func (s *InMemoryRefreshTokenStore) Rotate(ctx context.Context, jti string, replacement *models.RefreshToken, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	current, ok := set.byJTI[jti]
	switch {
	case !ok:
		return fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	case current.IsRevoked():
		return fmt.Errorf("refresh token already rotated: %w", sentinel.ErrAlreadyUsed)
	case !now.Before(current.ExpiresAt):
		return fmt.Errorf("refresh token expired: %w", sentinel.ErrExpired)
	}
	current.Revoke(now, replacement.JTI)
	set.byJTI[replacement.JTI] = clone(replacement)
	return nil
}

// Revoke marks jti revoked. Unknown or already revoked tokens are not an error.
func (s *InMemoryRefreshTokenStore) Revoke(ctx context.Context, jti string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return false, err
	}
	token, ok := set.byJTI[jti]
	if !ok {
		return false, nil
	}
	return token.Revoke(now, ""), nil
}

// RevokeAllForUser revokes every active token of userID and returns their jtis.
func (s *InMemoryRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	var revoked []*models.RefreshToken
	for _, token := range set.byJTI {
		if token.UserID == userID && token.IsActive(now) {
			token.Revoke(now, "")
			revoked = append(revoked, clone(token))
		}
	}
	return revoked, nil
}

// ListActiveByUser returns the user's unrevoked, unexpired tokens, newest first.
func (s *InMemoryRefreshTokenStore) ListActiveByUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.RefreshToken
	for _, token := range set.byJTI {
		if token.UserID == userID && token.IsActive(now) {
			out = append(out, clone(token))
		}
	}
	slices.SortFunc(out, func(a, b *models.RefreshToken) int { return b.IssuedAt.Compare(a.IssuedAt) })
	return out, nil
}

// DeleteExpired removes tokens that expired before now.
func (s *InMemoryRefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for jti, token := range set.byJTI {
		if token.ExpiresAt.Before(now) {
			delete(set.byJTI, jti)
			deleted++
		}
	}
	return deleted, nil
}

func clone(t *models.RefreshToken) *models.RefreshToken {
	cp := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		cp.RevokedAt = &at
	}
	return &cp
}
