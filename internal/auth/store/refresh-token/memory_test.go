package refreshtoken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clientiq/internal/auth/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/tenancy"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type InMemoryRefreshTokenStoreSuite struct {
	suite.Suite
	store *InMemoryRefreshTokenStore
	ctx   context.Context
	user  id.UserID
}

func TestInMemoryRefreshTokenStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRefreshTokenStoreSuite))
}

func scoped(schema string) context.Context {
	return tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: schema, Domain: schema})
}

func (s *InMemoryRefreshTokenStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = scoped("acme")
	s.user = id.NewUserID()
}

func (s *InMemoryRefreshTokenStoreSuite) token(issued time.Time, ttl time.Duration) *models.RefreshToken {
	return &models.RefreshToken{
		JTI:       uuid.NewString(),
		UserID:    s.user,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func (s *InMemoryRefreshTokenStoreSuite) TestCreateAndFind() {
	tok := s.token(now, time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, tok))

	found, err := s.store.Find(s.ctx, tok.JTI)
	s.Require().NoError(err)
	s.Equal(tok.UserID, found.UserID)

	s.ErrorIs(s.store.Create(s.ctx, tok), sentinel.ErrAlreadyUsed)

	_, err = s.store.Find(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryRefreshTokenStoreSuite) TestRotate() {
	old := s.token(now, time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, old))
	next := s.token(now.Add(time.Minute), time.Hour)

	s.Require().NoError(s.store.Rotate(s.ctx, old.JTI, next, now.Add(time.Minute)))

	rotated, err := s.store.Find(s.ctx, old.JTI)
	s.Require().NoError(err)
	s.True(rotated.IsRevoked())
	s.Equal(next.JTI, rotated.ReplacedBy)

	s.Run("replay is rejected", func() {
		err := s.store.Rotate(s.ctx, old.JTI, s.token(now, time.Hour), now.Add(2*time.Minute))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("expired is rejected", func() {
		expired := s.token(now.Add(-2*time.Hour), time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, expired))
		err := s.store.Rotate(s.ctx, expired.JTI, s.token(now, time.Hour), now)
		s.ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("unknown is not found", func() {
		err := s.store.Rotate(s.ctx, "missing", s.token(now, time.Hour), now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryRefreshTokenStoreSuite) TestConcurrentRotateHasOneWinner() {
	old := s.token(now, time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, old))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Rotate(s.ctx, old.JTI, s.token(now, time.Hour), now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)
}

func (s *InMemoryRefreshTokenStoreSuite) TestRevokeIsIdempotent() {
	tok := s.token(now, time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, tok))

	revoked, err := s.store.Revoke(s.ctx, tok.JTI, now)
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.store.Revoke(s.ctx, tok.JTI, now)
	s.Require().NoError(err)
	s.False(revoked)

	revoked, err = s.store.Revoke(s.ctx, "missing", now)
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *InMemoryRefreshTokenStoreSuite) TestListAndRevokeAllForUser() {
	first := s.token(now, time.Hour)
	second := s.token(now.Add(time.Minute), time.Hour)
	expired := s.token(now.Add(-2*time.Hour), time.Hour)
	other := s.token(now, time.Hour)
	other.UserID = id.NewUserID()
	for _, tok := range []*models.RefreshToken{first, second, expired, other} {
		s.Require().NoError(s.store.Create(s.ctx, tok))
	}

	active, err := s.store.ListActiveByUser(s.ctx, s.user, now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(second.JTI, active[0].JTI)

	revoked, err := s.store.RevokeAllForUser(s.ctx, s.user, now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Len(revoked, 2)

	active, err = s.store.ListActiveByUser(s.ctx, s.user, now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Empty(active)

	stillActive, err := s.store.Find(s.ctx, other.JTI)
	s.Require().NoError(err)
	s.False(stillActive.IsRevoked())
}

func (s *InMemoryRefreshTokenStoreSuite) TestDeleteExpired() {
	s.Require().NoError(s.store.Create(s.ctx, s.token(now.Add(-2*time.Hour), time.Hour)))
	s.Require().NoError(s.store.Create(s.ctx, s.token(now, time.Hour)))

	deleted, err := s.store.DeleteExpired(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(1, deleted)
}

func (s *InMemoryRefreshTokenStoreSuite) TestTenantsAreIsolated() {
	tok := s.token(now, time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, tok))

	_, err := s.store.Find(scoped("widgets"), tok.JTI)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
