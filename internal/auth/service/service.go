package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clientiq/internal/auth/models"
	"clientiq/internal/auth/store/revocation"
	authzmodels "clientiq/internal/authz/models"
	jwttoken "clientiq/internal/jwt_token"
	"clientiq/internal/platform/database"
	"clientiq/internal/platform/metrics"
	"clientiq/internal/platform/tracer"
	id "clientiq/pkg/domain"
)

// UserStore persists users of the bound tenant schema.
// Error contract: Find methods return sentinel.ErrNotFound, Create returns
// sentinel.ErrAlreadyUsed on a duplicate email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
}

// RefreshTokenStore persists refresh token rows of the bound tenant schema.
// Rotate returns sentinel.ErrAlreadyUsed when the token was already
// revoked and sentinel.ErrExpired when it has lapsed.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, jti string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, jti string, replacement *models.RefreshToken, now time.Time) error
	Revoke(ctx context.Context, jti string, now time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error)
	ListActiveByUser(ctx context.Context, userID id.UserID, now time.Time) ([]*models.RefreshToken, error)
}

// TokenIssuer signs and parses the two token kinds.
type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*jwttoken.IssuedToken, error)
	GenerateRefreshToken(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*jwttoken.IssuedToken, error)
	ValidateRefreshToken(tokenString string) (*jwttoken.Claims, error)
	ParseTokenSkipClaimsValidation(tokenString string) (*jwttoken.Claims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// RoleLookup validates role assignments. It returns a not_found domain error
// for unknown roles.
type RoleLookup interface {
	GetRole(ctx context.Context, roleID id.RoleID) (*authzmodels.Role, error)
}

// Service authenticates users of the tenant bound to the context and
// manages their accounts. Every call expects a tenant scope; stores reach
// the schema through it.
type Service struct {
	users      UserStore
	refresh    RefreshTokenStore
	blacklist  revocation.Blacklist
	tokens     TokenIssuer
	roles      RoleLookup
	tx         database.TxRunner
	bcryptCost int
	dummyHash  []byte
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     *tracer.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t *tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithBcryptCost sets the cost for new password hashes. Values outside
// bcrypt's accepted range fall back to bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func New(
	users UserStore,
	refresh RefreshTokenStore,
	blacklist revocation.Blacklist,
	tokens TokenIssuer,
	roles RoleLookup,
	tx database.TxRunner,
	opts ...Option,
) (*Service, error) {
	svc := &Service{
		users:      users,
		refresh:    refresh,
		blacklist:  blacklist,
		tokens:     tokens,
		roles:      roles,
		tx:         tx,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	// Compared against when the user is unknown so a miss costs the same
	// as a wrong password.
	hash, err := bcrypt.GenerateFromPassword([]byte("clientiq-timing-equalizer"), svc.bcryptCost)
	if err != nil {
		return nil, err
	}
	svc.dummyHash = hash
	return svc, nil
}
