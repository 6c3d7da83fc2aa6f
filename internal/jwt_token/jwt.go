package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/requestcontext"
)

// TokenType discriminates access from refresh tokens so one can never be
// replayed as the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are shared by access and refresh tokens. Both carry the tenant the
// token was issued under; the issuer repeats it.
type Claims struct {
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token plus the values callers persist or return.
type IssuedToken struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey      []byte
	issuerBaseURL   string // Base URL for per-tenant issuers
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

func NewJWTService(signingKey string, issuerBaseURL string, accessTokenTTL, refreshTokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey:      []byte(signingKey),
		issuerBaseURL:   strings.TrimRight(issuerBaseURL, "/"),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		now:             time.Now,
	}
}

// WithClock replaces the clock used for expiry checks.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

func (s *JWTService) AccessTokenTTL() time.Duration  { return s.accessTokenTTL }
func (s *JWTService) RefreshTokenTTL() time.Duration { return s.refreshTokenTTL }

// BuildIssuer constructs a per-tenant issuer URL.
// Format: {baseURL}/tenants/{tenantID}
func (s *JWTService) BuildIssuer(tenantID id.TenantID) string {
	return fmt.Sprintf("%s/tenants/%s", s.issuerBaseURL, tenantID.String())
}

// ExtractTenantFromIssuer parses a tenant ID from a per-tenant issuer URL.
func (s *JWTService) ExtractTenantFromIssuer(issuer string) (id.TenantID, error) {
	raw, ok := strings.CutPrefix(issuer, s.issuerBaseURL+"/tenants/")
	if !ok || raw == "" {
		return id.TenantID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid issuer format")
	}
	tenantID, err := id.ParseTenantID(raw)
	if err != nil {
		return id.TenantID{}, dErrors.New(dErrors.CodeTokenInvalid, "invalid issuer format")
	}
	return tenantID, nil
}

func (s *JWTService) GenerateAccessToken(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*IssuedToken, error) {
	return s.generate(ctx, userID, tenantID, TokenTypeAccess, s.accessTokenTTL)
}

// GenerateRefreshToken issues a signed refresh token. Its jti keys the
// rotation row and the blacklist entry.
func (s *JWTService) GenerateRefreshToken(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*IssuedToken, error) {
	return s.generate(ctx, userID, tenantID, TokenTypeRefresh, s.refreshTokenTTL)
}

func (s *JWTService) generate(ctx context.Context, userID id.UserID, tenantID id.TenantID, typ TokenType, ttl time.Duration) (*IssuedToken, error) {
	if userID.IsNil() || tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user and tenant are required")
	}

	now := requestcontext.Now(ctx)
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		TenantID:  tenantID.String(),
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.BuildIssuer(tenantID),
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &IssuedToken{
		Token:     signed,
		JTI:       jti,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: expiresAt.Truncate(time.Second),
	}, nil
}

// ValidateAccessToken verifies signature, algorithm, expiry, issuer and type.
// Expired tokens yield token_expired; everything else token_invalid.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, want TokenType) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}
	if err := s.checkClaims(claims, want); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseTokenSkipClaimsValidation parses a refresh token WITHOUT validating
// expiration or the other registered time claims.
//
// It STILL validates the signature, the HS256 algorithm, the issuer and the
// token type. Use it only where an expired token must still identify its jti,
// such as logout.
func (s *JWTService) ParseTokenSkipClaimsValidation(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "empty token")
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}
	if err := s.checkClaims(claims, TokenTypeRefresh); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *JWTService) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenUnverifiable
	}
	return s.signingKey, nil
}

func (s *JWTService) checkClaims(claims *Claims, want TokenType) error {
	if claims.TokenType != want {
		return dErrors.New(dErrors.CodeTokenInvalid, "unexpected token type")
	}
	if claims.ID == "" {
		return dErrors.New(dErrors.CodeTokenInvalid, "missing token id")
	}
	issuerTenant, err := s.ExtractTenantFromIssuer(claims.Issuer)
	if err != nil {
		return err
	}
	if issuerTenant.String() != claims.TenantID {
		return dErrors.New(dErrors.CodeTokenInvalid, "issuer does not match tenant claim")
	}
	return nil
}
