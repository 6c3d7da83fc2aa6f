package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/requestcontext"
)

var (
	userID   = id.UserID(uuid.New())
	tenantID = id.TenantID(uuid.New())
	issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newService(now time.Time) *JWTService {
	return NewJWTService("test-signing-key", "https://auth.clientiq.test", 15*time.Minute, 7*24*time.Hour).
		WithClock(func() time.Time { return now })
}

func pinned() context.Context {
	return requestcontext.WithTime(context.Background(), issuedAt)
}

func Test_GenerateAccessToken(t *testing.T) {
	svc := newService(issuedAt.Add(time.Minute))

	issued, err := svc.GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)
	assert.Equal(t, issuedAt.Add(15*time.Minute), issued.ExpiresAt)

	claims, err := svc.ValidateAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Equal(t, "https://auth.clientiq.test/tenants/"+tenantID.String(), claims.Issuer)
}

func Test_GenerateRefreshToken(t *testing.T) {
	svc := newService(issuedAt.Add(24 * time.Hour))

	first, err := svc.GenerateRefreshToken(pinned(), userID, tenantID)
	require.NoError(t, err)
	second, err := svc.GenerateRefreshToken(pinned(), userID, tenantID)
	require.NoError(t, err)
	assert.NotEqual(t, first.JTI, second.JTI)

	claims, err := svc.ValidateRefreshToken(first.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, issuedAt.Add(7*24*time.Hour), first.ExpiresAt)
}

func Test_GenerateRejectsMissingIdentity(t *testing.T) {
	svc := newService(issuedAt)

	_, err := svc.GenerateAccessToken(pinned(), id.UserID{}, tenantID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.GenerateRefreshToken(pinned(), userID, id.TenantID{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_Expired(t *testing.T) {
	issued, err := newService(issuedAt).GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)

	_, err = newService(issuedAt.Add(16 * time.Minute)).ValidateAccessToken(issued.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	svc := newService(issuedAt)
	_, err := svc.ValidateAccessToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	issued, err := newService(issuedAt).GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)

	other := NewJWTService("wrong-key", "https://auth.clientiq.test", time.Minute, time.Hour).
		WithClock(func() time.Time { return issuedAt })
	_, err = other.ValidateAccessToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
}

func Test_ValidateToken_TypeConfusion(t *testing.T) {
	svc := newService(issuedAt.Add(time.Minute))

	refresh, err := svc.GenerateRefreshToken(pinned(), userID, tenantID)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))

	access, err := svc.GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	svc := newService(issuedAt.Add(time.Minute))
	claims := Claims{
		UserID:    userID.String(),
		TenantID:  tenantID.String(),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    svc.BuildIssuer(tenantID),
			ID:        uuid.NewString(),
		},
	}

	cases := []struct {
		name       string
		signMethod jwt.SigningMethod
		signKey    any
	}{
		{name: "hs512 header rejected", signMethod: jwt.SigningMethodHS512, signKey: []byte("test-signing-key")},
		{name: "alg none rejected", signMethod: jwt.SigningMethodNone, signKey: jwt.UnsafeAllowNoneSignatureType},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := jwt.NewWithClaims(tt.signMethod, claims).SignedString(tt.signKey)
			require.NoError(t, err)

			_, err = svc.ValidateAccessToken(tokenString)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
		})
	}
}

func Test_ValidateToken_IssuerMustMatchTenantClaim(t *testing.T) {
	svc := newService(issuedAt.Add(time.Minute))
	forged := Claims{
		UserID:    userID.String(),
		TenantID:  uuid.NewString(),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    svc.BuildIssuer(tenantID),
			ID:        uuid.NewString(),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(tokenString)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
}

func Test_ValidateToken_RejectsOtherIssuerBase(t *testing.T) {
	other := NewJWTService("test-signing-key", "https://other.issuer.com", time.Minute, time.Hour)
	issued, err := other.GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)

	_, err = newService(issuedAt).ValidateAccessToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
}

func Test_ParseTokenSkipClaimsValidation(t *testing.T) {
	svc := newService(issuedAt.Add(30 * 24 * time.Hour))

	t.Run("expired refresh token still parses", func(t *testing.T) {
		issued, err := svc.GenerateRefreshToken(pinned(), userID, tenantID)
		require.NoError(t, err)

		_, err = svc.ValidateRefreshToken(issued.Token)
		require.True(t, dErrors.HasCode(err, dErrors.CodeTokenExpired))

		claims, err := svc.ParseTokenSkipClaimsValidation(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, issued.JTI, claims.ID)
		assert.Equal(t, userID.String(), claims.UserID)
	})

	t.Run("error cases", func(t *testing.T) {
		access, err := svc.GenerateAccessToken(pinned(), userID, tenantID)
		require.NoError(t, err)
		refresh, err := svc.GenerateRefreshToken(pinned(), userID, tenantID)
		require.NoError(t, err)
		wrongKey := NewJWTService("wrong-key", "https://auth.clientiq.test", time.Minute, time.Hour)

		tests := []struct {
			name    string
			service *JWTService
			token   string
		}{
			{name: "empty token string", service: svc, token: ""},
			{name: "invalid token string", service: svc, token: "invalid-token"},
			{name: "access token", service: svc, token: access.Token},
			{name: "invalid signature", service: wrongKey, token: refresh.Token},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.service.ParseTokenSkipClaimsValidation(tt.token)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenInvalid))
			})
		}
	})
}

func Test_ExtractTenantFromIssuer(t *testing.T) {
	svc := NewJWTService("key", "https://auth.example.com/", time.Minute, time.Hour)

	t.Run("extracts tenant from valid issuer", func(t *testing.T) {
		got, err := svc.ExtractTenantFromIssuer("https://auth.example.com/tenants/550e8400-e29b-41d4-a716-446655440000")
		require.NoError(t, err)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", got.String())
	})

	for _, issuer := range []string{
		"https://auth.example.com",
		"https://other.domain.com/tenants/550e8400-e29b-41d4-a716-446655440000",
		"https://auth.example.com/tenants/xyz",
		"not-a-url",
	} {
		t.Run(issuer, func(t *testing.T) {
			_, err := svc.ExtractTenantFromIssuer(issuer)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid issuer format")
		})
	}
}

func Test_Adapter(t *testing.T) {
	svc := newService(issuedAt.Add(time.Minute))
	issued, err := svc.GenerateAccessToken(pinned(), userID, tenantID)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateAccessToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, issued.JTI, claims.JTI)
}
