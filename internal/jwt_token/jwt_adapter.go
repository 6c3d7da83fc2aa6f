package jwttoken

import (
	"clientiq/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *auth.JWTClaims {
	return &auth.JWTClaims{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		JTI:      claims.ID, // JWT ID for revocation tracking
	}
}

// JWTServiceAdapter exposes access-token validation in the shape RequireAuth
// consumes.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateAccessToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := a.service.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
