package models

import (
	"strings"
	"time"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
)

// This file contains pure domain models for authentication: entities
// that should not depend on transport or HTTP-specific concerns.

// User is a tenant user. It lives in the tenant schema, so the same email in
// two tenants is two unrelated users.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       id.RoleID
	Active       bool
	Admin        bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser builds an active user. Callers hash the password first.
func NewUser(userID id.UserID, email, passwordHash, firstName, lastName string, roleID id.RoleID, admin bool, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return &User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		RoleID:       roleID,
		Active:       true,
		Admin:        admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail is applied on write and on lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RefreshToken is the persisted side of a refresh JWT, keyed by its jti.
// A revoked row is never honoured again; ReplacedBy links a rotated token to
// its successor.
type RefreshToken struct {
	JTI        string
	UserID     id.UserID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
	UserAgent  string
	ClientIP   string
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token may still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && now.Before(t.ExpiresAt)
}

// Revoke marks the token revoked; it returns false when it already was.
func (t *RefreshToken) Revoke(now time.Time, replacedBy string) bool {
	if t.IsRevoked() {
		return false
	}
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
	return true
}

// LoginResult is what a successful login or refresh hands back.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *User
}
