package models

import "time"

// This file contains transport-layer response models for JSON output.
// These are shaped for API responses and should avoid domain behavior.

type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	RoleID      string     `json:"role_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToUserResponse(u *User) *UserResponse {
	out := &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		IsActive:    u.Active,
		IsAdmin:     u.Admin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if !u.RoleID.IsNil() {
		out.RoleID = u.RoleID.String()
	}
	return out
}

// LoginResponse is the payload of /auth/login/.
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"` // seconds until access token expiry
	User         *UserResponse `json:"user"`
}

// RefreshResponse is the payload of /auth/refresh/. The rotated refresh
// token replaces the one sent.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SessionSummary describes one active refresh token of the caller.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Device    string    `json:"device"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
}

type LogoutAllResult struct {
	RevokedCount int `json:"revoked_count"`
}
