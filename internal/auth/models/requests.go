package models

import (
	"strings"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/validation"
)

// LoginRequest carries credentials for /auth/login/. Validation is kept to
// shape checks so a malformed email and an unknown one fail the same way
// further down.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// RefreshTokenRequest is shared by /auth/refresh/ and /auth/logout/.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=4096"`
}

func (r *RefreshTokenRequest) Normalize() {
	if r == nil {
		return
	}
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
}

func (r *RefreshTokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	RoleID    string `json:"role_id" validate:"omitempty,uuid"`
	IsAdmin   bool   `json:"is_admin"`
}

func (r *CreateUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.RoleID = strings.TrimSpace(r.RoleID)
}

func (r *CreateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	RoleID    *string `json:"role_id" validate:"omitempty,uuid"`
	IsActive  *bool   `json:"is_active"`
	IsAdmin   *bool   `json:"is_admin"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (r *UpdateUserRequest) Normalize() {
	if r == nil {
		return
	}
	for _, s := range []*string{r.FirstName, r.LastName, r.RoleID} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

func (r *UpdateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
