package handler

import (
	"strings"

	"clientiq/internal/tenant/models"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/validation"
)

// HTTP Request DTOs - contain JSON tags for API serialization.

type CreateTenantRequest struct {
	Name           string `json:"name" validate:"notblank,max=100"`
	Schema         string `json:"schema_name" validate:"schemaname"`
	Domain         string `json:"domain" validate:"subdomain"`
	AdminEmail     string `json:"admin_email" validate:"omitempty,email,max=254"`
	AdminPassword  string `json:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8,max=128"`
	AdminFirstName string `json:"admin_first_name" validate:"max=100"`
	AdminLastName  string `json:"admin_last_name" validate:"max=100"`
}

func (r *CreateTenantRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Schema = strings.ToLower(strings.TrimSpace(r.Schema))
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
	r.AdminEmail = strings.ToLower(strings.TrimSpace(r.AdminEmail))
	r.AdminFirstName = strings.TrimSpace(r.AdminFirstName)
	r.AdminLastName = strings.TrimSpace(r.AdminLastName)
}

func (r *CreateTenantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// InitialAdmin returns the first administrator, or nil when none was requested.
func (r *CreateTenantRequest) InitialAdmin() *models.InitialAdmin {
	if r.AdminEmail == "" {
		return nil
	}
	return &models.InitialAdmin{
		Email:     r.AdminEmail,
		Password:  r.AdminPassword,
		FirstName: r.AdminFirstName,
		LastName:  r.AdminLastName,
	}
}

type ChangeDomainRequest struct {
	Domain string `json:"domain" validate:"subdomain"`
}

func (r *ChangeDomainRequest) Normalize() {
	if r == nil {
		return
	}
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
}

func (r *ChangeDomainRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
