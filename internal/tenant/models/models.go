package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/tenancy"
	"clientiq/pkg/validation"
)

// MaxNameLength bounds the tenant display name.
const MaxNameLength = 100

// Tenant is a customer account with its own Postgres schema. Domain is the
// currently active subdomain, empty once the tenant is deactivated.
type Tenant struct {
	ID            id.TenantID
	Name          string
	Schema        string
	Domain        string
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// NewTenant validates the directory invariants for a new tenant.
func NewTenant(tenantID id.TenantID, name, schema, domain string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	schema = strings.ToLower(strings.TrimSpace(schema))
	domain = strings.ToLower(strings.TrimSpace(domain))

	switch {
	case name == "":
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	case len(name) > MaxNameLength:
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 100 characters or less")
	case !validation.IsSchemaName(schema):
		return nil, dErrors.New(dErrors.CodeValidation, "schema name is not a valid tenant schema")
	case !validation.IsSubdomain(domain):
		return nil, dErrors.New(dErrors.CodeValidation, "domain must be a single DNS label")
	}

	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Schema:    schema,
		Domain:    domain,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// Deactivate soft-deletes the tenant. It reports false when the tenant was
// already inactive. The schema itself is never dropped.
func (t *Tenant) Deactivate(now time.Time) bool {
	if !t.Active {
		return false
	}
	t.Active = false
	t.Domain = ""
	t.DeactivatedAt = &now
	return true
}

// Scope is the request binding for this tenant.
func (t *Tenant) Scope() tenancy.Scope {
	return tenancy.Scope{TenantID: t.ID, Schema: t.Schema, Domain: t.Domain}
}

// DomainMapping maps one subdomain to a tenant. History rows stay inactive.
type DomainMapping struct {
	ID            uuid.UUID
	TenantID      id.TenantID
	Domain        string
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// InitialAdmin is the first user created inside a freshly provisioned schema.
type InitialAdmin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
