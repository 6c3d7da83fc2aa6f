// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "clientiq/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	TenantID      uuid.UUID
	UserID        uuid.UUID
	RoleID        uuid.UUID
	ContactID     uuid.UUID
	CompanyID     uuid.UUID
	OpportunityID uuid.UUID
	ActivityID    uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs, token claims).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseRoleID(s string) (RoleID, error) {
	id, err := parseUUID(s, "role ID")
	return RoleID(id), err
}

func ParseContactID(s string) (ContactID, error) {
	id, err := parseUUID(s, "contact ID")
	return ContactID(id), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	id, err := parseUUID(s, "company ID")
	return CompanyID(id), err
}

func ParseOpportunityID(s string) (OpportunityID, error) {
	id, err := parseUUID(s, "opportunity ID")
	return OpportunityID(id), err
}

func ParseActivityID(s string) (ActivityID, error) {
	id, err := parseUUID(s, "activity ID")
	return ActivityID(id), err
}

// Constructors for freshly created aggregates.

func NewTenantID() TenantID           { return TenantID(uuid.New()) }
func NewUserID() UserID               { return UserID(uuid.New()) }
func NewRoleID() RoleID               { return RoleID(uuid.New()) }
func NewContactID() ContactID         { return ContactID(uuid.New()) }
func NewCompanyID() CompanyID         { return CompanyID(uuid.New()) }
func NewOpportunityID() OpportunityID { return OpportunityID(uuid.New()) }
func NewActivityID() ActivityID       { return ActivityID(uuid.New()) }

// String methods - for logging, JSON and SQL parameters.

func (id TenantID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id RoleID) String() string        { return uuid.UUID(id).String() }
func (id ContactID) String() string     { return uuid.UUID(id).String() }
func (id CompanyID) String() string     { return uuid.UUID(id).String() }
func (id OpportunityID) String() string { return uuid.UUID(id).String() }
func (id ActivityID) String() string    { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RoleID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ContactID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OpportunityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActivityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs never identify a row,
// so they are rejected at the boundary.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
