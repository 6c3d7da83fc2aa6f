package testutil

import (
	"time"

	"github.com/google/uuid"

	authmodels "clientiq/internal/auth/models"
	crmmodels "clientiq/internal/crm/models"
	tenantmodels "clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	UserID1   id.UserID
	UserID2   id.UserID
	TenantID1 id.TenantID
	TenantID2 id.TenantID
}{
	UserID1:   id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:   id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	TenantID1: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	TenantID2: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

// NewTenantBuilder returns an active tenant named after its schema.
func NewTenantBuilder(schema string) *TenantBuilder {
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:        id.TenantID(uuid.New()),
			Name:      schema,
			Schema:    schema,
			Domain:    schema,
			Active:    true,
			CreatedAt: time.Now(),
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithDomain(domain string) *TenantBuilder {
	b.tenant.Domain = domain
	return b
}

func (b *TenantBuilder) Inactive() *TenantBuilder {
	now := time.Now()
	b.tenant.Active = false
	b.tenant.DeactivatedAt = &now
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}

// Scope is the tenancy scope of the built tenant.
func (b *TenantBuilder) Scope() tenancy.Scope {
	return b.tenant.Scope()
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *authmodels.User
}

// NewUserBuilder creates an active, non-admin user. The hash is a placeholder;
// tests that log in should create users through the auth service.
func NewUserBuilder() *UserBuilder {
	now := time.Now()
	return &UserBuilder{
		user: &authmodels.User{
			ID:           id.UserID(uuid.New()),
			Email:        "test@example.com",
			PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
			FirstName:    "Test",
			LastName:     "User",
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithRole(roleID id.RoleID) *UserBuilder {
	b.user.RoleID = roleID
	return b
}

func (b *UserBuilder) Admin() *UserBuilder {
	b.user.Admin = true
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.user.Active = false
	return b
}

func (b *UserBuilder) Build() *authmodels.User {
	return b.user
}

// NewTestCompany returns a valid company owned by ownerID.
func NewTestCompany(name string, ownerID id.UserID) *crmmodels.Company {
	now := time.Now()
	return &crmmodels.Company{
		ID:        id.NewCompanyID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestContact returns a valid contact, optionally attached to a company.
func NewTestContact(firstName string, companyID id.CompanyID, ownerID id.UserID) *crmmodels.Contact {
	now := time.Now()
	return &crmmodels.Contact{
		ID:        id.NewContactID(),
		FirstName: firstName,
		LastName:  "Test",
		Email:     firstName + "@example.com",
		CompanyID: companyID,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
