// Package models holds the tenant RBAC model: the fixed permission catalog
// and the roles that group permission codes.
package models

import (
	"slices"
	"strings"
	"time"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
)

// CRM resources guarded by <resource>.<action> permission codes.
const (
	ResourceContacts      = "contacts"
	ResourceCompanies     = "companies"
	ResourceOpportunities = "opportunities"
	ResourceActivities    = "activities"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Administrative permissions outside the CRM resources.
const (
	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"
	PermRolesManage = "roles.manage"
)

// Names of the roles seeded into every new tenant.
const (
	RoleAdministrator = "Administrator"
	RoleSalesManager  = "Sales Manager"
	RoleSalesRep      = "Sales Rep"
	RoleReadOnly      = "Read Only"
)

var (
	crmResources = []string{ResourceContacts, ResourceCompanies, ResourceOpportunities, ResourceActivities}
	crmActions   = []string{ActionView, ActionCreate, ActionUpdate, ActionDelete}
)

// PermissionCode joins a resource and an action.
func PermissionCode(resource, action string) string {
	return resource + "." + action
}

// Permission is one entry of the catalog.
type Permission struct {
	Code        string
	Resource    string
	Action      string
	Description string
}

var catalog = buildCatalog()

func buildCatalog() []Permission {
	var out []Permission
	for _, resource := range crmResources {
		for _, action := range crmActions {
			out = append(out, Permission{
				Code:        PermissionCode(resource, action),
				Resource:    resource,
				Action:      action,
				Description: strings.ToUpper(action[:1]) + action[1:] + " " + resource,
			})
		}
	}
	return append(out,
		Permission{Code: PermUsersView, Resource: "users", Action: ActionView, Description: "View users"},
		Permission{Code: PermUsersManage, Resource: "users", Action: "manage", Description: "Create and update users"},
		Permission{Code: PermRolesManage, Resource: "roles", Action: "manage", Description: "Create roles and assign permissions"},
	)
}

// Catalog returns every permission code the system knows, in a stable order.
func Catalog() []Permission {
	return slices.Clone(catalog)
}

func IsKnownPermission(code string) bool {
	return slices.ContainsFunc(catalog, func(p Permission) bool { return p.Code == code })
}

// Role groups permission codes. A user holds exactly one role.
type Role struct {
	ID          id.RoleID
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRole validates and normalizes a role.
func NewRole(roleID id.RoleID, name, description string, permissions []string, now time.Time) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, dErrors.New(dErrors.CodeValidation, "role name must be 1-100 characters")
	}
	codes, err := normalizePermissions(permissions)
	if err != nil {
		return nil, err
	}
	return &Role{
		ID:          roleID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: codes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Has reports whether the role grants code.
func (r *Role) Has(code string) bool {
	return r != nil && slices.Contains(r.Permissions, code)
}

// SetPermissions replaces the role's permission set.
func (r *Role) SetPermissions(permissions []string, now time.Time) error {
	codes, err := normalizePermissions(permissions)
	if err != nil {
		return err
	}
	r.Permissions = codes
	r.UpdatedAt = now
	return nil
}

func normalizePermissions(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, code := range in {
		code = strings.ToLower(strings.TrimSpace(code))
		if !IsKnownPermission(code) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown permission: "+code)
		}
		out = append(out, code)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// DefaultRole describes a role seeded at tenant creation.
type DefaultRole struct {
	Name        string
	Description string
	Permissions []string
}

// DefaultRoles returns the roles every tenant starts with.
func DefaultRoles() []DefaultRole {
	var all, crmAll, views, rep []string
	for _, p := range catalog {
		all = append(all, p.Code)
		if p.Action == ActionView {
			views = append(views, p.Code)
		}
		if slices.Contains(crmResources, p.Resource) {
			crmAll = append(crmAll, p.Code)
			if p.Action != ActionDelete {
				rep = append(rep, p.Code)
			}
		}
	}
	rep = append(rep, PermissionCode(ResourceActivities, ActionDelete))

	return []DefaultRole{
		{Name: RoleAdministrator, Description: "Full access", Permissions: all},
		{Name: RoleSalesManager, Description: "Manages the sales team", Permissions: append(slices.Clone(crmAll), PermUsersView)},
		{Name: RoleSalesRep, Description: "Works contacts and deals", Permissions: rep},
		{Name: RoleReadOnly, Description: "View only", Permissions: views},
	}
}
