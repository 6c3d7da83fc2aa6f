package handler

import (
	"time"

	"clientiq/internal/tenant/models"
)

type TenantResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Schema        string     `json:"schema_name"`
	Domain        string     `json:"domain,omitempty"`
	Active        bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func toTenantResponse(t *models.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:            t.ID.String(),
		Name:          t.Name,
		Schema:        t.Schema,
		Domain:        t.Domain,
		Active:        t.Active,
		CreatedAt:     t.CreatedAt,
		DeactivatedAt: t.DeactivatedAt,
	}
}

type TenantListResponse struct {
	Tenants []*TenantResponse `json:"tenants"`
	Count   int               `json:"count"`
}
