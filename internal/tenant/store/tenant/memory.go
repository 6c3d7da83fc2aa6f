package tenant

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

// InMemory is the tenant directory for the in-memory wiring.
type InMemory struct {
	mu       sync.RWMutex
	tenants  map[id.TenantID]*models.Tenant
	schemas  map[string]id.TenantID
	mappings []*models.DomainMapping
}

// NewInMemory creates an empty in-memory directory.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]*models.Tenant),
		schemas: make(map[string]id.TenantID),
	}
}

func (s *InMemory) activeMapping(domain string) *models.DomainMapping {
	for _, m := range s.mappings {
		if m.Active && m.Domain == domain {
			return m
		}
	}
	return nil
}

// Create stores the tenant and its first domain mapping.
func (s *InMemory) Create(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return fmt.Errorf("tenant id taken: %w", sentinel.ErrAlreadyUsed)
	}
	if _, ok := s.schemas[t.Schema]; ok {
		return fmt.Errorf("schema name taken: %w", sentinel.ErrAlreadyUsed)
	}
	if s.activeMapping(t.Domain) != nil {
		return fmt.Errorf("domain taken: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *t
	s.tenants[t.ID] = &stored
	s.schemas[t.Schema] = t.ID
	s.mappings = append(s.mappings, &models.DomainMapping{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Domain:    t.Domain,
		Active:    true,
		CreatedAt: t.CreatedAt,
	})
	return nil
}

// FindByID returns a copy of the tenant.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *t
	return &out, nil
}

// FindByDomain follows the active mapping for domain.
func (s *InMemory) FindByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.activeMapping(domain)
	if m == nil {
		return nil, sentinel.ErrNotFound
	}
	out := *s.tenants[m.TenantID]
	return &out, nil
}

// List returns every tenant ordered by creation time.
func (s *InMemory) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Schema < out[j].Schema
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Deactivate marks the tenant inactive and retires its mapping.
func (s *InMemory) Deactivate(_ context.Context, tenantID id.TenantID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.Deactivate(now)
	s.retireMappings(tenantID, now)
	return nil
}

// ChangeDomain retires the current mapping and activates domain.
func (s *InMemory) ChangeDomain(_ context.Context, tenantID id.TenantID, domain string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !t.Active {
		return sentinel.ErrInvalidState
	}
	if m := s.activeMapping(domain); m != nil {
		if m.TenantID == tenantID {
			return nil
		}
		return fmt.Errorf("domain taken: %w", sentinel.ErrAlreadyUsed)
	}
	s.retireMappings(tenantID, now)
	s.mappings = append(s.mappings, &models.DomainMapping{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Domain:    domain,
		Active:    true,
		CreatedAt: now,
	})
	t.Domain = domain
	return nil
}

func (s *InMemory) retireMappings(tenantID id.TenantID, now time.Time) {
	for _, m := range s.mappings {
		if m.TenantID == tenantID && m.Active {
			m.Active = false
			at := now
			m.DeactivatedAt = &at
		}
	}
}

// Delete drops the tenant, freeing its schema name and subdomain.
func (s *InMemory) Delete(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tenants, tenantID)
	delete(s.schemas, t.Schema)
	s.mappings = slices.DeleteFunc(s.mappings, func(m *models.DomainMapping) bool {
		return m.TenantID == tenantID
	})
	return nil
}

// Mappings returns the mapping history for a tenant, oldest first.
func (s *InMemory) Mappings(_ context.Context, tenantID id.TenantID) ([]*models.DomainMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DomainMapping
	for _, m := range s.mappings {
		if m.TenantID == tenantID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
