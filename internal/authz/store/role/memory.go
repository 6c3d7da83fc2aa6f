package role

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"clientiq/internal/authz/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

type roleSet struct {
	byID map[id.RoleID]*models.Role
}

// InMemory keeps roles per tenant schema.
type InMemory struct {
	mu    sync.RWMutex
	parts *database.Partitions[roleSet]
}

func NewInMemory() *InMemory {
	return &InMemory{parts: database.NewPartitions(func() *roleSet {
		return &roleSet{byID: make(map[id.RoleID]*models.Role)}
	})}
}

func (s *InMemory) Create(ctx context.Context, role *models.Role) error {
	if role == nil {
		return fmt.Errorf("role is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	for _, existing := range set.byID {
		if strings.EqualFold(existing.Name, role.Name) {
			return fmt.Errorf("role name taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	set.byID[role.ID] = clone(role)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, roleID id.RoleID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	role, ok := set.byID[roleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(role), nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range set.byID {
		if strings.EqualFold(role.Name, name) {
			return clone(role), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(ctx context.Context) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Role, 0, len(set.byID))
	for _, role := range set.byID {
		out = append(out, clone(role))
	}
	slices.SortFunc(out, func(a, b *models.Role) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemory) ReplacePermissions(ctx context.Context, roleID id.RoleID, codes []string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	role, ok := set.byID[roleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	role.Permissions = slices.Clone(codes)
	role.UpdatedAt = now
	return nil
}

func clone(r *models.Role) *models.Role {
	cp := *r
	cp.Permissions = slices.Clone(r.Permissions)
	return &cp
}
