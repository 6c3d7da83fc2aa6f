package user

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"clientiq/internal/auth/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the requested user does not exist
// - Return sentinel.ErrAlreadyUsed when the email is taken in the tenant
// - Return tenancy.ErrUnbound when ctx carries no tenant

type userSet struct {
	byID map[id.UserID]*models.User
}

// InMemoryUserStore keeps users per tenant schema.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	parts *database.Partitions[userSet]
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{parts: database.NewPartitions(func() *userSet {
		return &userSet{byID: make(map[id.UserID]*models.User)}
	})}
}

func (s *InMemoryUserStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	for _, existing := range set.byID {
		if existing.Email == user.Email {
			return fmt.Errorf("email taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	set.byID[user.ID] = clone(user)
	return nil
}

func (s *InMemoryUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	if user, ok := set.byID[userID]; ok {
		return clone(user), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range set.byID {
		if user.Email == email {
			return clone(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// List returns users ordered by email.
func (s *InMemoryUserStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]*models.User, 0, len(set.byID))
	for _, user := range set.byID {
		all = append(all, clone(user))
	}
	slices.SortFunc(all, func(a, b *models.User) int { return strings.Compare(a.Email, b.Email) })
	return page(all, limit, offset), nil
}

// Update overwrites the mutable fields of an existing user.
func (s *InMemoryUserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	if _, ok := set.byID[user.ID]; !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	set.byID[user.ID] = clone(user)
	return nil
}

func (s *InMemoryUserStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	user, ok := set.byID[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.LastLoginAt = &at
	return nil
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		cp.LastLoginAt = &at
	}
	return &cp
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
