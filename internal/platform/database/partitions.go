package database

import (
	"context"

	"clientiq/pkg/tenancy"
)

// Partitions keys in-memory tenant state by the schema bound to ctx, the
// memory counterpart of search_path routing. It does no locking; the owning
// store guards it with its own mutex.
type Partitions[T any] struct {
	parts map[string]*T
	init  func() *T
}

func NewPartitions[T any](init func() *T) *Partitions[T] {
	return &Partitions[T]{parts: make(map[string]*T), init: init}
}

// For returns the partition of the tenant bound to ctx, creating it on first
// use. Unbound and platform contexts fail with tenancy.ErrUnbound.
func (p *Partitions[T]) For(ctx context.Context) (*T, error) {
	scope, err := tenancy.Tenant(ctx)
	if err != nil {
		return nil, err
	}
	part, ok := p.parts[scope.Schema]
	if !ok {
		part = p.init()
		p.parts[scope.Schema] = part
	}
	return part, nil
}
