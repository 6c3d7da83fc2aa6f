package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

func TestPartitions(t *testing.T) {
	parts := NewPartitions(func() *map[string]int { m := map[string]int{}; return &m })
	acme := tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "acme"})
	widgets := tenancy.WithScope(context.Background(), tenancy.Scope{TenantID: id.NewTenantID(), Schema: "widgets"})

	a, err := parts.For(acme)
	require.NoError(t, err)
	(*a)["x"] = 1

	w, err := parts.For(widgets)
	require.NoError(t, err)
	assert.Empty(t, *w)

	again, err := parts.For(acme)
	require.NoError(t, err)
	assert.Equal(t, 1, (*again)["x"])

	_, err = parts.For(context.Background())
	assert.ErrorIs(t, err, tenancy.ErrUnbound)
	_, err = parts.For(tenancy.WithScope(context.Background(), tenancy.Platform))
	assert.ErrorIs(t, err, tenancy.ErrUnbound)
}
