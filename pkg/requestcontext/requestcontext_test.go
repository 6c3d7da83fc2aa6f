package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "clientiq/pkg/domain"
)

func TestAccessorsFallBackToZeroValues(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.True(t, UserID(ctx).IsNil())
	assert.True(t, TenantID(ctx).IsNil())
}

func TestRoundTrip(t *testing.T) {
	userID := id.UserID(uuid.New())
	tenantID := id.TenantID(uuid.New())
	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")
	ctx = WithUserID(ctx, userID)
	ctx = WithTenantID(ctx, tenantID)
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, userID, UserID(ctx))
	assert.Equal(t, tenantID, TenantID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
