package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"clientiq/internal/auth/models"
	refreshtoken "clientiq/internal/auth/store/refresh-token"
	"clientiq/internal/platform/database"
	"clientiq/internal/platform/metrics"
	tenantmodels "clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/tenancy"
)

type stubLister struct {
	tenants []*tenantmodels.Tenant
	err     error
}

func (s *stubLister) ListActiveTenants(context.Context) ([]*tenantmodels.Tenant, error) {
	return s.tenants, s.err
}

// failingBinder refuses one schema and delegates the rest.
type failingBinder struct {
	database.ScopeBinder
	refuse string
}

func (b failingBinder) Bind(ctx context.Context, scope tenancy.Scope) (context.Context, func(), error) {
	if scope.Schema == b.refuse {
		return ctx, func() {}, errors.New("connection refused")
	}
	return b.ScopeBinder.Bind(ctx, scope)
}

type CleanupServiceSuite struct {
	suite.Suite
	now     time.Time
	acme    *tenantmodels.Tenant
	widgets *tenantmodels.Tenant
	tokens  *refreshtoken.InMemoryRefreshTokenStore
	metrics *metrics.Metrics
}

func TestCleanupServiceSuite(t *testing.T) {
	suite.Run(t, new(CleanupServiceSuite))
}

func (s *CleanupServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var err error
	s.acme, err = tenantmodels.NewTenant(id.NewTenantID(), "Acme", "acme", "acme", s.now)
	s.Require().NoError(err)
	s.widgets, err = tenantmodels.NewTenant(id.NewTenantID(), "Widgets", "widgets", "widgets", s.now)
	s.Require().NoError(err)
	s.tokens = refreshtoken.New()
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
}

func (s *CleanupServiceSuite) seed(t *tenantmodels.Tenant, jti string, expiresAt time.Time) {
	ctx := tenancy.WithScope(context.Background(), t.Scope())
	s.Require().NoError(s.tokens.Create(ctx, &models.RefreshToken{
		JTI:       jti,
		UserID:    id.NewUserID(),
		IssuedAt:  expiresAt.Add(-7 * 24 * time.Hour),
		ExpiresAt: expiresAt,
	}))
}

func (s *CleanupServiceSuite) exists(t *tenantmodels.Tenant, jti string) bool {
	_, err := s.tokens.Find(tenancy.WithScope(context.Background(), t.Scope()), jti)
	return err == nil
}

func (s *CleanupServiceSuite) newService(binder database.Binder, tenants ...*tenantmodels.Tenant) *CleanupService {
	svc, err := New(&stubLister{tenants: tenants}, binder, s.tokens,
		WithClock(func() time.Time { return s.now }),
		WithCleanupMetrics(s.metrics),
		WithCleanupInterval(10*time.Millisecond),
	)
	s.Require().NoError(err)
	return svc
}

func (s *CleanupServiceSuite) TestRunOncePurgesEveryTenantSchema() {
	s.seed(s.acme, "acme-old", s.now.Add(-time.Minute))
	s.seed(s.acme, "acme-live", s.now.Add(time.Hour))
	s.seed(s.widgets, "widgets-old", s.now.Add(-time.Hour))

	res, err := s.newService(database.ScopeBinder{}, s.acme, s.widgets).RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(2, res.TenantsVisited)
	s.Equal(2, res.DeletedRefreshTokens)
	s.False(s.exists(s.acme, "acme-old"))
	s.True(s.exists(s.acme, "acme-live"))
	s.False(s.exists(s.widgets, "widgets-old"))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.RefreshTokensPurged))
}

func (s *CleanupServiceSuite) TestRunOnceContinuesPastFailingSchema() {
	s.seed(s.acme, "acme-old", s.now.Add(-time.Minute))
	s.seed(s.widgets, "widgets-old", s.now.Add(-time.Minute))

	res, err := s.newService(failingBinder{refuse: "acme"}, s.acme, s.widgets).RunOnce(context.Background())

	s.Require().Error(err)
	s.Contains(err.Error(), "tenant acme")
	s.Equal(1, res.TenantsVisited)
	s.True(s.exists(s.acme, "acme-old"))
	s.False(s.exists(s.widgets, "widgets-old"))
}

func (s *CleanupServiceSuite) TestRunOnceListFailure() {
	svc, err := New(&stubLister{err: errors.New("directory down")}, database.ScopeBinder{}, s.tokens)
	s.Require().NoError(err)

	_, err = svc.RunOnce(context.Background())

	s.ErrorContains(err, "list active tenants")
}

func (s *CleanupServiceSuite) TestNewRequiresCollaborators() {
	_, err := New(nil, database.ScopeBinder{}, s.tokens)
	s.Error(err)
}

func (s *CleanupServiceSuite) TestStartStopsOnCancel() {
	s.seed(s.acme, "acme-old", s.now.Add(-time.Minute))
	svc := s.newService(database.ScopeBinder{}, s.acme)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	s.Eventually(func() bool { return testutil.ToFloat64(s.metrics.RefreshTokensPurged) >= 1 },
		time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("cleanup worker did not stop")
	}
}
