package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"clientiq/internal/tenant/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
	"clientiq/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newTenant(schema, domain string) *models.Tenant {
	t, err := models.NewTenant(id.TenantID(uuid.New()), schema+" Inc", schema, domain, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, t))
	return t
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	acme := s.newTenant("acme", "acme")

	byID, err := s.store.FindByID(s.ctx, acme.ID)
	s.Require().NoError(err)
	s.Equal("acme", byID.Schema)

	byDomain, err := s.store.FindByDomain(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal(acme.ID, byDomain.ID)

	_, err = s.store.FindByDomain(s.ctx, "widgets")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicates() {
	s.newTenant("acme", "acme")

	dupSchema, _ := models.NewTenant(id.TenantID(uuid.New()), "Other", "acme", "other", s.now)
	s.ErrorIs(s.store.Create(s.ctx, dupSchema), sentinel.ErrAlreadyUsed)

	dupDomain, _ := models.NewTenant(id.TenantID(uuid.New()), "Other", "other", "acme", s.now)
	s.ErrorIs(s.store.Create(s.ctx, dupDomain), sentinel.ErrAlreadyUsed)
}

func (s *InMemoryStoreSuite) TestDeactivateRetiresMapping() {
	acme := s.newTenant("acme", "acme")

	s.Require().NoError(s.store.Deactivate(s.ctx, acme.ID, s.now))
	s.Require().NoError(s.store.Deactivate(s.ctx, acme.ID, s.now.Add(time.Hour)))

	_, err := s.store.FindByDomain(s.ctx, "acme")
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.FindByID(s.ctx, acme.ID)
	s.Require().NoError(err)
	s.False(got.Active)
	s.Equal(s.now, *got.DeactivatedAt)

	// the freed subdomain can be claimed by a new tenant
	s.newTenant("acme_v2", "acme")
}

func (s *InMemoryStoreSuite) TestChangeDomain() {
	acme := s.newTenant("acme", "acme")
	s.newTenant("widgets", "widgets")

	s.ErrorIs(s.store.ChangeDomain(s.ctx, acme.ID, "widgets", s.now), sentinel.ErrAlreadyUsed)
	s.Require().NoError(s.store.ChangeDomain(s.ctx, acme.ID, "acme-corp", s.now))
	s.Require().NoError(s.store.ChangeDomain(s.ctx, acme.ID, "acme-corp", s.now), "same domain is a no-op")

	_, err := s.store.FindByDomain(s.ctx, "acme")
	s.ErrorIs(err, sentinel.ErrNotFound)
	got, err := s.store.FindByDomain(s.ctx, "acme-corp")
	s.Require().NoError(err)
	s.Equal(acme.ID, got.ID)

	mappings, err := s.store.Mappings(s.ctx, acme.ID)
	s.Require().NoError(err)
	s.Len(mappings, 2)
	active := 0
	for _, m := range mappings {
		if m.Active {
			active++
		}
	}
	s.Equal(1, active)
}

func (s *InMemoryStoreSuite) TestChangeDomainOnInactiveTenant() {
	acme := s.newTenant("acme", "acme")
	s.Require().NoError(s.store.Deactivate(s.ctx, acme.ID, s.now))

	s.ErrorIs(s.store.ChangeDomain(s.ctx, acme.ID, "acme2", s.now), sentinel.ErrInvalidState)
	s.ErrorIs(s.store.ChangeDomain(s.ctx, id.TenantID(uuid.New()), "x", s.now), sentinel.ErrNotFound)
}

func TestInMemory_ListOrdered(t *testing.T) {
	store := NewInMemory()
	base := time.Now()
	for i, schema := range []string{"zeta", "alpha", "mid"} {
		tenant, err := models.NewTenant(id.TenantID(uuid.New()), schema, schema, schema, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.Create(context.Background(), tenant))
	}

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, []string{list[0].Schema, list[1].Schema, list[2].Schema})
}

func TestInMemory_ReturnsCopies(t *testing.T) {
	store := NewInMemory()
	tenant, err := models.NewTenant(id.TenantID(uuid.New()), "Acme", "acme", "acme", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), tenant))

	got, err := store.FindByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.FindByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
}

func (s *InMemoryStoreSuite) TestConcurrentCreateClaimsSchemaOnce() {
	result := testutil.RunConcurrent(16, func(int) error {
		return s.store.Create(s.ctx, testutil.NewTenantBuilder("acme").Build())
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(15), result.Conflicts)
	s.Zero(result.Errors)
}

func (s *InMemoryStoreSuite) TestDeleteFreesSchemaAndDomain() {
	broken := testutil.NewTenantBuilder("broken").WithDomain("broken-co").Build()
	s.Require().NoError(s.store.Create(s.ctx, broken))

	s.Require().NoError(s.store.Delete(s.ctx, broken.ID))
	s.ErrorIs(s.store.Delete(s.ctx, broken.ID), sentinel.ErrNotFound)

	_, err := s.store.FindByDomain(s.ctx, "broken-co")
	s.ErrorIs(err, sentinel.ErrNotFound)
	mappings, err := s.store.Mappings(s.ctx, broken.ID)
	s.Require().NoError(err)
	s.Empty(mappings)

	s.Require().NoError(s.store.Create(s.ctx, testutil.NewTenantBuilder("broken").WithDomain("broken-co").Build()))
}

func (s *InMemoryStoreSuite) TestInactiveTenantKeepsItsSchema() {
	retired := testutil.NewTenantBuilder("retired").Inactive().Build()
	s.Require().NoError(s.store.Create(s.ctx, retired))

	got, err := s.store.FindByID(s.ctx, retired.ID)
	s.Require().NoError(err)
	s.False(got.Active)
	s.NotNil(got.DeactivatedAt)

	s.ErrorIs(s.store.Create(s.ctx, testutil.NewTenantBuilder("retired").WithDomain("fresh").Build()), sentinel.ErrAlreadyUsed)
}
