package seeder

import (
	"context"
	"fmt"
	"log/slog"

	crmmodels "clientiq/internal/crm/models"
	"clientiq/internal/platform/database"
	tenantmodels "clientiq/internal/tenant/models"
	tenantservice "clientiq/internal/tenant/service"
	dErrors "clientiq/pkg/domain-errors"
)

// TenantCreator onboards tenants through the directory.
type TenantCreator interface {
	CreateTenant(ctx context.Context, cmd tenantservice.CreateTenantCommand) (*tenantmodels.Tenant, error)
}

// CRMWriter creates CRM records in the bound schema.
type CRMWriter interface {
	CreateCompany(ctx context.Context, req *crmmodels.CreateCompanyRequest) (*crmmodels.Company, error)
	CreateContact(ctx context.Context, req *crmmodels.CreateContactRequest) (*crmmodels.Contact, error)
	CreateOpportunity(ctx context.Context, req *crmmodels.CreateOpportunityRequest) (*crmmodels.Opportunity, error)
	CreateActivity(ctx context.Context, req *crmmodels.CreateActivityRequest) (*crmmodels.Activity, error)
}

type demoTenant struct {
	name     string
	schema   string
	admin    tenantmodels.InitialAdmin
	company  string
	domain   string
	contact  [2]string
	deal     string
	amount   int64
	currency string
}

// demoTenants are the tenants Demo creates.
var demoTenants = []demoTenant{
	{
		name:     "Acme Corp",
		schema:   "acme",
		admin:    tenantmodels.InitialAdmin{Email: "admin@acme.com", Password: "acme-pw1", FirstName: "Acme", LastName: "Admin"},
		company:  "Road Runner Logistics",
		domain:   "roadrunner.example",
		contact:  [2]string{"Wile", "Coyote"},
		deal:     "Rocket skates bulk order",
		amount:   4_500_00,
		currency: "USD",
	},
	{
		name:     "Widgets Ltd",
		schema:   "widgets",
		admin:    tenantmodels.InitialAdmin{Email: "admin@widgets.com", Password: "widgets-pw2", FirstName: "Widgets", LastName: "Admin"},
		company:  "Gizmo GmbH",
		domain:   "gizmo.example",
		contact:  [2]string{"Greta", "Gear"},
		deal:     "Annual sprocket contract",
		amount:   12_000_00,
		currency: "EUR",
	},
}

// Demo creates two sample tenants with a handful of CRM records each.
// Tenants that already exist are left alone, so it can run on every start.
type Demo struct {
	tenants TenantCreator
	binder  database.Binder
	crm     CRMWriter
	logger  *slog.Logger
}

func NewDemo(tenants TenantCreator, binder database.Binder, crm CRMWriter, logger *slog.Logger) *Demo {
	return &Demo{tenants: tenants, binder: binder, crm: crm, logger: logger}
}

func (d *Demo) Seed(ctx context.Context) error {
	d.logger.InfoContext(ctx, "seeding demo data...")
	for _, dt := range demoTenants {
		admin := dt.admin
		tenant, err := d.tenants.CreateTenant(ctx, tenantservice.CreateTenantCommand{
			Name:   dt.name,
			Schema: dt.schema,
			Domain: dt.schema,
			Admin:  &admin,
		})
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			d.logger.InfoContext(ctx, "demo tenant already exists", "schema", dt.schema)
			continue
		}
		if err != nil {
			return fmt.Errorf("create demo tenant %s: %w", dt.schema, err)
		}
		if err := d.seedRecords(ctx, tenant, dt); err != nil {
			return fmt.Errorf("seed demo records %s: %w", dt.schema, err)
		}
		d.logger.InfoContext(ctx, "demo tenant seeded", "schema", tenant.Schema, "admin", dt.admin.Email)
	}
	return nil
}

func (d *Demo) seedRecords(ctx context.Context, tenant *tenantmodels.Tenant, dt demoTenant) error {
	bound, release, err := d.binder.Bind(ctx, tenant.Scope())
	if err != nil {
		return err
	}
	defer release()

	company, err := d.crm.CreateCompany(bound, &crmmodels.CreateCompanyRequest{Name: dt.company, Domain: dt.domain})
	if err != nil {
		return err
	}
	contact, err := d.crm.CreateContact(bound, &crmmodels.CreateContactRequest{
		FirstName: dt.contact[0],
		LastName:  dt.contact[1],
		CompanyID: company.ID.String(),
	})
	if err != nil {
		return err
	}
	opp, err := d.crm.CreateOpportunity(bound, &crmmodels.CreateOpportunityRequest{
		Name:        dt.deal,
		AmountCents: dt.amount,
		Currency:    dt.currency,
		Stage:       string(crmmodels.StageProposal),
		CompanyID:   company.ID.String(),
		ContactID:   contact.ID.String(),
	})
	if err != nil {
		return err
	}
	_, err = d.crm.CreateActivity(bound, &crmmodels.CreateActivityRequest{
		Type:          string(crmmodels.ActivityCall),
		Subject:       "Discovery call with " + dt.contact[0],
		ContactID:     contact.ID.String(),
		OpportunityID: opp.ID.String(),
	})
	return err
}
