package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"clientiq/internal/crm/models"
	"clientiq/internal/platform/database"
	id "clientiq/pkg/domain"
	"clientiq/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the record does not exist in the bound tenant
// - Return tenancy.ErrUnbound when ctx carries no tenant
//
// Deletes mirror the foreign keys of the tenant schema: references to a
// deleted company or contact are cleared and activities attached to a
// deleted record are removed with it.

type crmSet struct {
	companies     map[id.CompanyID]*models.Company
	contacts      map[id.ContactID]*models.Contact
	opportunities map[id.OpportunityID]*models.Opportunity
	activities    map[id.ActivityID]*models.Activity
}

// InMemory keeps CRM records per tenant schema.
type InMemory struct {
	mu    sync.RWMutex
	parts *database.Partitions[crmSet]
}

func NewInMemory() *InMemory {
	return &InMemory{parts: database.NewPartitions(func() *crmSet {
		return &crmSet{
			companies:     make(map[id.CompanyID]*models.Company),
			contacts:      make(map[id.ContactID]*models.Contact),
			opportunities: make(map[id.OpportunityID]*models.Opportunity),
			activities:    make(map[id.ActivityID]*models.Activity),
		}
	})}
}

func (s *InMemory) read(ctx context.Context, fn func(*crmSet) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	return fn(set)
}

func (s *InMemory) write(ctx context.Context, fn func(*crmSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.parts.For(ctx)
	if err != nil {
		return err
	}
	return fn(set)
}

// paginate sorts newest first and slices out the requested window.
func paginate[T any](items []T, created func(T) time.Time, key func(T) string, f models.ListFilter) *models.Page[T] {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return cmp.Compare(key(a), key(b))
	})
	total := len(items)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return &models.Page[T]{Items: items[start:end], Total: total}
}

// matches reports whether any field contains search, ignoring case.
func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneCompany(c *models.Company) *models.Company {
	out := *c
	return &out
}

func cloneContact(c *models.Contact) *models.Contact {
	out := *c
	return &out
}

func cloneOpportunity(o *models.Opportunity) *models.Opportunity {
	out := *o
	out.CloseDate = cloneTime(o.CloseDate)
	return &out
}

func cloneActivity(a *models.Activity) *models.Activity {
	out := *a
	out.DueAt = cloneTime(a.DueAt)
	out.CompletedAt = cloneTime(a.CompletedAt)
	return &out
}

// Companies

func (s *InMemory) ListCompanies(ctx context.Context, f models.ListFilter) (*models.Page[*models.Company], error) {
	var page *models.Page[*models.Company]
	err := s.read(ctx, func(set *crmSet) error {
		var items []*models.Company
		for _, c := range set.companies {
			if matches(f.Search, c.Name, c.Domain) {
				items = append(items, cloneCompany(c))
			}
		}
		page = paginate(items,
			func(c *models.Company) time.Time { return c.CreatedAt },
			func(c *models.Company) string { return c.ID.String() }, f)
		return nil
	})
	return page, err
}

func (s *InMemory) CreateCompany(ctx context.Context, c *models.Company) error {
	return s.write(ctx, func(set *crmSet) error {
		set.companies[c.ID] = cloneCompany(c)
		return nil
	})
}

func (s *InMemory) FindCompany(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	var out *models.Company
	err := s.read(ctx, func(set *crmSet) error {
		c, ok := set.companies[companyID]
		if !ok {
			return fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
		}
		out = cloneCompany(c)
		return nil
	})
	return out, err
}

func (s *InMemory) UpdateCompany(ctx context.Context, c *models.Company) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.companies[c.ID]; !ok {
			return fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
		}
		set.companies[c.ID] = cloneCompany(c)
		return nil
	})
}

func (s *InMemory) DeleteCompany(ctx context.Context, companyID id.CompanyID) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.companies[companyID]; !ok {
			return fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
		}
		delete(set.companies, companyID)
		for _, c := range set.contacts {
			if c.CompanyID == companyID {
				c.CompanyID = id.CompanyID{}
			}
		}
		for _, o := range set.opportunities {
			if o.CompanyID == companyID {
				o.CompanyID = id.CompanyID{}
			}
		}
		for aid, a := range set.activities {
			if a.CompanyID == companyID {
				delete(set.activities, aid)
			}
		}
		return nil
	})
}

// Contacts

func (s *InMemory) ListContacts(ctx context.Context, f models.ListFilter) (*models.Page[*models.Contact], error) {
	var page *models.Page[*models.Contact]
	err := s.read(ctx, func(set *crmSet) error {
		var items []*models.Contact
		for _, c := range set.contacts {
			if matches(f.Search, c.FirstName, c.LastName, c.Email) {
				items = append(items, cloneContact(c))
			}
		}
		page = paginate(items,
			func(c *models.Contact) time.Time { return c.CreatedAt },
			func(c *models.Contact) string { return c.ID.String() }, f)
		return nil
	})
	return page, err
}

func (s *InMemory) CreateContact(ctx context.Context, c *models.Contact) error {
	return s.write(ctx, func(set *crmSet) error {
		set.contacts[c.ID] = cloneContact(c)
		return nil
	})
}

func (s *InMemory) FindContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	var out *models.Contact
	err := s.read(ctx, func(set *crmSet) error {
		c, ok := set.contacts[contactID]
		if !ok {
			return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		out = cloneContact(c)
		return nil
	})
	return out, err
}

func (s *InMemory) UpdateContact(ctx context.Context, c *models.Contact) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.contacts[c.ID]; !ok {
			return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		set.contacts[c.ID] = cloneContact(c)
		return nil
	})
}

func (s *InMemory) DeleteContact(ctx context.Context, contactID id.ContactID) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.contacts[contactID]; !ok {
			return fmt.Errorf("contact not found: %w", sentinel.ErrNotFound)
		}
		delete(set.contacts, contactID)
		for _, o := range set.opportunities {
			if o.ContactID == contactID {
				o.ContactID = id.ContactID{}
			}
		}
		for aid, a := range set.activities {
			if a.ContactID == contactID {
				delete(set.activities, aid)
			}
		}
		return nil
	})
}

// Opportunities

func (s *InMemory) ListOpportunities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Opportunity], error) {
	var page *models.Page[*models.Opportunity]
	err := s.read(ctx, func(set *crmSet) error {
		var items []*models.Opportunity
		for _, o := range set.opportunities {
			if matches(f.Search, o.Name) {
				items = append(items, cloneOpportunity(o))
			}
		}
		page = paginate(items,
			func(o *models.Opportunity) time.Time { return o.CreatedAt },
			func(o *models.Opportunity) string { return o.ID.String() }, f)
		return nil
	})
	return page, err
}

func (s *InMemory) CreateOpportunity(ctx context.Context, o *models.Opportunity) error {
	return s.write(ctx, func(set *crmSet) error {
		set.opportunities[o.ID] = cloneOpportunity(o)
		return nil
	})
}

func (s *InMemory) FindOpportunity(ctx context.Context, oppID id.OpportunityID) (*models.Opportunity, error) {
	var out *models.Opportunity
	err := s.read(ctx, func(set *crmSet) error {
		o, ok := set.opportunities[oppID]
		if !ok {
			return fmt.Errorf("opportunity not found: %w", sentinel.ErrNotFound)
		}
		out = cloneOpportunity(o)
		return nil
	})
	return out, err
}

func (s *InMemory) UpdateOpportunity(ctx context.Context, o *models.Opportunity) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.opportunities[o.ID]; !ok {
			return fmt.Errorf("opportunity not found: %w", sentinel.ErrNotFound)
		}
		set.opportunities[o.ID] = cloneOpportunity(o)
		return nil
	})
}

func (s *InMemory) DeleteOpportunity(ctx context.Context, oppID id.OpportunityID) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.opportunities[oppID]; !ok {
			return fmt.Errorf("opportunity not found: %w", sentinel.ErrNotFound)
		}
		delete(set.opportunities, oppID)
		for aid, a := range set.activities {
			if a.OpportunityID == oppID {
				delete(set.activities, aid)
			}
		}
		return nil
	})
}

func (s *InMemory) PipelineRows(ctx context.Context) ([]models.PipelineRow, error) {
	type groupKey struct {
		stage    models.Stage
		currency string
	}
	var rows []models.PipelineRow
	err := s.read(ctx, func(set *crmSet) error {
		groups := make(map[groupKey]*models.PipelineRow)
		for _, o := range set.opportunities {
			k := groupKey{o.Stage, o.Currency}
			row, ok := groups[k]
			if !ok {
				row = &models.PipelineRow{Stage: o.Stage, Currency: o.Currency}
				groups[k] = row
			}
			row.Count++
			row.AmountCents += o.AmountCents
		}
		for _, row := range groups {
			rows = append(rows, *row)
		}
		return nil
	})
	return rows, err
}

// Activities

func (s *InMemory) ListActivities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Activity], error) {
	var page *models.Page[*models.Activity]
	err := s.read(ctx, func(set *crmSet) error {
		var items []*models.Activity
		for _, a := range set.activities {
			if matches(f.Search, a.Subject) {
				items = append(items, cloneActivity(a))
			}
		}
		page = paginate(items,
			func(a *models.Activity) time.Time { return a.CreatedAt },
			func(a *models.Activity) string { return a.ID.String() }, f)
		return nil
	})
	return page, err
}

func (s *InMemory) CreateActivity(ctx context.Context, a *models.Activity) error {
	return s.write(ctx, func(set *crmSet) error {
		set.activities[a.ID] = cloneActivity(a)
		return nil
	})
}

func (s *InMemory) FindActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	var out *models.Activity
	err := s.read(ctx, func(set *crmSet) error {
		a, ok := set.activities[activityID]
		if !ok {
			return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
		}
		out = cloneActivity(a)
		return nil
	})
	return out, err
}

func (s *InMemory) UpdateActivity(ctx context.Context, a *models.Activity) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.activities[a.ID]; !ok {
			return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
		}
		set.activities[a.ID] = cloneActivity(a)
		return nil
	})
}

func (s *InMemory) DeleteActivity(ctx context.Context, activityID id.ActivityID) error {
	return s.write(ctx, func(set *crmSet) error {
		if _, ok := set.activities[activityID]; !ok {
			return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
		}
		delete(set.activities, activityID)
		return nil
	})
}
