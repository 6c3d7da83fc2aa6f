package service

import (
	"context"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/requestcontext"
)

func (s *Service) ListOpportunities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Opportunity], error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	page, err := s.store.ListOpportunities(ctx, f)
	if err != nil {
		return nil, translate(err, "opportunity", "failed to list opportunities")
	}
	return page, nil
}

func (s *Service) GetOpportunity(ctx context.Context, oppID id.OpportunityID) (*models.Opportunity, error) {
	o, err := s.store.FindOpportunity(ctx, oppID)
	if err != nil {
		return nil, translate(err, "opportunity", "failed to load opportunity")
	}
	return o, nil
}

func (s *Service) CreateOpportunity(ctx context.Context, req *models.CreateOpportunityRequest) (*models.Opportunity, error) {
	companyID, err := parseRef(req.CompanyID, "company_id", id.ParseCompanyID)
	if err != nil {
		return nil, err
	}
	contactID, err := parseRef(req.ContactID, "contact_id", id.ParseContactID)
	if err != nil {
		return nil, err
	}
	owner, err := ownerOrCaller(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	closeDate, err := parseDate(req.CloseDate)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	o := &models.Opportunity{
		ID:          id.NewOpportunityID(),
		Name:        req.Name,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Stage:       models.Stage(req.Stage),
		CloseDate:   closeDate,
		CompanyID:   companyID,
		ContactID:   contactID,
		OwnerID:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkCompany(ctx, o.CompanyID); err != nil {
			return err
		}
		if err := s.checkContact(ctx, o.ContactID); err != nil {
			return err
		}
		if err := s.checkOwner(ctx, o.OwnerID); err != nil {
			return err
		}
		return s.store.CreateOpportunity(ctx, o)
	})
	if err != nil {
		return nil, translate(err, "opportunity", "failed to create opportunity")
	}
	s.recordWrite(ctx, resourceOpportunities, "create", o.ID.String())
	return o, nil
}

func (s *Service) UpdateOpportunity(ctx context.Context, oppID id.OpportunityID, req *models.UpdateOpportunityRequest) (*models.Opportunity, error) {
	var o *models.Opportunity
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.store.FindOpportunity(ctx, oppID); err != nil {
			return err
		}
		patch(&o.Name, req.Name)
		patch(&o.AmountCents, req.AmountCents)
		patch(&o.Currency, req.Currency)
		if req.Stage != nil {
			o.Stage = models.Stage(*req.Stage)
		}
		if req.CloseDate != nil {
			if o.CloseDate, err = parseDate(*req.CloseDate); err != nil {
				return err
			}
		}
		companyChanged, err := patchRef(&o.CompanyID, req.CompanyID, "company_id", id.ParseCompanyID)
		if err != nil {
			return err
		}
		contactChanged, err := patchRef(&o.ContactID, req.ContactID, "contact_id", id.ParseContactID)
		if err != nil {
			return err
		}
		ownerChanged, err := patchRef(&o.OwnerID, req.OwnerID, "owner_id", id.ParseUserID)
		if err != nil {
			return err
		}
		if err := o.Validate(); err != nil {
			return err
		}
		if companyChanged {
			if err := s.checkCompany(ctx, o.CompanyID); err != nil {
				return err
			}
		}
		if contactChanged {
			if err := s.checkContact(ctx, o.ContactID); err != nil {
				return err
			}
		}
		if ownerChanged {
			if err := s.checkOwner(ctx, o.OwnerID); err != nil {
				return err
			}
		}
		o.UpdatedAt = requestcontext.Now(ctx)
		return s.store.UpdateOpportunity(ctx, o)
	})
	if err != nil {
		return nil, translate(err, "opportunity", "failed to update opportunity")
	}
	s.recordWrite(ctx, resourceOpportunities, "update", o.ID.String())
	return o, nil
}

func (s *Service) DeleteOpportunity(ctx context.Context, oppID id.OpportunityID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteOpportunity(ctx, oppID)
	})
	if err != nil {
		return translate(err, "opportunity", "failed to delete opportunity")
	}
	s.recordWrite(ctx, resourceOpportunities, "delete", oppID.String())
	return nil
}

// Pipeline reports every stage in order with its deal count and amounts
// summed per currency.
func (s *Service) Pipeline(ctx context.Context) ([]models.PipelineStage, error) {
	rows, err := s.store.PipelineRows(ctx)
	if err != nil {
		return nil, translate(err, "opportunity", "failed to load pipeline")
	}
	return models.BuildPipeline(rows), nil
}
