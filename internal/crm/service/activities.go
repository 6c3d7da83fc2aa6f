package service

import (
	"context"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/requestcontext"
)

func (s *Service) ListActivities(ctx context.Context, f models.ListFilter) (*models.Page[*models.Activity], error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	page, err := s.store.ListActivities(ctx, f)
	if err != nil {
		return nil, translate(err, "activity", "failed to list activities")
	}
	return page, nil
}

func (s *Service) GetActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	a, err := s.store.FindActivity(ctx, activityID)
	if err != nil {
		return nil, translate(err, "activity", "failed to load activity")
	}
	return a, nil
}

func (s *Service) CreateActivity(ctx context.Context, req *models.CreateActivityRequest) (*models.Activity, error) {
	contactID, err := parseRef(req.ContactID, "contact_id", id.ParseContactID)
	if err != nil {
		return nil, err
	}
	companyID, err := parseRef(req.CompanyID, "company_id", id.ParseCompanyID)
	if err != nil {
		return nil, err
	}
	oppID, err := parseRef(req.OpportunityID, "opportunity_id", id.ParseOpportunityID)
	if err != nil {
		return nil, err
	}
	owner, err := ownerOrCaller(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a := &models.Activity{
		ID:            id.NewActivityID(),
		Type:          models.ActivityType(req.Type),
		Subject:       req.Subject,
		Description:   req.Description,
		DueAt:         req.DueAt,
		ContactID:     contactID,
		CompanyID:     companyID,
		OpportunityID: oppID,
		OwnerID:       owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkContact(ctx, a.ContactID); err != nil {
			return err
		}
		if err := s.checkCompany(ctx, a.CompanyID); err != nil {
			return err
		}
		if err := s.checkOpportunity(ctx, a.OpportunityID); err != nil {
			return err
		}
		if err := s.checkOwner(ctx, a.OwnerID); err != nil {
			return err
		}
		return s.store.CreateActivity(ctx, a)
	})
	if err != nil {
		return nil, translate(err, "activity", "failed to create activity")
	}
	s.recordWrite(ctx, resourceActivities, "create", a.ID.String())
	return a, nil
}

func (s *Service) UpdateActivity(ctx context.Context, activityID id.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error) {
	var a *models.Activity
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.store.FindActivity(ctx, activityID); err != nil {
			return err
		}
		if req.Type != nil {
			a.Type = models.ActivityType(*req.Type)
		}
		patch(&a.Subject, req.Subject)
		patch(&a.Description, req.Description)
		if req.DueAt != nil {
			due := *req.DueAt
			a.DueAt = &due
		}
		contactChanged, err := patchRef(&a.ContactID, req.ContactID, "contact_id", id.ParseContactID)
		if err != nil {
			return err
		}
		companyChanged, err := patchRef(&a.CompanyID, req.CompanyID, "company_id", id.ParseCompanyID)
		if err != nil {
			return err
		}
		oppChanged, err := patchRef(&a.OpportunityID, req.OpportunityID, "opportunity_id", id.ParseOpportunityID)
		if err != nil {
			return err
		}
		ownerChanged, err := patchRef(&a.OwnerID, req.OwnerID, "owner_id", id.ParseUserID)
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		if contactChanged {
			if err := s.checkContact(ctx, a.ContactID); err != nil {
				return err
			}
		}
		if companyChanged {
			if err := s.checkCompany(ctx, a.CompanyID); err != nil {
				return err
			}
		}
		if oppChanged {
			if err := s.checkOpportunity(ctx, a.OpportunityID); err != nil {
				return err
			}
		}
		if ownerChanged {
			if err := s.checkOwner(ctx, a.OwnerID); err != nil {
				return err
			}
		}
		a.UpdatedAt = requestcontext.Now(ctx)
		return s.store.UpdateActivity(ctx, a)
	})
	if err != nil {
		return nil, translate(err, "activity", "failed to update activity")
	}
	s.recordWrite(ctx, resourceActivities, "update", a.ID.String())
	return a, nil
}

// CompleteActivity marks the activity done. Completing it again is a no-op
// that keeps the first completion time.
func (s *Service) CompleteActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	var (
		a       *models.Activity
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if a, err = s.store.FindActivity(ctx, activityID); err != nil {
			return err
		}
		if changed = a.Complete(requestcontext.Now(ctx)); !changed {
			return nil
		}
		return s.store.UpdateActivity(ctx, a)
	})
	if err != nil {
		return nil, translate(err, "activity", "failed to complete activity")
	}
	if changed {
		s.recordWrite(ctx, resourceActivities, "complete", a.ID.String())
	}
	return a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, activityID id.ActivityID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteActivity(ctx, activityID)
	})
	if err != nil {
		return translate(err, "activity", "failed to delete activity")
	}
	s.recordWrite(ctx, resourceActivities, "delete", activityID.String())
	return nil
}
