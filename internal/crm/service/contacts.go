package service

import (
	"context"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/requestcontext"
)

func (s *Service) ListContacts(ctx context.Context, f models.ListFilter) (*models.Page[*models.Contact], error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	page, err := s.store.ListContacts(ctx, f)
	if err != nil {
		return nil, translate(err, "contact", "failed to list contacts")
	}
	return page, nil
}

func (s *Service) GetContact(ctx context.Context, contactID id.ContactID) (*models.Contact, error) {
	c, err := s.store.FindContact(ctx, contactID)
	if err != nil {
		return nil, translate(err, "contact", "failed to load contact")
	}
	return c, nil
}

func (s *Service) CreateContact(ctx context.Context, req *models.CreateContactRequest) (*models.Contact, error) {
	companyID, err := parseRef(req.CompanyID, "company_id", id.ParseCompanyID)
	if err != nil {
		return nil, err
	}
	owner, err := ownerOrCaller(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c := &models.Contact{
		ID:        id.NewContactID(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Title:     req.Title,
		Notes:     req.Notes,
		CompanyID: companyID,
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkCompany(ctx, c.CompanyID); err != nil {
			return err
		}
		if err := s.checkOwner(ctx, c.OwnerID); err != nil {
			return err
		}
		return s.store.CreateContact(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "contact", "failed to create contact")
	}
	s.recordWrite(ctx, resourceContacts, "create", c.ID.String())
	return c, nil
}

func (s *Service) UpdateContact(ctx context.Context, contactID id.ContactID, req *models.UpdateContactRequest) (*models.Contact, error) {
	var c *models.Contact
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.store.FindContact(ctx, contactID); err != nil {
			return err
		}
		patch(&c.FirstName, req.FirstName)
		patch(&c.LastName, req.LastName)
		patch(&c.Email, req.Email)
		patch(&c.Phone, req.Phone)
		patch(&c.Title, req.Title)
		patch(&c.Notes, req.Notes)
		companyChanged, err := patchRef(&c.CompanyID, req.CompanyID, "company_id", id.ParseCompanyID)
		if err != nil {
			return err
		}
		ownerChanged, err := patchRef(&c.OwnerID, req.OwnerID, "owner_id", id.ParseUserID)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if companyChanged {
			if err := s.checkCompany(ctx, c.CompanyID); err != nil {
				return err
			}
		}
		if ownerChanged {
			if err := s.checkOwner(ctx, c.OwnerID); err != nil {
				return err
			}
		}
		c.UpdatedAt = requestcontext.Now(ctx)
		return s.store.UpdateContact(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "contact", "failed to update contact")
	}
	s.recordWrite(ctx, resourceContacts, "update", c.ID.String())
	return c, nil
}

// DeleteContact removes the contact and its activities. Opportunities keep
// existing without it.
func (s *Service) DeleteContact(ctx context.Context, contactID id.ContactID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteContact(ctx, contactID)
	})
	if err != nil {
		return translate(err, "contact", "failed to delete contact")
	}
	s.recordWrite(ctx, resourceContacts, "delete", contactID.String())
	return nil
}
