package service

import (
	"context"

	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	"clientiq/pkg/requestcontext"
)

func (s *Service) ListCompanies(ctx context.Context, f models.ListFilter) (*models.Page[*models.Company], error) {
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	page, err := s.store.ListCompanies(ctx, f)
	if err != nil {
		return nil, translate(err, "company", "failed to list companies")
	}
	return page, nil
}

func (s *Service) GetCompany(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	c, err := s.store.FindCompany(ctx, companyID)
	if err != nil {
		return nil, translate(err, "company", "failed to load company")
	}
	return c, nil
}

func (s *Service) CreateCompany(ctx context.Context, req *models.CreateCompanyRequest) (*models.Company, error) {
	owner, err := ownerOrCaller(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	c := &models.Company{
		ID:        id.NewCompanyID(),
		Name:      req.Name,
		Domain:    req.Domain,
		Industry:  req.Industry,
		Size:      req.Size,
		Phone:     req.Phone,
		Address:   req.Address,
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkOwner(ctx, c.OwnerID); err != nil {
			return err
		}
		return s.store.CreateCompany(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "company", "failed to create company")
	}
	s.recordWrite(ctx, resourceCompanies, "create", c.ID.String())
	return c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, companyID id.CompanyID, req *models.UpdateCompanyRequest) (*models.Company, error) {
	var c *models.Company
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.store.FindCompany(ctx, companyID); err != nil {
			return err
		}
		patch(&c.Name, req.Name)
		patch(&c.Domain, req.Domain)
		patch(&c.Industry, req.Industry)
		patch(&c.Size, req.Size)
		patch(&c.Phone, req.Phone)
		patch(&c.Address, req.Address)
		ownerChanged, err := patchRef(&c.OwnerID, req.OwnerID, "owner_id", id.ParseUserID)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if ownerChanged {
			if err := s.checkOwner(ctx, c.OwnerID); err != nil {
				return err
			}
		}
		c.UpdatedAt = requestcontext.Now(ctx)
		return s.store.UpdateCompany(ctx, c)
	})
	if err != nil {
		return nil, translate(err, "company", "failed to update company")
	}
	s.recordWrite(ctx, resourceCompanies, "update", c.ID.String())
	return c, nil
}

// DeleteCompany removes the company. Contacts and opportunities keep
// existing without it; its activities are removed.
func (s *Service) DeleteCompany(ctx context.Context, companyID id.CompanyID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteCompany(ctx, companyID)
	})
	if err != nil {
		return translate(err, "company", "failed to delete company")
	}
	s.recordWrite(ctx, resourceCompanies, "delete", companyID.String())
	return nil
}
