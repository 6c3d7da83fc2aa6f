package models

import (
	"strings"
	"time"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/validation"
)

// Requests are decoded by httputil.DecodeAndPrepare. In update requests a
// nil field is left alone; for reference ids an empty string clears the
// reference.

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func validate(r any, isNil bool) error {
	if isNil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type CreateCompanyRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	Domain   string `json:"domain" validate:"max=253"`
	Industry string `json:"industry" validate:"max=100"`
	Size     string `json:"size" validate:"max=20"`
	Phone    string `json:"phone" validate:"max=50"`
	Address  string `json:"address" validate:"max=1000"`
	OwnerID  string `json:"owner_id" validate:"omitempty,uuid"`
}

func (r *CreateCompanyRequest) Normalize() {
	if r == nil {
		return
	}
	trim(&r.Name, &r.Domain, &r.Industry, &r.Size, &r.Phone, &r.Address, &r.OwnerID)
	r.Domain = strings.ToLower(r.Domain)
}

func (r *CreateCompanyRequest) Validate() error { return validate(r, r == nil) }

type UpdateCompanyRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Domain   *string `json:"domain" validate:"omitempty,max=253"`
	Industry *string `json:"industry" validate:"omitempty,max=100"`
	Size     *string `json:"size" validate:"omitempty,max=20"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Address  *string `json:"address" validate:"omitempty,max=1000"`
	OwnerID  *string `json:"owner_id" validate:"omitempty,uuid|len=0"`
}

func (r *UpdateCompanyRequest) Normalize() {
	if r == nil {
		return
	}
	trim(r.Name, r.Domain, r.Industry, r.Size, r.Phone, r.Address, r.OwnerID)
	if r.Domain != nil {
		*r.Domain = strings.ToLower(*r.Domain)
	}
}

func (r *UpdateCompanyRequest) Validate() error { return validate(r, r == nil) }

type CreateContactRequest struct {
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Phone     string `json:"phone" validate:"max=50"`
	Title     string `json:"title" validate:"max=100"`
	Notes     string `json:"notes" validate:"max=5000"`
	CompanyID string `json:"company_id" validate:"omitempty,uuid"`
	OwnerID   string `json:"owner_id" validate:"omitempty,uuid"`
}

func (r *CreateContactRequest) Normalize() {
	if r == nil {
		return
	}
	trim(&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Title, &r.CompanyID, &r.OwnerID)
	r.Email = strings.ToLower(r.Email)
}

func (r *CreateContactRequest) Validate() error { return validate(r, r == nil) }

type UpdateContactRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email|len=0,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Title     *string `json:"title" validate:"omitempty,max=100"`
	Notes     *string `json:"notes" validate:"omitempty,max=5000"`
	CompanyID *string `json:"company_id" validate:"omitempty,uuid|len=0"`
	OwnerID   *string `json:"owner_id" validate:"omitempty,uuid|len=0"`
}

func (r *UpdateContactRequest) Normalize() {
	if r == nil {
		return
	}
	trim(r.FirstName, r.LastName, r.Email, r.Phone, r.Title, r.CompanyID, r.OwnerID)
	if r.Email != nil {
		*r.Email = strings.ToLower(*r.Email)
	}
}

func (r *UpdateContactRequest) Validate() error { return validate(r, r == nil) }

// DateLayout is the wire format of calendar dates such as close_date.
const DateLayout = "2006-01-02"

type CreateOpportunityRequest struct {
	Name        string `json:"name" validate:"notblank,max=200"`
	AmountCents int64  `json:"amount_cents" validate:"min=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
	Stage       string `json:"stage" validate:"omitempty,oneof=lead qualified proposal negotiation won lost"`
	CloseDate   string `json:"close_date" validate:"omitempty,datetime=2006-01-02"`
	CompanyID   string `json:"company_id" validate:"omitempty,uuid"`
	ContactID   string `json:"contact_id" validate:"omitempty,uuid"`
	OwnerID     string `json:"owner_id" validate:"omitempty,uuid"`
}

func (r *CreateOpportunityRequest) Normalize() {
	if r == nil {
		return
	}
	trim(&r.Name, &r.Currency, &r.Stage, &r.CloseDate, &r.CompanyID, &r.ContactID, &r.OwnerID)
	r.Currency = strings.ToUpper(r.Currency)
	r.Stage = strings.ToLower(r.Stage)
}

func (r *CreateOpportunityRequest) Validate() error { return validate(r, r == nil) }

type UpdateOpportunityRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=200"`
	AmountCents *int64  `json:"amount_cents" validate:"omitempty,min=0"`
	Currency    *string `json:"currency" validate:"omitempty,len=3,alpha"`
	Stage       *string `json:"stage" validate:"omitempty,oneof=lead qualified proposal negotiation won lost"`
	CloseDate   *string `json:"close_date" validate:"omitempty,datetime=2006-01-02|len=0"`
	CompanyID   *string `json:"company_id" validate:"omitempty,uuid|len=0"`
	ContactID   *string `json:"contact_id" validate:"omitempty,uuid|len=0"`
	OwnerID     *string `json:"owner_id" validate:"omitempty,uuid|len=0"`
}

func (r *UpdateOpportunityRequest) Normalize() {
	if r == nil {
		return
	}
	trim(r.Name, r.Currency, r.Stage, r.CloseDate, r.CompanyID, r.ContactID, r.OwnerID)
	if r.Currency != nil {
		*r.Currency = strings.ToUpper(*r.Currency)
	}
	if r.Stage != nil {
		*r.Stage = strings.ToLower(*r.Stage)
	}
}

func (r *UpdateOpportunityRequest) Validate() error { return validate(r, r == nil) }

type CreateActivityRequest struct {
	Type          string     `json:"type" validate:"required,oneof=call email meeting task note"`
	Subject       string     `json:"subject" validate:"notblank,max=200"`
	Description   string     `json:"description" validate:"max=5000"`
	DueAt         *time.Time `json:"due_at"`
	ContactID     string     `json:"contact_id" validate:"omitempty,uuid"`
	CompanyID     string     `json:"company_id" validate:"omitempty,uuid"`
	OpportunityID string     `json:"opportunity_id" validate:"omitempty,uuid"`
	OwnerID       string     `json:"owner_id" validate:"omitempty,uuid"`
}

func (r *CreateActivityRequest) Normalize() {
	if r == nil {
		return
	}
	trim(&r.Type, &r.Subject, &r.ContactID, &r.CompanyID, &r.OpportunityID, &r.OwnerID)
	r.Type = strings.ToLower(r.Type)
}

func (r *CreateActivityRequest) Validate() error { return validate(r, r == nil) }

type UpdateActivityRequest struct {
	Type          *string    `json:"type" validate:"omitempty,oneof=call email meeting task note"`
	Subject       *string    `json:"subject" validate:"omitempty,notblank,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=5000"`
	DueAt         *time.Time `json:"due_at"`
	ContactID     *string    `json:"contact_id" validate:"omitempty,uuid|len=0"`
	CompanyID     *string    `json:"company_id" validate:"omitempty,uuid|len=0"`
	OpportunityID *string    `json:"opportunity_id" validate:"omitempty,uuid|len=0"`
	OwnerID       *string    `json:"owner_id" validate:"omitempty,uuid|len=0"`
}

func (r *UpdateActivityRequest) Normalize() {
	if r == nil {
		return
	}
	trim(r.Type, r.Subject, r.ContactID, r.CompanyID, r.OpportunityID, r.OwnerID)
	if r.Type != nil {
		*r.Type = strings.ToLower(*r.Type)
	}
}

func (r *UpdateActivityRequest) Validate() error { return validate(r, r == nil) }
