package models

import (
	"time"

	"github.com/google/uuid"
)

// This file contains transport-layer response models for JSON output.

// optionalID renders an unset reference as JSON null.
func optionalID[T ~[16]byte](v T) *string {
	if uuid.UUID(v) == uuid.Nil {
		return nil
	}
	s := uuid.UUID(v).String()
	return &s
}

type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Industry  string    `json:"industry"`
	Size      string    `json:"size"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	OwnerID   *string   `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToCompanyResponse(c *Company) *CompanyResponse {
	return &CompanyResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Domain:    c.Domain,
		Industry:  c.Industry,
		Size:      c.Size,
		Phone:     c.Phone,
		Address:   c.Address,
		OwnerID:   optionalID(c.OwnerID),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type ContactResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes"`
	CompanyID *string   `json:"company_id"`
	OwnerID   *string   `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToContactResponse(c *Contact) *ContactResponse {
	return &ContactResponse{
		ID:        c.ID.String(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		FullName:  c.FullName(),
		Email:     c.Email,
		Phone:     c.Phone,
		Title:     c.Title,
		Notes:     c.Notes,
		CompanyID: optionalID(c.CompanyID),
		OwnerID:   optionalID(c.OwnerID),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type OpportunityResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Stage       string    `json:"stage"`
	CloseDate   *string   `json:"close_date"`
	CompanyID   *string   `json:"company_id"`
	ContactID   *string   `json:"contact_id"`
	OwnerID     *string   `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToOpportunityResponse(o *Opportunity) *OpportunityResponse {
	out := &OpportunityResponse{
		ID:          o.ID.String(),
		Name:        o.Name,
		AmountCents: o.AmountCents,
		Currency:    o.Currency,
		Stage:       string(o.Stage),
		CompanyID:   optionalID(o.CompanyID),
		ContactID:   optionalID(o.ContactID),
		OwnerID:     optionalID(o.OwnerID),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.CloseDate != nil {
		d := o.CloseDate.Format(DateLayout)
		out.CloseDate = &d
	}
	return out
}

type ActivityResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	DueAt         *time.Time `json:"due_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	IsCompleted   bool       `json:"is_completed"`
	ContactID     *string    `json:"contact_id"`
	CompanyID     *string    `json:"company_id"`
	OpportunityID *string    `json:"opportunity_id"`
	OwnerID       *string    `json:"owner_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func ToActivityResponse(a *Activity) *ActivityResponse {
	return &ActivityResponse{
		ID:            a.ID.String(),
		Type:          string(a.Type),
		Subject:       a.Subject,
		Description:   a.Description,
		DueAt:         a.DueAt,
		CompletedAt:   a.CompletedAt,
		IsCompleted:   a.IsCompleted(),
		ContactID:     optionalID(a.ContactID),
		CompanyID:     optionalID(a.CompanyID),
		OpportunityID: optionalID(a.OpportunityID),
		OwnerID:       optionalID(a.OwnerID),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ListResponse is the data of every list endpoint.
type ListResponse[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
}

func ToListResponse[M, R any](page *Page[M], filter ListFilter, conv func(M) R) *ListResponse[R] {
	out := &ListResponse[R]{Results: make([]R, 0, len(page.Items)), Count: page.Total, Limit: filter.Limit, Offset: filter.Offset}
	for _, item := range page.Items {
		out.Results = append(out.Results, conv(item))
	}
	return out
}

type PipelineStageResponse struct {
	Stage   string           `json:"stage"`
	Count   int              `json:"count"`
	Amounts map[string]int64 `json:"amounts_cents"`
}

type PipelineResponse struct {
	Stages []PipelineStageResponse `json:"stages"`
}

func ToPipelineResponse(stages []PipelineStage) *PipelineResponse {
	out := &PipelineResponse{Stages: make([]PipelineStageResponse, 0, len(stages))}
	for _, s := range stages {
		out.Stages = append(out.Stages, PipelineStageResponse{Stage: string(s.Stage), Count: s.Count, Amounts: s.Amounts})
	}
	return out
}
