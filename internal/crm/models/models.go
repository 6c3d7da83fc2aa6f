// Package models holds the CRM records of a tenant. Every record lives in
// the tenant schema; references between records never cross schemas.
package models

import (
	"regexp"
	"strings"
	"time"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/validation"
)

// Stage is the position of an opportunity in the sales pipeline.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// Stages lists the pipeline in order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "stage must be one of lead, qualified, proposal, negotiation, won, lost")
}

// IsClosed reports whether the deal is finished either way.
func (s Stage) IsClosed() bool {
	return s == StageWon || s == StageLost
}

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityTask    ActivityType = "task"
	ActivityNote    ActivityType = "note"
)

var activityTypes = []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask, ActivityNote}

func ParseActivityType(s string) (ActivityType, error) {
	for _, t := range activityTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "type must be one of call, email, meeting, task, note")
}

type Company struct {
	ID        id.CompanyID
	Name      string
	Domain    string
	Industry  string
	Size      string
	Phone     string
	Address   string
	OwnerID   id.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Company) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "company name is required")
	}
	return nil
}

type Contact struct {
	ID        id.ContactID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Title     string
	Notes     string
	CompanyID id.CompanyID
	OwnerID   id.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Contact) Validate() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	if c.FirstName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	return nil
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Opportunity is a deal. Amounts are kept in minor units of Currency.
type Opportunity struct {
	ID          id.OpportunityID
	Name        string
	AmountCents int64
	Currency    string
	Stage       Stage
	CloseDate   *time.Time
	CompanyID   id.CompanyID
	ContactID   id.ContactID
	OwnerID     id.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o *Opportunity) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	o.Currency = strings.ToUpper(strings.TrimSpace(o.Currency))
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.Stage == "" {
		o.Stage = StageLead
	}
	switch {
	case o.Name == "":
		return dErrors.New(dErrors.CodeValidation, "opportunity name is required")
	case o.AmountCents < 0:
		return dErrors.New(dErrors.CodeValidation, "amount cannot be negative")
	case !currencyPattern.MatchString(o.Currency):
		return dErrors.New(dErrors.CodeValidation, "currency must be a three letter ISO code")
	}
	_, err := ParseStage(string(o.Stage))
	return err
}

// Activity is a call, meeting, task or note attached to other records.
type Activity struct {
	ID            id.ActivityID
	Type          ActivityType
	Subject       string
	Description   string
	DueAt         *time.Time
	CompletedAt   *time.Time
	ContactID     id.ContactID
	CompanyID     id.CompanyID
	OpportunityID id.OpportunityID
	OwnerID       id.UserID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Activity) Validate() error {
	a.Subject = strings.TrimSpace(a.Subject)
	if a.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	_, err := ParseActivityType(string(a.Type))
	return err
}

func (a *Activity) IsCompleted() bool {
	return a.CompletedAt != nil
}

// Complete marks the activity done. It reports false when it already was,
// keeping the first completion time.
func (a *Activity) Complete(now time.Time) bool {
	if a.IsCompleted() {
		return false
	}
	a.CompletedAt = &now
	a.UpdatedAt = now
	return true
}

// ListFilter pages and narrows a list. Search is matched case-insensitively
// against the record's name-like fields.
type ListFilter struct {
	Limit  int
	Offset int
	Search string
}

// Normalize clamps paging into range and trims the search text. It is
// idempotent.
func (f *ListFilter) Normalize() error {
	f.Limit, f.Offset = validation.ClampPage(f.Limit, f.Offset)
	f.Search = strings.TrimSpace(f.Search)
	return validation.CheckStringLength("search", f.Search, validation.MaxSearchLength)
}

// Page is one slice of a list plus the size of the whole filtered set.
type Page[T any] struct {
	Items []T
	Total int
}

// PipelineStage aggregates the opportunities of one stage. Amounts are
// summed per currency, never converted.
type PipelineStage struct {
	Stage   Stage
	Count   int
	Amounts map[string]int64
}

// PipelineRow is one (stage, currency) group as stores report it.
type PipelineRow struct {
	Stage       Stage
	Currency    string
	Count       int
	AmountCents int64
}

// BuildPipeline folds rows into one entry per stage, in pipeline order.
// Stages without opportunities are present with zero counts.
func BuildPipeline(rows []PipelineRow) []PipelineStage {
	byStage := make(map[Stage]*PipelineStage, len(Stages))
	out := make([]PipelineStage, len(Stages))
	for i, st := range Stages {
		out[i] = PipelineStage{Stage: st, Amounts: map[string]int64{}}
		byStage[st] = &out[i]
	}
	for _, r := range rows {
		ps, ok := byStage[r.Stage]
		if !ok {
			continue
		}
		ps.Count += r.Count
		ps.Amounts[r.Currency] += r.AmountCents
	}
	return out
}
