package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
)

func TestOpportunityValidateDefaults(t *testing.T) {
	o := &Opportunity{Name: "  Renewal ", Currency: "eur"}
	require.NoError(t, o.Validate())
	assert.Equal(t, "Renewal", o.Name)
	assert.Equal(t, "EUR", o.Currency)
	assert.Equal(t, StageLead, o.Stage)

	o = &Opportunity{Name: "Renewal"}
	require.NoError(t, o.Validate())
	assert.Equal(t, "USD", o.Currency)
}

func TestOpportunityValidateRejects(t *testing.T) {
	tests := map[string]*Opportunity{
		"blank name":      {Name: " "},
		"negative amount": {Name: "x", AmountCents: -1},
		"bad currency":    {Name: "x", Currency: "EURO"},
		"unknown stage":   {Name: "x", Stage: "closed"},
	}
	for name, o := range tests {
		t.Run(name, func(t *testing.T) {
			err := o.Validate()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func TestActivityComplete(t *testing.T) {
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &Activity{Type: ActivityTask, Subject: "Send proposal"}
	require.NoError(t, a.Validate())

	assert.True(t, a.Complete(first))
	assert.False(t, a.Complete(first.Add(time.Hour)))
	assert.Equal(t, first, *a.CompletedAt)
}

func TestActivityValidateType(t *testing.T) {
	a := &Activity{Type: "fax", Subject: "x"}
	assert.True(t, dErrors.HasCode(a.Validate(), dErrors.CodeValidation))
}

func TestBuildPipeline(t *testing.T) {
	stages := BuildPipeline([]PipelineRow{
		{Stage: StageProposal, Currency: "USD", Count: 2, AmountCents: 300_00},
		{Stage: StageProposal, Currency: "EUR", Count: 1, AmountCents: 50_00},
		{Stage: StageWon, Currency: "USD", Count: 1, AmountCents: 1_000_00},
		{Stage: "archived", Currency: "USD", Count: 9},
	})

	require.Len(t, stages, len(Stages))
	assert.Equal(t, StageLead, stages[0].Stage)
	assert.Zero(t, stages[0].Count)
	assert.Empty(t, stages[0].Amounts)

	assert.Equal(t, StageProposal, stages[2].Stage)
	assert.Equal(t, 3, stages[2].Count)
	assert.Equal(t, map[string]int64{"USD": 300_00, "EUR": 50_00}, stages[2].Amounts)
	assert.Equal(t, 1, stages[4].Count)
}

func TestRequestPreparation(t *testing.T) {
	t.Run("contact email is normalized", func(t *testing.T) {
		req := &CreateContactRequest{FirstName: " Jane ", Email: " Jane@Example.COM "}
		require.NoError(t, httputil.PrepareRequest(req))
		assert.Equal(t, "Jane", req.FirstName)
		assert.Equal(t, "jane@example.com", req.Email)
	})

	t.Run("blank first name is rejected", func(t *testing.T) {
		err := httputil.PrepareRequest(&CreateContactRequest{FirstName: "  "})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("close date must be a calendar date", func(t *testing.T) {
		err := httputil.PrepareRequest(&CreateOpportunityRequest{Name: "Deal", CloseDate: "01/04/2026"})
		assert.Error(t, err)
		require.NoError(t, httputil.PrepareRequest(&CreateOpportunityRequest{Name: "Deal", CloseDate: "2026-04-01", Currency: "gbp"}))
	})

	t.Run("empty reference clears on update", func(t *testing.T) {
		empty := ""
		req := &UpdateContactRequest{CompanyID: &empty}
		require.NoError(t, httputil.PrepareRequest(req))
	})

	t.Run("activity type is checked", func(t *testing.T) {
		err := httputil.PrepareRequest(&CreateActivityRequest{Type: "Fax", Subject: "x"})
		assert.Error(t, err)
	})
}

func TestOptionalIDRendersNull(t *testing.T) {
	resp := ToContactResponse(&Contact{FirstName: "Jane"})
	assert.Nil(t, resp.CompanyID)
	assert.Equal(t, "Jane", resp.FullName)
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Limit: 500, Offset: -3, Search: "  acme "}
	require.NoError(t, f.Normalize())
	assert.Equal(t, ListFilter{Limit: 100, Offset: 0, Search: "acme"}, f)

	f = ListFilter{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, 25, f.Limit)

	f = ListFilter{Search: strings.Repeat("x", 101)}
	assert.True(t, dErrors.HasCode(f.Normalize(), dErrors.CodeValidation))
}
