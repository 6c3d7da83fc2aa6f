package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clientiq/internal/authz/middleware"
	"clientiq/internal/crm/handler/mocks"
	"clientiq/internal/crm/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	guarded []string
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	s.guarded = nil
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recordingGuard := func(code string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				s.guarded = append(s.guarded, code)
				next.ServeHTTP(w, r)
			})
		}
	}
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router, middleware.Guard(recordingGuard))
}

func (s *HandlerSuite) send(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) do(method, path, body string) (*httptest.ResponseRecorder, httputil.Envelope) {
	rec := s.send(method, path, body)
	var env httputil.Envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func (s *HandlerSuite) data(env httputil.Envelope) map[string]any {
	m, ok := env.Data.(map[string]any)
	s.Require().True(ok, "data is %T", env.Data)
	return m
}

func (s *HandlerSuite) TestListContactsPassesFilter() {
	contact := &models.Contact{ID: id.NewContactID(), FirstName: "Jane", LastName: "Doe", CreatedAt: s.now}
	s.service.EXPECT().ListContacts(gomock.Any(), models.ListFilter{Limit: 10, Offset: 20, Search: "jane"}).
		Return(&models.Page[*models.Contact]{Items: []*models.Contact{contact}, Total: 21}, nil)

	rec, env := s.do(http.MethodGet, "/contacts/?limit=10&offset=20&search=+jane+", "")

	s.Equal(http.StatusOK, rec.Code)
	data := s.data(env)
	s.Equal(21.0, data["count"])
	s.Equal(10.0, data["limit"])
	s.Equal(20.0, data["offset"])
	results := data["results"].([]any)
	s.Require().Len(results, 1)
	first := results[0].(map[string]any)
	s.Equal("Jane Doe", first["full_name"])
	s.Nil(first["company_id"])
	s.Equal([]string{"contacts.view"}, s.guarded)
}

func (s *HandlerSuite) TestListClampsLimit() {
	s.service.EXPECT().ListCompanies(gomock.Any(), models.ListFilter{Limit: 100}).
		Return(&models.Page[*models.Company]{}, nil)

	rec, env := s.do(http.MethodGet, "/companies/?limit=5000", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]any{}, s.data(env)["results"])
}

func (s *HandlerSuite) TestListRejectsBadPaging() {
	rec, env := s.do(http.MethodGet, "/activities/?offset=-1", "")

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("bad_request", env.Error.Code)
}

func (s *HandlerSuite) TestCreateCompany() {
	company := &models.Company{ID: id.NewCompanyID(), Name: "Initech", Domain: "initech.com", CreatedAt: s.now}
	s.service.EXPECT().CreateCompany(gomock.Any(), &models.CreateCompanyRequest{Name: "Initech", Domain: "initech.com"}).
		Return(company, nil)

	rec, env := s.do(http.MethodPost, "/companies/", `{"name":" Initech ","domain":"INITECH.com"}`)

	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(company.ID.String(), s.data(env)["id"])
	s.Equal([]string{"companies.create"}, s.guarded)
}

func (s *HandlerSuite) TestCreateValidation() {
	cases := map[string]string{
		"/contacts/":      `{"first_name":"Jane","email":"not-an-email"}`,
		"/opportunities/": `{"name":"Deal","stage":"closed"}`,
		"/activities/":    `{"type":"fax","subject":"x"}`,
		"/companies/":     `{"name":"Initech","owner_id":"nope"}`,
	}
	for path, body := range cases {
		s.Run(path, func() {
			rec, env := s.do(http.MethodPost, path, body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal("validation_error", env.Error.Code)
		})
	}
}

func (s *HandlerSuite) TestCreateOpportunityReferenceErrorsAreValidation() {
	s.service.EXPECT().CreateOpportunity(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "company_id does not reference an existing company"))

	rec, env := s.do(http.MethodPost, "/opportunities/", `{"name":"Deal","company_id":"`+id.NewCompanyID().String()+`"}`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("company_id does not reference an existing company", env.Error.Message)
}

func (s *HandlerSuite) TestGetNotFoundAndMalformedID() {
	s.service.EXPECT().GetOpportunity(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "opportunity not found"))

	rec, env := s.do(http.MethodGet, "/opportunities/"+id.NewOpportunityID().String()+"/", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("resource not found", env.Error.Message)

	rec, env = s.do(http.MethodGet, "/opportunities/123/", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid opportunity id", env.Error.Message)
}

func (s *HandlerSuite) TestUpdateContact() {
	contactID := id.NewContactID()
	s.service.EXPECT().UpdateContact(gomock.Any(), contactID, gomock.Any()).
		DoAndReturn(func(_ any, _ id.ContactID, req *models.UpdateContactRequest) (*models.Contact, error) {
			s.Require().NotNil(req.Title)
			s.Equal("CTO", *req.Title)
			s.Require().NotNil(req.CompanyID)
			s.Empty(*req.CompanyID)
			s.Nil(req.FirstName)
			return &models.Contact{ID: contactID, FirstName: "Jane", Title: "CTO"}, nil
		})

	rec, env := s.do(http.MethodPatch, "/contacts/"+contactID.String()+"/", `{"title":"CTO","company_id":""}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("CTO", s.data(env)["title"])
	s.Equal([]string{"contacts.update"}, s.guarded)
}

func (s *HandlerSuite) TestDelete() {
	activityID := id.NewActivityID()
	s.service.EXPECT().DeleteActivity(gomock.Any(), activityID).Return(nil)

	rec := s.send(http.MethodDelete, "/activities/"+activityID.String()+"/", "")

	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.Bytes())
	s.Equal([]string{"activities.delete"}, s.guarded)
}

func (s *HandlerSuite) TestDeleteMissing() {
	s.service.EXPECT().DeleteCompany(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeNotFound, "company not found"))

	rec, _ := s.do(http.MethodDelete, "/companies/"+id.NewCompanyID().String()+"/", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestPipelineIsNotShadowedByIDRoute() {
	s.service.EXPECT().Pipeline(gomock.Any()).Return(models.BuildPipeline([]models.PipelineRow{
		{Stage: models.StageWon, Currency: "USD", Count: 2, AmountCents: 900},
	}), nil)

	rec, env := s.do(http.MethodGet, "/opportunities/pipeline/", "")

	s.Equal(http.StatusOK, rec.Code)
	stages := s.data(env)["stages"].([]any)
	s.Len(stages, len(models.Stages))
	won := stages[4].(map[string]any)
	s.Equal("won", won["stage"])
	s.Equal(2.0, won["count"])
	s.Equal(map[string]any{"USD": 900.0}, won["amounts_cents"])
	s.Equal([]string{"opportunities.view"}, s.guarded)
}

func (s *HandlerSuite) TestCompleteActivity() {
	activityID := id.NewActivityID()
	done := s.now
	s.service.EXPECT().CompleteActivity(gomock.Any(), activityID).
		Return(&models.Activity{ID: activityID, Type: models.ActivityTask, Subject: "Quote", CompletedAt: &done}, nil)

	rec, env := s.do(http.MethodPost, "/activities/"+activityID.String()+"/complete/", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, s.data(env)["is_completed"])
	s.Equal([]string{"activities.update"}, s.guarded)
}

func (s *HandlerSuite) TestInternalErrorsAreGeneric() {
	s.service.EXPECT().ListOpportunities(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeInternal, "failed to list opportunities"))

	rec, env := s.do(http.MethodGet, "/opportunities/", "")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "unexpected EOF")
	s.Equal("internal_error", env.Error.Code)
}
