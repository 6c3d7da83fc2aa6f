package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clientiq/internal/ratelimit/models"
	"clientiq/pkg/platform/httputil"
	"clientiq/pkg/requestcontext"
)

type mockRateLimiter struct {
	result *models.RateLimitResult
	err    error
	seenIP string
}

func (m *mockRateLimiter) CheckIPRateLimit(_ context.Context, ip string) (*models.RateLimitResult, error) {
	m.seenIP = ip
	return m.result, m.err
}

type MiddlewareSuite struct {
	suite.Suite
	limiter *mockRateLimiter
	called  bool
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.limiter = &mockRateLimiter{}
	s.called = false
}

func (s *MiddlewareSuite) serve() *httptest.ResponseRecorder {
	mw := New(s.limiter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := mw.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login/", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.9", "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) TestAllowedAddsHeaders() {
	s.limiter.result = &models.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4, ResetAt: time.Unix(1700000000, 0)}

	rec := s.serve()

	s.True(s.called)
	s.Equal("203.0.113.9", s.limiter.seenIP)
	s.Equal("5", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("4", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal("1700000000", rec.Header().Get("X-RateLimit-Reset"))
}

func (s *MiddlewareSuite) TestExceededIs429Envelope() {
	s.limiter.result = &models.RateLimitResult{Allowed: false, Limit: 5, RetryAfter: 12}

	rec := s.serve()

	s.False(s.called)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("12", rec.Header().Get("Retry-After"))
	var env httputil.Envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	s.False(env.Success)
	s.Require().NotNil(env.Error)
	s.Equal("rate_limited", env.Error.Code)
}

func (s *MiddlewareSuite) TestLimiterFailureFailsOpen() {
	s.limiter.err = errors.New("store unavailable")

	rec := s.serve()

	s.True(s.called)
	s.Equal(http.StatusOK, rec.Code)
}
