package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/tenancy"
)

type stubResolver map[string]tenancy.Scope

func (s stubResolver) Resolve(_ context.Context, host string) (tenancy.Scope, error) {
	if host == "boom.example.com" {
		return tenancy.Scope{}, errors.New("connection refused")
	}
	scope, ok := s[host]
	if !ok {
		return tenancy.Scope{}, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return scope, nil
}

func TestResolveTenant(t *testing.T) {
	acme := tenancy.Scope{TenantID: id.TenantID(uuid.New()), Schema: "acme", Domain: "acme"}
	resolver := stubResolver{"acme.example.com": acme, "example.com": tenancy.Platform}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen tenancy.Scope
	handler := ResolveTenant(resolver, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = tenancy.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(host string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("tenant host binds scope", func(t *testing.T) {
		rec := serve("acme.example.com")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, acme, seen)
	})

	t.Run("platform host binds platform scope", func(t *testing.T) {
		rec := serve("example.com")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen.IsPlatform())
	})

	t.Run("unknown tenant looks like any missing resource", func(t *testing.T) {
		rec := serve("ghost.example.com")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
		assert.Contains(t, rec.Body.String(), `"message":"resource not found"`)
		assert.NotContains(t, rec.Body.String(), "tenant")
	})

	t.Run("lookup failure is a generic 500", func(t *testing.T) {
		rec := serve("boom.example.com")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "refused")
	})
}
