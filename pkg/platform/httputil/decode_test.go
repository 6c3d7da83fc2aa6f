package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clientiq/pkg/domain-errors"
)

type dealRequest struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	normalized  bool
}

func (r *dealRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.normalized = true
}

func (r *dealRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.AmountCents < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "amount_cents must not be negative")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		message string
	}{
		{"empty body", "", http.StatusBadRequest, "bad_request", "request body is required"},
		{"malformed", `{"name":`, http.StatusBadRequest, "bad_request", "request body is not valid JSON"},
		{"not json", `name=acme`, http.StatusBadRequest, "bad_request", "request body is not valid JSON"},
		{"wrong type", `{"amount_cents":"ten"}`, http.StatusBadRequest, "bad_request", "amount_cents must be a int64"},
		{"two objects", `{"name":"a"}{"name":"b"}`, http.StatusBadRequest, "bad_request", "request body must hold a single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			got, ok := DecodeJSON[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

			assert.False(t, ok)
			assert.Nil(t, got)
			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
		})
	}

	t.Run("decodes one object", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Renewal","amount_cents":1500}`+"\n"))
		w := httptest.NewRecorder()

		got, ok := DecodeJSON[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		require.True(t, ok)
		assert.Equal(t, "Renewal", got.Name)
		assert.Equal(t, int64(1500), got.AmountCents)
		assert.False(t, got.normalized)
	})

	t.Run("oversized body is 413", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
		r.Body = http.MaxBytesReader(w, r.Body, 16)

		_, ok := DecodeJSON[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "payload_too_large", env.Error.Code)
		assert.Equal(t, "request body must not exceed 16 bytes", env.Error.Message)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  Renewal  "}`))
		w := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		require.True(t, ok)
		assert.True(t, got.normalized)
		assert.Equal(t, "Renewal", got.Name)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   "}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Equal(t, "name is required", env.Error.Message)
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Renewal","amount_cents":-1}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		assert.False(t, ok)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "bad_request", env.Error.Code)
		assert.Equal(t, "amount_cents must not be negative", env.Error.Message)
	})

	t.Run("decode failure skips preparation", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`nope`))
		w := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[dealRequest](w, r, discardLogger(), r.Context(), "req-1")

		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestPrepareRequest(t *testing.T) {
	assert.NoError(t, PrepareRequest(&struct{ Name string }{}))
	assert.Error(t, PrepareRequest(&dealRequest{}))
}
