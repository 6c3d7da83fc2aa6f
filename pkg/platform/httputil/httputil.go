package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/requestcontext"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

// ErrorBody is the client-visible part of a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries request correlation data.
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// publicMessages fixes the message for codes whose detail must not vary.
// Unknown tenants, unknown resources and foreign-tenant tokens all look the
// same on the wire, and login failures never say which half was wrong.
var publicMessages = map[dErrors.Code]string{
	dErrors.CodeNotFound:           "resource not found",
	dErrors.CodePermissionDenied:   "you do not have permission to perform this action",
	dErrors.CodeInvalidCredentials: "invalid email or password",
	dErrors.CodeInternal:           "internal server error",
	dErrors.CodeUnauthorized:       "authentication credentials were not provided",
	dErrors.CodeTimeout:            "request timed out",
}

// WriteJSON writes v as-is. Used for bodies outside the API envelope (health, metrics).
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteSuccess writes data wrapped in the success envelope.
func WriteSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{
		Success: true,
		Data:    data,
		Meta:    metaFor(ctx),
	})
}

// WriteError centralizes domain error translation to HTTP responses.
// Anything that is not a domain error becomes a generic 500 without detail.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	}
	if fixed, ok := publicMessages[code]; ok {
		message = fixed
	} else if message == "" {
		message = string(code)
	}
	WriteJSON(w, DomainCodeToHTTPStatus(code), Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    DomainCodeToHTTPCode(code),
			Message: message,
		},
		Meta: metaFor(ctx),
	})
}

func metaFor(ctx context.Context) Meta {
	return Meta{
		Timestamp: requestcontext.Now(ctx).UTC().Format(time.RFC3339),
		RequestID: requestcontext.RequestID(ctx),
	}
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidCredentials,
		dErrors.CodeTokenExpired, dErrors.CodeTokenInvalid, dErrors.CodeTokenRevoked:
		return http.StatusUnauthorized
	case dErrors.CodePermissionDenied:
		return http.StatusForbidden
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the code string in the envelope.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeNotFound, dErrors.CodeValidation, dErrors.CodeConflict,
		dErrors.CodeUnauthorized, dErrors.CodeInvalidCredentials,
		dErrors.CodeTokenExpired, dErrors.CodeTokenInvalid, dErrors.CodeTokenRevoked,
		dErrors.CodePermissionDenied, dErrors.CodeRateLimited, dErrors.CodeTimeout,
		dErrors.CodeTooLarge:
		return string(code)
	default:
		return string(dErrors.CodeInternal)
	}
}

// RequireUserID extracts the authenticated user ID from context.
// Returns a domain error suitable for HTTP response on failure.
func RequireUserID(ctx context.Context, logger *slog.Logger, requestID string) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		if logger != nil {
			logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
				"request_id", requestID)
		}
		return id.UserID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return userID, nil
}
