package validation

import (
	"fmt"

	dErrors "clientiq/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024
)

// Element count limits
const (
	// MaxPermissionsPerRole bounds the permission set submitted for a role.
	MaxPermissionsPerRole = 64

	// MaxPageSize is the largest page a list endpoint returns.
	MaxPageSize = 100

	// DefaultPageSize applies when a list request sets no limit.
	DefaultPageSize = 25
)

// String length limits
const (
	MaxEmailLength        = 255
	MaxNameLength         = 150
	MaxPasswordLength     = 128
	MinPasswordLength     = 8
	MaxSearchLength       = 100
	MaxRefreshTokenLength = 2048
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// ClampPage normalizes list paging parameters.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
