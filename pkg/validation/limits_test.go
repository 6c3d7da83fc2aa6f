package validation

import (
	"strings"
	"testing"

	dErrors "clientiq/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

// LimitsSuite tests the validation helper functions.
// The invariants "max+1 must fail" and "max must pass" sit on trust boundaries.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.Run("passes when count equals max", func() {
		s.NoError(CheckSliceCount("permissions", 64, 64))
	})

	s.Run("passes when count is zero", func() {
		s.NoError(CheckSliceCount("permissions", 0, 64))
	})

	s.Run("fails when count exceeds max", func() {
		err := CheckSliceCount("permissions", 65, 64)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "too many permissions")
		s.Contains(err.Error(), "max 64 allowed")
	})
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("search", strings.Repeat("a", 100), 100))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("search", strings.Repeat("a", 101), 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "search exceeds max length of 100")
	})
}

func (s *LimitsSuite) TestClampPage() {
	s.Run("defaults", func() {
		limit, offset := ClampPage(0, -5)
		s.Equal(DefaultPageSize, limit)
		s.Equal(0, offset)
	})

	s.Run("caps limit", func() {
		limit, offset := ClampPage(500, 10)
		s.Equal(MaxPageSize, limit)
		s.Equal(10, offset)
	})
}
