package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clientiq/pkg/domain-errors"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{name: "absent", query: "", wantLimit: 0, wantOffset: 0},
		{name: "both", query: "?limit=10&offset=20", wantLimit: 10, wantOffset: 20},
		{name: "limit only", query: "?limit=5", wantLimit: 5},
		{name: "not a number", query: "?limit=ten", wantErr: true},
		{name: "negative offset", query: "?offset=-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ParsePage(httptest.NewRequest("GET", "/contacts/"+tt.query, nil))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
