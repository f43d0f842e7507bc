package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpindex/registry-proxy/internal/service"
)

func TestWriteJSONResponse(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	WriteJSONResponse(rec, map[string]int{"count": 3}, http.StatusOK)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	WriteErrorResponse(rec, "something broke", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"something broke"}`, rec.Body.String())
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid_request",
			err:        fmt.Errorf("%w: bad cursor", service.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not_found",
			err:        fmt.Errorf("%w: io.github.example/missing", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown_error",
			err:        errors.New("upstream unavailable"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}
