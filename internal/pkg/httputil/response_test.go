package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishing-simulator/internal/domain"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.Validationf("name is required"), http.StatusBadRequest, "validation"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"integrity", domain.ErrDuplicateToken, http.StatusInternalServerError, "integrity"},
		{"storage", domain.StorageErr("write", errors.New("disk full")), http.StatusInternalServerError, "storage"},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body.Error)
			}
		})
	}
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))

	var dst map[string]any
	assert.False(t, Decode(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
