package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: fmt.Errorf("load user: %w", shared.ErrNotFound), status: http.StatusNotFound},
		{err: shared.ErrConflict, status: http.StatusConflict},
		{err: shared.ErrCSRFTokenMismatch, status: http.StatusForbidden},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		RespondError(rr, tt.err)
		assert.Equal(t, tt.status, rr.Code)

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tt.status, body.Status)
		if tt.status == http.StatusInternalServerError {
			assert.Empty(t, body.Detail)
		}
	}
}
