package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adyen/marketprobe/internal/models"
)

func TestRunsAPIHandler_ServeHTTP(t *testing.T) {
	t.Run("returns runs as JSON", func(t *testing.T) {
		svc := &MockRunService{
			ListRunsFunc: func(models.RunFilter) ([]*models.Run, error) { return sampleRuns(), nil },
		}
		w := httptest.NewRecorder()
		NewRunsAPIHandler(svc, zaptest.NewLogger(t)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp []RunResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "run-1", resp[0].ID)
		assert.Equal(t, "passed", resp[0].Status)
		assert.Equal(t, "verification required", resp[1].Reason)
		require.NotNil(t, resp[1].FinishedAt)
	})

	t.Run("empty ledger is an empty array", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewRunsAPIHandler(&MockRunService{}, zaptest.NewLogger(t)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	errorTests := []struct {
		name           string
		method         string
		query          string
		listErr        error
		expectedStatus int
	}{
		{name: "post not allowed", method: http.MethodPost, expectedStatus: http.StatusMethodNotAllowed},
		{name: "bad limit", method: http.MethodGet, query: "?limit=abc", expectedStatus: http.StatusBadRequest},
		{name: "service error", method: http.MethodGet, listErr: errors.New("database error"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockRunService{
				ListRunsFunc: func(models.RunFilter) ([]*models.Run, error) { return nil, tt.listErr },
			}
			w := httptest.NewRecorder()
			NewRunsAPIHandler(svc, zaptest.NewLogger(t)).ServeHTTP(w, httptest.NewRequest(tt.method, "/api/runs"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, http.StatusText(tt.expectedStatus), resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
