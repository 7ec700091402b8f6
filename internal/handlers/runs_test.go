package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/repository"
	"github.com/adyen/marketprobe/internal/services"
)

func sampleRuns() []*models.Run {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*models.Run{
		{
			ID: "run-1", Scenario: "add-to-cart", Engine: "playwright",
			Status: models.RunStatusPassed, StartedAt: started, FinishedAt: started.Add(12 * time.Second),
		},
		{
			ID: "run-2", Scenario: "buy-now", Engine: "rod",
			Status: models.RunStatusSkipped, Reason: "verification required",
			StartedAt: started, FinishedAt: started.Add(3 * time.Second),
		},
	}
}

func TestRunsHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		query          string
		listErr        error
		summaryErr     error
		expectedStatus int
		checkContent   []string
		wantFilter     models.RunFilter
	}{
		{
			name:           "lists runs with summary",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			checkContent:   []string{"run-1", "add-to-cart", "verification required", "12s", "3 total"},
			wantFilter:     models.RunFilter{Limit: 50},
		},
		{
			name:           "filters by scenario and status",
			method:         http.MethodGet,
			query:          "?scenario=buy-now&status=skipped&limit=5",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"Runs of buy-now"},
			wantFilter:     models.RunFilter{Scenario: "buy-now", Status: models.RunStatusSkipped, Limit: 5},
		},
		{
			name:           "bad limit",
			method:         http.MethodGet,
			query:          "?limit=-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "list error",
			method:         http.MethodGet,
			listErr:        errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
			wantFilter:     models.RunFilter{Limit: 50},
		},
		{
			name:           "summary error",
			method:         http.MethodGet,
			summaryErr:     errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
			wantFilter:     models.RunFilter{Limit: 50},
		},
		{
			name:           "post not allowed",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter models.RunFilter
			svc := &MockRunService{
				ListRunsFunc: func(f models.RunFilter) ([]*models.Run, error) {
					gotFilter = f
					return sampleRuns(), tt.listErr
				},
				SummaryFunc: func() (services.Summary, error) {
					return services.Summary{Total: 3, Passed: 1, Skipped: 1, Failed: 1}, tt.summaryErr
				},
			}

			handler, err := NewRunsHandler("../../templates/runs.html", svc, zaptest.NewLogger(t))
			require.NoError(t, err)

			req := httptest.NewRequest(tt.method, "/"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.wantFilter, gotFilter)
			for _, content := range tt.checkContent {
				assert.Contains(t, w.Body.String(), content)
			}
		})
	}
}

func TestRunsHandler_EmptyLedger(t *testing.T) {
	handler, err := NewRunsHandler("../../templates/runs.html", &MockRunService{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No runs recorded yet")
}

func TestNewRunsHandler_MissingTemplate(t *testing.T) {
	_, err := NewRunsHandler("does-not-exist.html", &MockRunService{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestRunHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		getErr         error
		expectedStatus int
		checkContent   []string
	}{
		{
			name:           "shows run",
			id:             "run-2",
			expectedStatus: http.StatusOK,
			checkContent:   []string{"buy-now", "skipped", "verification required", "shots/buy-now.png"},
		},
		{
			name:           "unknown run",
			id:             "missing",
			getErr:         fmt.Errorf("failed to get run: %w", repository.ErrRunNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "service error",
			id:             "run-2",
			getErr:         errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "missing id",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockRunService{
				GetRunFunc: func(id string) (*models.Run, error) {
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					run := sampleRuns()[1]
					run.ScreenshotPath = "shots/buy-now.png"
					return run, nil
				},
			}

			handler, err := NewRunHandler("../../templates/run.html", svc, zaptest.NewLogger(t))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/runs/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := w.Body.String()
			for _, content := range tt.checkContent {
				assert.True(t, strings.Contains(body, content), "body missing %q", content)
			}
		})
	}
}
