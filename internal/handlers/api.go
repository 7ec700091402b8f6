package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/services"
)

// RunsAPIHandler serves recorded runs as JSON
type RunsAPIHandler struct {
	runService services.RunService
	logger     *zap.Logger
}

// NewRunsAPIHandler creates a new runs API handler
func NewRunsAPIHandler(runService services.RunService, logger *zap.Logger) *RunsAPIHandler {
	return &RunsAPIHandler{runService: runService, logger: logger}
}

// RunResponse is the JSON form of a run
type RunResponse struct {
	ID               string     `json:"id"`
	CorrelationID    string     `json:"correlationId"`
	Scenario         string     `json:"scenario"`
	SearchTerm       string     `json:"searchTerm"`
	Engine           string     `json:"engine"`
	Status           string     `json:"status"`
	Reason           string     `json:"reason,omitempty"`
	ProductURL       string     `json:"productUrl,omitempty"`
	ChallengeOutcome string     `json:"challengeOutcome,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toResponse(run *models.Run) RunResponse {
	resp := RunResponse{
		ID:               run.ID,
		CorrelationID:    run.CorrelationID,
		Scenario:         run.Scenario,
		SearchTerm:       run.SearchTerm,
		Engine:           run.Engine,
		Status:           string(run.Status),
		Reason:           run.Reason,
		ProductURL:       run.ProductURL,
		ChallengeOutcome: run.ChallengeOutcome,
		StartedAt:        run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}

// ServeHTTP handles GET /api/runs
func (h *RunsAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.runService.ListRuns(filter)
	if err != nil {
		h.logger.Error("Error listing runs", zap.Error(err))
		sendErrorResponse(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toResponse(run))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("Error encoding response", zap.Error(err))
	}
}

// sendErrorResponse sends a JSON error response
func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
