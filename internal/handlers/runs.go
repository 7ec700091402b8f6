package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/repository"
	"github.com/adyen/marketprobe/internal/services"
)

var funcMap = template.FuncMap{
	"statusClass": func(s models.RunStatus) string {
		switch s {
		case models.RunStatusPassed:
			return "ok"
		case models.RunStatusSkipped:
			return "warn"
		case models.RunStatusFailed:
			return "bad"
		default:
			return "muted"
		}
	},
}

func parseTemplate(templatePath string) (*template.Template, error) {
	tmpl, err := template.New(filepath.Base(templatePath)).Funcs(funcMap).ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

// RunsHandler renders the list of recorded runs
type RunsHandler struct {
	template   *template.Template
	runService services.RunService
	logger     *zap.Logger
}

// NewRunsHandler creates a new runs list handler
func NewRunsHandler(templatePath string, runService services.RunService, logger *zap.Logger) (*RunsHandler, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	return &RunsHandler{template: tmpl, runService: runService, logger: logger}, nil
}

// RunsData represents the data for the runs template
type RunsData struct {
	Summary  services.Summary
	Runs     []*models.Run
	Scenario string
}

// ServeHTTP handles GET /?scenario=&status=&limit=
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.runService.ListRuns(filter)
	if err != nil {
		h.logger.Error("Error listing runs", zap.Error(err))
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}
	summary, err := h.runService.Summary()
	if err != nil {
		h.logger.Error("Error summarising runs", zap.Error(err))
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	data := RunsData{Summary: summary, Runs: runs, Scenario: filter.Scenario}
	if err := h.template.Execute(w, data); err != nil {
		h.logger.Error("Error rendering template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// RunHandler renders a single run
type RunHandler struct {
	template   *template.Template
	runService services.RunService
	logger     *zap.Logger
}

// NewRunHandler creates a new run detail handler
func NewRunHandler(templatePath string, runService services.RunService, logger *zap.Logger) (*RunHandler, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	return &RunHandler{template: tmpl, runService: runService, logger: logger}, nil
}

// ServeHTTP handles GET /runs/{id}
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	run, err := h.runService.GetRun(id)
	if errors.Is(err, repository.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Error loading run", zap.String("run_id", id), zap.Error(err))
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	if err := h.template.Execute(w, run); err != nil {
		h.logger.Error("Error rendering template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func filterFromQuery(r *http.Request) (models.RunFilter, error) {
	q := r.URL.Query()
	filter := models.RunFilter{
		Scenario: q.Get("scenario"),
		Status:   models.RunStatus(q.Get("status")),
		Limit:    50,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}
