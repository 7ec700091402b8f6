package services

import (
	"errors"
	"fmt"

	"github.com/adyen/marketprobe/internal/models"
)

// ErrRunStillPending is returned when finishing a run that has no outcome yet
var ErrRunStillPending = errors.New("run has no outcome")

// RunRepository defines the interface for run persistence
type RunRepository interface {
	CreateRun(run *models.Run) error
	UpdateRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(filter models.RunFilter) ([]*models.Run, error)
	CountByStatus() (map[models.RunStatus]int, error)
}

// Summary totals recorded runs by status
type Summary struct {
	Total   int
	Passed  int
	Skipped int
	Failed  int
	Pending int
}

// RunService handles the run ledger
type RunService interface {
	StartRun(run *models.Run) error
	FinishRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(filter models.RunFilter) ([]*models.Run, error)
	Summary() (Summary, error)
}

// RunServiceImpl implements RunService
type RunServiceImpl struct {
	runRepo RunRepository
}

// NewRunService creates a new run service
func NewRunService(runRepo RunRepository) RunService {
	return &RunServiceImpl{
		runRepo: runRepo,
	}
}

// StartRun records a pending run
func (s *RunServiceImpl) StartRun(run *models.Run) error {
	if !run.IsPending() {
		return fmt.Errorf("%w: cannot start a %s run", models.ErrInvalidStatusTransition, run.Status)
	}
	if err := s.runRepo.CreateRun(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run that has passed, skipped or failed
func (s *RunServiceImpl) FinishRun(run *models.Run) error {
	if run.IsPending() {
		return ErrRunStillPending
	}
	if err := s.runRepo.UpdateRun(run); err != nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id
func (s *RunServiceImpl) GetRun(id string) (*models.Run, error) {
	run, err := s.runRepo.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns recorded runs, newest first
func (s *RunServiceImpl) ListRuns(filter models.RunFilter) ([]*models.Run, error) {
	runs, err := s.runRepo.ListRuns(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Summary totals the ledger
func (s *RunServiceImpl) Summary() (Summary, error) {
	counts, err := s.runRepo.CountByStatus()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarise runs: %w", err)
	}

	summary := Summary{
		Passed:  counts[models.RunStatusPassed],
		Skipped: counts[models.RunStatusSkipped],
		Failed:  counts[models.RunStatusFailed],
		Pending: counts[models.RunStatusPending],
	}
	summary.Total = summary.Passed + summary.Skipped + summary.Failed + summary.Pending
	return summary, nil
}
