package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents valid run states
type RunStatus string

// Run statuses
const (
	RunStatusPending RunStatus = "pending"
	RunStatusPassed  RunStatus = "passed"
	RunStatusSkipped RunStatus = "skipped"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one execution of a scenario against the live site
type Run struct {
	ID               string
	CorrelationID    string
	Scenario         string
	SearchTerm       string
	Engine           string
	Status           RunStatus
	Reason           string
	ProductURL       string
	ProductTitle     string
	ChallengeOutcome string
	ScreenshotPath   string
	HTMLPath         string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// RunFilter narrows run listings. Zero values match everything.
type RunFilter struct {
	Scenario string
	Status   RunStatus
	Limit    int
}

// Domain errors
var (
	ErrInvalidScenario         = errors.New("scenario name cannot be empty")
	ErrInvalidEngine           = errors.New("browser engine cannot be empty")
	ErrMissingReason           = errors.New("a skipped or failed run needs a reason")
	ErrInvalidStatusTransition = errors.New("invalid run status transition")
)

// NewRun creates a pending run with fresh identifiers
func NewRun(scenario, searchTerm, engine string) (*Run, error) {
	if scenario == "" {
		return nil, ErrInvalidScenario
	}
	if engine == "" {
		return nil, ErrInvalidEngine
	}

	return &Run{
		ID:            uuid.New().String(),
		CorrelationID: uuid.New().String(),
		Scenario:      scenario,
		SearchTerm:    searchTerm,
		Engine:        engine,
		Status:        RunStatusPending,
		StartedAt:     time.Now(),
	}, nil
}

func (r *Run) finish(status RunStatus, reason string) error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: cannot mark %s run as %s", ErrInvalidStatusTransition, r.Status, status)
	}
	r.Status = status
	r.Reason = reason
	r.FinishedAt = time.Now()
	return nil
}

// Pass marks the run as passed
func (r *Run) Pass() error {
	return r.finish(RunStatusPassed, "")
}

// Skip marks the run as skipped because the site did not offer what the
// scenario needs
func (r *Run) Skip(reason string) error {
	if reason == "" {
		return ErrMissingReason
	}
	return r.finish(RunStatusSkipped, reason)
}

// Fail marks the run as failed
func (r *Run) Fail(reason string) error {
	if reason == "" {
		return ErrMissingReason
	}
	return r.finish(RunStatusFailed, reason)
}

// IsPending returns true if the run has not finished
func (r *Run) IsPending() bool {
	return r.Status == RunStatusPending
}

// IsFailed returns true if the run failed
func (r *Run) IsFailed() bool {
	return r.Status == RunStatusFailed
}

// IsSkipped returns true if the run was skipped
func (r *Run) IsSkipped() bool {
	return r.Status == RunStatusSkipped
}

// Duration returns how long the run took, or zero while pending
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// GetFormattedDuration returns the duration rounded to milliseconds
func (r *Run) GetFormattedDuration() string {
	if r.IsPending() {
		return "running"
	}
	return r.Duration().Round(time.Millisecond).String()
}
