package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adyen/marketprobe/internal/database"
	"github.com/adyen/marketprobe/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// RunRepository handles database operations for runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{
		db: database.DB,
	}
}

// NewRunRepositoryWithDB creates a new run repository with a specific database connection
func NewRunRepositoryWithDB(db *sql.DB) *RunRepository {
	return &RunRepository{
		db: db,
	}
}

const runColumns = `id, correlation_id, scenario, search_term, engine, status,
	COALESCE(reason, ''), COALESCE(product_url, ''), COALESCE(product_title, ''),
	COALESCE(challenge_outcome, ''), COALESCE(screenshot_path, ''), COALESCE(html_path, ''),
	started_at, finished_at`

// CreateRun inserts a new run
func (r *RunRepository) CreateRun(run *models.Run) error {
	query := `
		INSERT INTO runs (id, correlation_id, scenario, search_term, engine, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := r.db.Exec(query,
		run.ID,
		run.CorrelationID,
		run.Scenario,
		run.SearchTerm,
		run.Engine,
		run.Status,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// UpdateRun stores the outcome fields of a run
func (r *RunRepository) UpdateRun(run *models.Run) error {
	query := `
		UPDATE runs
		SET status = $1, reason = $2, product_url = $3, product_title = $4,
		    challenge_outcome = $5, screenshot_path = $6, html_path = $7, finished_at = $8
		WHERE id = $9
	`

	var finished sql.NullTime
	if !run.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: run.FinishedAt, Valid: true}
	}

	result, err := r.db.Exec(query,
		run.Status,
		run.Reason,
		run.ProductURL,
		run.ProductTitle,
		run.ChallengeOutcome,
		run.ScreenshotPath,
		run.HTMLPath,
		finished,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRun retrieves a run by its id
func (r *RunRepository) GetRun(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first
func (r *RunRepository) ListRuns(filter models.RunFilter) ([]*models.Run, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Scenario != "" {
		args = append(args, filter.Scenario)
		where = append(where, fmt.Sprintf("scenario = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// CountByStatus returns how many runs ended in each status
func (r *RunRepository) CountByStatus() (map[models.RunStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := map[models.RunStatus]int{}
	for rows.Next() {
		var status models.RunStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.Run, error) {
	run := &models.Run{}
	var finished sql.NullTime
	err := s.Scan(
		&run.ID,
		&run.CorrelationID,
		&run.Scenario,
		&run.SearchTerm,
		&run.Engine,
		&run.Status,
		&run.Reason,
		&run.ProductURL,
		&run.ProductTitle,
		&run.ChallengeOutcome,
		&run.ScreenshotPath,
		&run.HTMLPath,
		&run.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}
