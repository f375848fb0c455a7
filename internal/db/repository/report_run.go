package repository

import (
	"context"
	"database/sql"
	"time"

	"omni-reports/internal/domain"
)

var _ domain.ReportRunRepository = (*ReportRunRepo)(nil)

const defaultListLimit = 50

// ReportRunRepo stores the report submission history in SQLite.
type ReportRunRepo struct {
	db *sql.DB
}

// NewReportRunRepo creates a new ReportRunRepo.
func NewReportRunRepo(db *sql.DB) *ReportRunRepo {
	return &ReportRunRepo{db: db}
}

// Create inserts a new report run.
func (r *ReportRunRepo) Create(ctx context.Context, run *domain.ReportRun) (*domain.ReportRun, error) {
	if run == nil {
		return nil, domain.ErrValidation("report run is required")
	}
	if run.ID == "" {
		run.ID = domain.NewID()
	}
	if run.State == "" {
		run.State = domain.ReportRunUnsubmitted
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_runs (id, suite_id, kind, request_id, state, spec_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.SuiteID, run.Kind, run.RequestID, string(run.State), run.SpecJSON)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, run.ID)
}

// MarkQueued records the remote request id of a queued run.
func (r *ReportRunRepo) MarkQueued(ctx context.Context, id, requestID string) error {
	return r.exec(ctx, id, `
		UPDATE report_runs
		SET state = ?, request_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.ReportRunQueued), requestID, id)
}

// MarkComplete records the timing of a finished run.
func (r *ReportRunRepo) MarkComplete(ctx context.Context, id string, timing domain.Timing) error {
	return r.exec(ctx, id, `
		UPDATE report_runs
		SET state = ?, queue_seconds = ?, execution_seconds = ?, error_message = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.ReportRunComplete), timing.Queue, timing.Execution, id)
}

// MarkFailed marks a run as failed with an error message.
func (r *ReportRunRepo) MarkFailed(ctx context.Context, id, message string) error {
	return r.exec(ctx, id, `
		UPDATE report_runs
		SET state = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.ReportRunFailed), message, id)
}

// MarkCancelled marks a run as cancelled.
func (r *ReportRunRepo) MarkCancelled(ctx context.Context, id string) error {
	return r.exec(ctx, id, `
		UPDATE report_runs
		SET state = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(domain.ReportRunCancelled), id)
}

// GetByID returns a report run by ID.
func (r *ReportRunRepo) GetByID(ctx context.Context, id string) (*domain.ReportRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, suite_id, kind, request_id, state, spec_json, error_message,
		       queue_seconds, execution_seconds, created_at, updated_at
		FROM report_runs WHERE id = ?
	`, id)
	run, err := scanReportRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("report run %q not found", id)
		}
		return nil, mapDBError(err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// uses the default of 50.
func (r *ReportRunRepo) List(ctx context.Context, limit int) ([]domain.ReportRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, suite_id, kind, request_id, state, spec_json, error_message,
		       queue_seconds, execution_seconds, created_at, updated_at
		FROM report_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ReportRun
	for rows.Next() {
		run, err := scanReportRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *ReportRunRepo) exec(ctx context.Context, id, stmt string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("report run %q not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReportRun(s scanner) (*domain.ReportRun, error) {
	var (
		run                  domain.ReportRun
		state                string
		errorMessage         sql.NullString
		queueSecs, execSecs  sql.NullFloat64
		createdAt, updatedAt time.Time
	)
	err := s.Scan(
		&run.ID,
		&run.SuiteID,
		&run.Kind,
		&run.RequestID,
		&state,
		&run.SpecJSON,
		&errorMessage,
		&queueSecs,
		&execSecs,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.State = domain.ReportRunState(state)
	run.CreatedAt = createdAt
	run.UpdatedAt = updatedAt
	if errorMessage.Valid {
		msg := errorMessage.String
		run.ErrorMessage = &msg
	}
	if queueSecs.Valid {
		v := queueSecs.Float64
		run.QueueSeconds = &v
	}
	if execSecs.Valid {
		v := execSecs.Float64
		run.ExecutionSeconds = &v
	}
	return &run, nil
}
