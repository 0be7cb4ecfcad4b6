package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"catmig/internal/logging"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one migration execution.
type Run struct {
	ID             string
	Kind           string
	SourceSchema   string
	TargetSchema   string
	SourceInstance string
	TargetInstance string
	Rows           int
	Solver         string
	Duration       time.Duration
	Status         string
	Error          string
	CreatedAt      time.Time
}

// RecordRun appends r to the run log. An empty ID or CreatedAt is filled in.
func (s *LocalStore) RecordRun(ctx context.Context, r Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_runs
			(id, kind, source_schema, target_schema, source_instance, target_instance,
			 rows, solver, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.SourceSchema, r.TargetSchema, r.SourceInstance, r.TargetInstance,
		r.Rows, r.Solver, r.Duration.Milliseconds(), r.Status, r.Error, r.CreatedAt.UnixNano())
	if err != nil {
		logging.StoreError("Failed to record %s run: %v", r.Kind, err)
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	logging.StoreDebug("Recorded %s run %s: %s -> %s (%s)", r.Kind, r.ID, r.SourceSchema, r.TargetSchema, r.Status)
	return r.ID, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns all of them.
func (s *LocalStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, source_schema, target_schema, source_instance, target_instance,
			rows, solver, duration_ms, status, error, created_at
		FROM migration_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []Run
	err = scanRows(rows, func() error {
		var r Run
		var durationMS, created int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.SourceSchema, &r.TargetSchema, &r.SourceInstance,
			&r.TargetInstance, &r.Rows, &r.Solver, &durationMS, &r.Status, &r.Error, &created); err != nil {
			return err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
		return nil
	})
	return runs, err
}
