package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
	"gopkg.in/yaml.v3"
)

// CreateRun begins a new run of the given job type with its configuration.
func (s *SQLiteStore) CreateRun(ctx context.Context, jobType string, config map[string]any) (*core.Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	encoded, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	run := &core.Run{
		ID:        generateID(),
		JobType:   jobType,
		Status:    core.RunStatusRunning,
		Config:    config,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("job_type", jobType))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job_type, status, config, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.JobType, string(run.Status), string(encoded), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_type, status, config, started_at, completed_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as completed.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(core.RunStatusCompleted), formatTime(now), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	s.logger.Debug("completed run", slog.String("id", id))
	return nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_type, status, config, started_at, completed_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.Run, error) {
	var (
		run         core.Run
		status      string
		config      string
		startedAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &run.JobType, &status, &config, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}

	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &run.Config); err != nil {
			return nil, fmt.Errorf("failed to decode run config: %w", err)
		}
	}

	return &run, nil
}
