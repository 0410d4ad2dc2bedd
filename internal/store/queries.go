package store

import (
	"database/sql"
	"fmt"
	"time"
)

// BeginRun inserts a new run row and returns its ID.
func (s *Store) BeginRun(startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, status) VALUES (?, ?)`,
		startedAt.UTC().Format(time.RFC3339), RunStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// FinishRun records the final status and finish time of a run.
func (s *Store) FinishRun(runID int64, status string, finishedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt.UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

// RecordStageEvent appends one stage outcome to a run.
func (s *Store) RecordStageEvent(runID int64, stage, status, detail string, duration time.Duration) error {
	_, err := s.db.Exec(
		`INSERT INTO stage_events (run_id, stage, status, detail, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, status, detail, duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record stage event for run %d: %w", runID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, status
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if finished.Valid {
			if r.FinishedAt, err = time.Parse(time.RFC3339, finished.String); err != nil {
				return nil, fmt.Errorf("failed to parse finished_at: %w", err)
			}
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// ListStageEvents returns all stage events for a run in insertion order.
func (s *Store) ListStageEvents(runID int64) ([]*StageEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, stage, status, detail, duration_ms, recorded_at
		 FROM stage_events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage events: %w", err)
	}
	defer rows.Close()

	var events []*StageEvent
	for rows.Next() {
		var e StageEvent
		var durationMS int64
		var recorded string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Stage, &e.Status, &e.Detail, &durationMS, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan stage event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.RecordedAt, err = time.Parse(time.RFC3339, recorded); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
