package manifest

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one capture attempt.
type Run struct {
	ID           int64
	DeviceSerial string
	ArchivePath  string
	StartedAt    time.Time
	FinishedAt   *time.Time
	OK           bool
	Error        string
	Artifacts    []Artifact
}

// Artifact is a file a run tried to capture.
type Artifact struct {
	Name       string
	RemotePath string
	Size       int64
	Error      string
}

// StartRun records the start of a capture and returns its ID.
func (m *DB) StartRun(startedAt time.Time) (int64, error) {
	res, err := m.db.Exec(`INSERT INTO runs (started_at) VALUES (?)`, startedAt)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run together with its artifacts.
func (m *DB) FinishRun(id int64, run Run) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE runs SET device_serial = ?, archive_path = ?, finished_at = ?, ok = ?, error = ?
		 WHERE id = ?`,
		run.DeviceSerial, run.ArchivePath, time.Now(), run.OK, run.Error, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	for _, a := range run.Artifacts {
		_, err := tx.Exec(
			`INSERT INTO artifacts (run_id, name, remote_path, size, error) VALUES (?, ?, ?, ?, ?)`,
			id, a.Name, a.RemotePath, a.Size, a.Error,
		)
		if err != nil {
			return fmt.Errorf("record artifact %s: %w", a.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first, with their artifacts.
func (m *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := m.db.Query(
		`SELECT id, device_serial, archive_path, started_at, finished_at, ok, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.DeviceSerial, &r.ArchivePath, &r.StartedAt, &finished, &r.OK, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		artifacts, err := m.artifacts(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Artifacts = artifacts
	}
	return runs, nil
}

func (m *DB) artifacts(runID int64) ([]Artifact, error) {
	rows, err := m.db.Query(
		`SELECT name, remote_path, size, error FROM artifacts WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Name, &a.RemotePath, &a.Size, &a.Error); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
