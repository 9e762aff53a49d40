package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/engine"
)

// ErrRunNotFound is returned when a run id (or the latest run) does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one recording session of the grid.
type Run struct {
	ID     string `json:"id"`
	Source string `json:"source"` // "hardware", "script:<path>", ...
	Scans  int    `json:"scans"`
}

// Scan is one journaled snapshot.
type Scan struct {
	RunID    string         `json:"run_id"`
	Seq      int64          `json:"seq"`
	Snapshot board.Snapshot `json:"snapshot"`
}

// BeginRun registers a run. Beginning an existing run again is a no-op.
func (s *Store) BeginRun(ctx context.Context, id, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, source)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", id, err)
	}
	return nil
}

// WriteScan appends a snapshot to a run. The run must exist (foreign key constraint).
// Writing the same (run, seq) twice keeps the first row.
func (s *Store) WriteScan(ctx context.Context, runID string, seq int64, snap board.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (run_id, seq, ranks)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, runID, seq, snap.Hex())
	if err != nil {
		return fmt.Errorf("write scan %s/%d: %w", runID, seq, err)
	}
	return nil
}

// ReadScans returns the scans of a run ordered by seq.
// Returns an empty slice (not nil) for a run without scans.
func (s *Store) ReadScans(ctx context.Context, runID string) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, ranks
		FROM scans
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		var sc Scan
		var ranks string
		if err := rows.Scan(&sc.RunID, &sc.Seq, &ranks); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sc.Snapshot, err = board.ParseHex(ranks)
		if err != nil {
			return nil, fmt.Errorf("run %s seq %d: %w", sc.RunID, sc.Seq, err)
		}
		scans = append(scans, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

// Snapshots returns just the snapshots of a run, in seq order.
func (s *Store) Snapshots(ctx context.Context, runID string) ([]board.Snapshot, error) {
	scans, err := s.ReadScans(ctx, runID)
	if err != nil {
		return nil, err
	}
	snaps := make([]board.Snapshot, len(scans))
	for i, sc := range scans {
		snaps[i] = sc.Snapshot
	}
	return snaps, nil
}

// CountMatching returns how many scans of a run show exactly snap.
func (s *Store) CountMatching(ctx context.Context, runID string, snap board.Snapshot) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scans WHERE run_id = ? AND ranks = ?
	`, runID, snap.Hex()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count matching scans: %w", err)
	}
	return n, nil
}

// ListRuns returns every run in the order they were begun.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.source, COUNT(sc.seq)
		FROM runs r
		LEFT JOIN scans sc ON sc.run_id = r.id
		GROUP BY r.rowid
		ORDER BY r.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Scans); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run. Returns ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.source, (SELECT COUNT(*) FROM scans WHERE run_id = r.id)
		FROM runs r
		WHERE r.id = ?
	`, id).Scan(&r.ID, &r.Source, &r.Scans)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// LatestRun returns the most recently begun run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY rowid DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// Record journals every scan notification until notes is closed or ctx is done. It runs
// on its own goroutine, fed by an engine subscription, so disk I/O never sits on the scan
// path. Write failures are logged and recording carries on.
func (s *Store) Record(ctx context.Context, runID string, notes <-chan engine.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notes:
			if !ok {
				return nil
			}
			if n.Kind != engine.NotifyScan {
				continue
			}
			if err := s.WriteScan(ctx, runID, n.Seq, n.Snapshot); err != nil {
				slog.Warn("journal write failed",
					"run", runID,
					"seq", n.Seq,
					"error", err,
				)
			}
		}
	}
}
