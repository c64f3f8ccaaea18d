package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Progress statuses. A unit moves pending -> completed or pending -> error;
// absence of a row means the unit was never attempted.
const (
	ProgressPending   = "pending"
	ProgressCompleted = "completed"
	ProgressError     = "error"
)

// Progress is one ledger row for a (family, hierarchical unit) pair.
type Progress struct {
	Family       string    `json:"family"`
	Unit         string    `json:"unit"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetProgress records the state of one hierarchical unit. The ledger exists
// for observability and resumability; data correctness never depends on it.
func (s *Store) SetProgress(ctx context.Context, family, unit, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO crawl_progress (family, unit, status, error_message, updated_at)
VALUES (?,?,?,?,?)
ON CONFLICT(family, unit) DO UPDATE SET
    status        = excluded.status,
    error_message = excluded.error_message,
    updated_at    = excluded.updated_at`,
		family, unit, status, errMsg, now())
	if err != nil {
		return fmt.Errorf("set progress %s/%s: %w", family, unit, err)
	}
	return nil
}

// ListProgress returns the ledger rows for one family in unit order.
func (s *Store) ListProgress(ctx context.Context, family string) ([]Progress, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT family, unit, status, COALESCE(error_message,''), updated_at
FROM crawl_progress WHERE family = ? ORDER BY unit`, family)
	if err != nil {
		return nil, fmt.Errorf("list progress %s: %w", family, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Progress
	for rows.Next() {
		var p Progress
		var updated string
		if err := rows.Scan(&p.Family, &p.Unit, &p.Status, &p.ErrorMessage, &updated); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.UpdatedAt = parseTime(updated)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}
	return out, nil
}

// StartRun records a new crawl invocation and returns its id.
func (s *Store) StartRun(ctx context.Context, families []string) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO crawl_runs (run_id, families, status, started_at)
VALUES (?,?,?,?)`,
		runID, strings.Join(families, ","), "running", now())
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

// FinishRun closes out a crawl invocation record.
func (s *Store) FinishRun(ctx context.Context, runID, status, note string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE crawl_runs SET status = ?, note = ?, finished_at = ? WHERE run_id = ?`,
		status, note, now(), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}
