package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const maxRunErrorLength = 4000

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunCounts are the per-run counters written to the ledger.
type RunCounts struct {
	RecordsFetched     int `json:"records_fetched"`
	Dropped            int `json:"dropped"`
	ClassifiedFallback int `json:"classified_fallback"`
	Corrected          int `json:"corrected"`
	Duplicates         int `json:"duplicates"`
	Inserted           int `json:"inserted"`
	Updated            int `json:"updated"`
	Closed             int `json:"closed"`
	Errors             int `json:"errors"`
}

// RunView is one ledger row.
type RunView struct {
	RunUUID      string     `json:"run_uuid"`
	TriggeredBy  string     `json:"triggered_by"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	RunCounts
}

// StartRun inserts a running ledger row and returns its UUID.
func (p *Pool) StartRun(ctx context.Context, triggeredBy string, startedAt time.Time) (string, error) {
	if p == nil || p.gdb == nil {
		return "", fmt.Errorf("database pool is not initialized")
	}

	run := SyncRun{
		TriggeredBy: strings.TrimSpace(triggeredBy),
		Status:      RunStatusRunning,
		StartedAt:   startedAt.UTC(),
	}
	if run.TriggeredBy == "" {
		run.TriggeredBy = "cli"
	}
	if err := p.gdb.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("insert sync run: %w", err)
	}
	return run.RunUUID, nil
}

func (p *Pool) CompleteRun(ctx context.Context, runUUID string, counts RunCounts, finishedAt time.Time) error {
	return p.finishRun(ctx, runUUID, RunStatusCompleted, counts, nil, finishedAt)
}

func (p *Pool) FailRun(ctx context.Context, runUUID string, counts RunCounts, cause error, finishedAt time.Time) error {
	msg := "unknown error"
	if cause != nil {
		msg = strings.TrimSpace(cause.Error())
	}
	if len(msg) > maxRunErrorLength {
		msg = msg[:maxRunErrorLength]
	}
	return p.finishRun(ctx, runUUID, RunStatusFailed, counts, &msg, finishedAt)
}

func (p *Pool) finishRun(
	ctx context.Context,
	runUUID string,
	status string,
	counts RunCounts,
	errorMessage *string,
	finishedAt time.Time,
) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	const q = `
UPDATE sync_runs
SET
	status = ?,
	finished_at = ?,
	records_fetched = ?,
	dropped = ?,
	classified_fallback = ?,
	corrected = ?,
	duplicates = ?,
	inserted = ?,
	updated = ?,
	closed = ?,
	errors = ?,
	error_message = ?
WHERE run_uuid = ?
`
	tag, err := p.Exec(ctx, q,
		status,
		finishedAt.UTC(),
		counts.RecordsFetched,
		counts.Dropped,
		counts.ClassifiedFallback,
		counts.Corrected,
		counts.Duplicates,
		counts.Inserted,
		counts.Updated,
		counts.Closed,
		counts.Errors,
		errorMessage,
		runUUID,
	)
	if err != nil {
		return fmt.Errorf("mark sync run %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sync run %s not found", runUUID)
	}
	return nil
}

// ListRuns returns the newest runs first.
func (p *Pool) ListRuns(ctx context.Context, limit int) ([]RunView, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	run_uuid,
	triggered_by,
	status,
	started_at,
	finished_at,
	error_message,
	records_fetched,
	dropped,
	classified_fallback,
	corrected,
	duplicates,
	inserted,
	updated,
	closed,
	errors
FROM sync_runs
ORDER BY started_at DESC, run_id DESC
LIMIT ?
`
	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunView, 0, limit)
	for rows.Next() {
		var run RunView
		if err := rows.Scan(
			&run.RunUUID,
			&run.TriggeredBy,
			&run.Status,
			&run.StartedAt,
			&run.FinishedAt,
			&run.ErrorMessage,
			&run.RecordsFetched,
			&run.Dropped,
			&run.ClassifiedFallback,
			&run.Corrected,
			&run.Duplicates,
			&run.Inserted,
			&run.Updated,
			&run.Closed,
			&run.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan sync run row: %w", err)
		}
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = utcPtr(run.FinishedAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync run rows: %w", err)
	}
	return runs, nil
}

// RunLocker guards a named lock row in run_locks. A holder that does not
// release within ttl loses the lock to the next caller.
type RunLocker struct {
	pool *Pool
	name string
	ttl  time.Duration
	now  func() time.Time
}

func (p *Pool) RunLocker(name string, ttl time.Duration, now func() time.Time) *RunLocker {
	if now == nil {
		now = time.Now
	}
	return &RunLocker{
		pool: p,
		name: name,
		ttl:  ttl,
		now:  now,
	}
}

// TryLock takes the lock for holder. It reports false when another holder
// owns an unexpired lock.
func (l *RunLocker) TryLock(ctx context.Context, holder string) (bool, error) {
	if l == nil || l.pool == nil || l.pool.gdb == nil {
		return false, fmt.Errorf("run locker is not initialized")
	}
	if strings.TrimSpace(holder) == "" {
		return false, fmt.Errorf("lock holder is required")
	}

	now := l.now().UTC()
	staleBefore := now.Add(-l.ttl)

	var acquired bool
	err := l.pool.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := RunLock{Name: l.name}
		if err := tx.Where(RunLock{Name: l.name}).FirstOrCreate(&seed).Error; err != nil {
			return fmt.Errorf("ensure run lock row: %w", err)
		}

		res := tx.Model(&RunLock{}).
			Where("name = ?", l.name).
			Where("(holder = '' OR holder = ? OR acquired_at IS NULL OR acquired_at < ?)", holder, staleBefore).
			Updates(map[string]any{
				"holder":      holder,
				"acquired_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("acquire run lock: %w", res.Error)
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Unlock releases the lock if holder owns it.
func (l *RunLocker) Unlock(ctx context.Context, holder string) error {
	if l == nil || l.pool == nil || l.pool.gdb == nil {
		return fmt.Errorf("run locker is not initialized")
	}

	err := l.pool.gdb.WithContext(ctx).
		Model(&RunLock{}).
		Where("name = ? AND holder = ?", l.name, holder).
		Updates(map[string]any{
			"holder":      "",
			"acquired_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
