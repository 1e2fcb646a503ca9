// Package reconcile synchronizes the persistent match collection with a fresh
// snapshot: insert new matches, update changed ones, close vanished ones.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jachtproef/internal/globaltime"
	"horse.fit/jachtproef/internal/record"
)

// ErrEmptySnapshot rejects a reconcile that would close every open match.
var ErrEmptySnapshot = errors.New("refusing to reconcile an empty snapshot")

// Summary counts successful store operations only.
type Summary struct {
	Inserted  int
	Updated   int
	Unchanged int
	Closed    int
	Errors    int
}

// Upserted is Inserted plus Updated.
func (s Summary) Upserted() int {
	return s.Inserted + s.Updated
}

type Engine struct {
	store  Store
	logger zerolog.Logger
}

func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// Reconcile upserts every snapshot record and closes open matches whose key
// is absent from the snapshot. A failing record is logged and skipped; only a
// failure to list open matches or a cancelled context aborts the call.
func (e *Engine) Reconcile(ctx context.Context, snapshot []record.Normalized) (Summary, error) {
	if e == nil || e.store == nil {
		return Summary{}, fmt.Errorf("reconcile engine is not initialized")
	}
	if len(snapshot) == 0 {
		return Summary{}, ErrEmptySnapshot
	}

	var summary Summary
	now := globaltime.UTC()
	freshKeys := make(map[record.Key]struct{}, len(snapshot))

	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		freshKeys[rec.Key()] = struct{}{}

		outcome, err := e.upsert(ctx, rec, now)
		if err != nil {
			summary.Errors++
			e.logger.Warn().
				Err(err).
				Str("date", rec.Date.Format(record.DateLayout)).
				Str("organizer", rec.OrganizerRaw).
				Str("location", rec.LocationRaw).
				Msg("upsert match failed")
			continue
		}
		switch outcome {
		case outcomeInserted:
			summary.Inserted++
		case outcomeUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}

	closed, failed, err := e.closeWhere(ctx, func(m Stored) bool {
		_, present := freshKeys[m.Key()]
		return !present
	})
	summary.Closed += closed
	summary.Errors += failed
	if err != nil {
		return summary, err
	}

	return summary, nil
}

// CloseExpired closes open matches dated before the given day.
func (e *Engine) CloseExpired(ctx context.Context, before time.Time) (Summary, error) {
	if e == nil || e.store == nil {
		return Summary{}, fmt.Errorf("reconcile engine is not initialized")
	}

	cutoff := time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, time.UTC)
	closed, failed, err := e.closeWhere(ctx, func(m Stored) bool {
		return m.Date.Before(cutoff)
	})
	return Summary{Closed: closed, Errors: failed}, err
}

type upsertOutcome int

const (
	outcomeUnchanged upsertOutcome = iota
	outcomeInserted
	outcomeUpdated
)

func (e *Engine) upsert(ctx context.Context, rec record.Normalized, now time.Time) (upsertOutcome, error) {
	fresh := FromRecord(rec, now)

	current, err := e.store.FindByKey(ctx, rec.Key())
	if errors.Is(err, ErrNotFound) {
		if _, err := e.store.Insert(ctx, fresh); err != nil {
			return outcomeUnchanged, fmt.Errorf("insert match: %w", err)
		}
		return outcomeInserted, nil
	}
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("find match: %w", err)
	}

	patch := Diff(current, fresh)
	if patch.Empty() {
		return outcomeUnchanged, nil
	}
	if err := e.store.Update(ctx, current.ID, patch); err != nil {
		return outcomeUnchanged, fmt.Errorf("update match %s: %w", current.ID, err)
	}
	return outcomeUpdated, nil
}

func (e *Engine) closeWhere(ctx context.Context, shouldClose func(Stored) bool) (closed, failed int, err error) {
	open, err := e.store.ListOpen(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list open matches: %w", err)
	}

	status := record.StatusClosed
	for _, match := range open {
		if err := ctx.Err(); err != nil {
			return closed, failed, err
		}
		if match.RegistrationStatus == record.StatusClosed || !shouldClose(match) {
			continue
		}
		if err := e.store.Update(ctx, match.ID, Patch{RegistrationStatus: &status}); err != nil {
			failed++
			e.logger.Warn().
				Err(err).
				Str("match_id", match.ID).
				Str("date", match.Date.Format(record.DateLayout)).
				Msg("close match failed")
			continue
		}
		closed++
	}
	return closed, failed, nil
}
