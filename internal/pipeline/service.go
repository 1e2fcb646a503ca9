package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/jachtproef/internal/db"
	"horse.fit/jachtproef/internal/dedupe"
	"horse.fit/jachtproef/internal/globaltime"
	"horse.fit/jachtproef/internal/matcher"
	"horse.fit/jachtproef/internal/metrics"
	"horse.fit/jachtproef/internal/reconcile"
	"horse.fit/jachtproef/internal/record"
	"horse.fit/jachtproef/internal/source"
	"horse.fit/jachtproef/internal/taxonomy"
)

const (
	defaultWorkers       = 4
	defaultSourceTimeout = 30 * time.Second
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// Locker is a cross-process run lock.
type Locker interface {
	TryLock(ctx context.Context, holder string) (bool, error)
	Unlock(ctx context.Context, holder string) error
}

// Ledger records run outcomes; *db.Pool implements it.
type Ledger interface {
	StartRun(ctx context.Context, triggeredBy string, startedAt time.Time) (string, error)
	CompleteRun(ctx context.Context, runUUID string, counts db.RunCounts, finishedAt time.Time) error
	FailRun(ctx context.Context, runUUID string, counts db.RunCounts, cause error, finishedAt time.Time) error
}

// Deps are the collaborators of a Service. Locker, Ledger and Metrics are
// optional.
type Deps struct {
	Sources []source.Source
	Store   reconcile.Store
	Locker  Locker
	Ledger  Ledger
	Metrics *metrics.Metrics
}

type Options struct {
	Classifier    record.Classifier
	Dedupe        dedupe.Options
	Match         matcher.Options
	Correction    matcher.Correction
	Workers       int
	SourceTimeout time.Duration
	// CloseExpired closes open past-dated matches after each reconcile.
	CloseExpired bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Classifier:    taxonomy.Default,
		Dedupe:        dedupe.Options{Threshold: dedupe.DefaultThreshold},
		Match:         matcher.DefaultOptions(),
		Correction:    matcher.DefaultCorrection(),
		Workers:       defaultWorkers,
		SourceTimeout: defaultSourceTimeout,
		CloseExpired:  true,
	}
}

// Summary reports one run. Counters other than Fetched describe records
// removed or written at each phase.
type Summary struct {
	RunUUID            string `json:"run_uuid,omitempty"`
	Fetched            int    `json:"fetched"`
	Dropped            int    `json:"dropped"`
	ClassifiedFallback int    `json:"classified_fallback"`
	Corrected          int    `json:"corrected"`
	Duplicates         int    `json:"duplicates"`
	Inserted           int    `json:"inserted"`
	Updated            int    `json:"updated"`
	Upserted           int    `json:"upserted"`
	Closed             int    `json:"closed"`
	Errors             int    `json:"errors"`
}

// String renders the summary as space-separated key=value pairs.
func (s Summary) String() string {
	pairs := []string{
		fmt.Sprintf("fetched=%d", s.Fetched),
		fmt.Sprintf("dropped=%d", s.Dropped),
		fmt.Sprintf("classified_fallback=%d", s.ClassifiedFallback),
		fmt.Sprintf("corrected=%d", s.Corrected),
		fmt.Sprintf("duplicates=%d", s.Duplicates),
		fmt.Sprintf("upserted=%d", s.Upserted),
		fmt.Sprintf("closed=%d", s.Closed),
		fmt.Sprintf("errors=%d", s.Errors),
	}
	if s.RunUUID != "" {
		pairs = append([]string{"run=" + s.RunUUID}, pairs...)
	}
	return strings.Join(pairs, " ")
}

func (s Summary) counts() db.RunCounts {
	return db.RunCounts{
		RecordsFetched:     s.Fetched,
		Dropped:            s.Dropped,
		ClassifiedFallback: s.ClassifiedFallback,
		Corrected:          s.Corrected,
		Duplicates:         s.Duplicates,
		Inserted:           s.Inserted,
		Updated:            s.Updated,
		Closed:             s.Closed,
		Errors:             s.Errors,
	}
}

func (s *Summary) addReconcile(r reconcile.Summary) {
	s.Inserted += r.Inserted
	s.Updated += r.Updated
	s.Upserted += r.Upserted()
	s.Closed += r.Closed
	s.Errors += r.Errors
}

type Service struct {
	deps   Deps
	opts   Options
	engine *reconcile.Engine
	logger zerolog.Logger

	mu sync.Mutex
}

func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if opts.Classifier == nil {
		opts.Classifier = taxonomy.Default
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		engine: reconcile.NewEngine(deps.Store, logger),
		logger: logger,
	}
}

// Run performs one full sync: fetch, normalize, dedupe, correct, reconcile.
// A failing source aborts the run before anything is written.
func (s *Service) Run(ctx context.Context, triggeredBy string) (Summary, error) {
	if s == nil || s.deps.Store == nil {
		return Summary{}, fmt.Errorf("pipeline service is not initialized")
	}

	var summary Summary
	err := s.locked(ctx, func(ctx context.Context) error {
		started := globaltime.UTC()
		runUUID, err := s.startRun(ctx, triggeredBy, started)
		if err != nil {
			return err
		}
		summary.RunUUID = runUUID

		runErr := s.execute(ctx, &summary)
		finished := globaltime.UTC()
		s.finishRun(ctx, runUUID, summary, runErr, started, finished)
		return runErr
	})
	return summary, err
}

// CloseExpired closes open matches dated before today.
func (s *Service) CloseExpired(ctx context.Context) (Summary, error) {
	if s == nil || s.deps.Store == nil {
		return Summary{}, fmt.Errorf("pipeline service is not initialized")
	}

	var summary Summary
	err := s.locked(ctx, func(ctx context.Context) error {
		res, err := s.engine.CloseExpired(ctx, globaltime.Today(record.ListingLocation()))
		summary.addReconcile(res)
		s.deps.Metrics.AddRecords(metrics.OutcomeClosed, res.Closed)
		s.deps.Metrics.AddRecords(metrics.OutcomeStoreError, res.Errors)
		return err
	})
	return summary, err
}

// Collect fetches and normalizes every source without touching the store.
func (s *Service) Collect(ctx context.Context) ([]record.Normalized, Summary, error) {
	var summary Summary
	raws, err := s.fetchAll(ctx)
	if err != nil {
		return nil, summary, err
	}
	summary.Fetched = len(raws)

	records, err := s.normalizeAll(ctx, raws, &summary)
	if err != nil {
		return nil, summary, err
	}
	return records, summary, nil
}

// MatchCalendars pairs the listings of one calendar with those of another.
func (s *Service) MatchCalendars(ctx context.Context, left, right string) ([]matcher.Result, error) {
	records, _, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var leftRecords, rightRecords []record.Normalized
	for _, rec := range records {
		switch {
		case strings.EqualFold(rec.SourceCalendarID, left):
			leftRecords = append(leftRecords, rec)
		case strings.EqualFold(rec.SourceCalendarID, right):
			rightRecords = append(rightRecords, rec)
		}
	}
	return matcher.Match(leftRecords, rightRecords, s.opts.Match)
}

func (s *Service) execute(ctx context.Context, summary *Summary) error {
	records, collected, err := s.Collect(ctx)
	*summary = mergeCollected(*summary, collected)
	if err != nil {
		return err
	}

	deduped := dedupe.Dedupe(records)
	deduped = dedupe.AcrossSources(deduped, s.opts.Dedupe)
	summary.Duplicates = len(records) - len(deduped)

	kept, corrected, err := matcher.Correct(deduped, s.opts.Correction)
	if err != nil {
		return fmt.Errorf("correct generic listings: %w", err)
	}
	summary.Corrected = len(corrected)
	for _, res := range corrected {
		s.logger.Debug().
			Str("date", res.Left.Date.Format(record.DateLayout)).
			Str("organizer", res.Left.OrganizerRaw).
			Str("corrected_type", res.Right.TypeCode).
			Float64("score", res.Score).
			Msg("generic listing folded into specific listing")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	s.deps.Metrics.SetSnapshotSize(len(kept))

	res, err := s.engine.Reconcile(ctx, kept)
	summary.addReconcile(res)
	if err != nil {
		return fmt.Errorf("reconcile snapshot: %w", err)
	}

	if s.opts.CloseExpired {
		expired, err := s.engine.CloseExpired(ctx, globaltime.Today(record.ListingLocation()))
		summary.addReconcile(expired)
		if err != nil {
			return fmt.Errorf("close expired matches: %w", err)
		}
	}
	return nil
}

func mergeCollected(summary, collected Summary) Summary {
	summary.Fetched = collected.Fetched
	summary.Dropped = collected.Dropped
	summary.ClassifiedFallback = collected.ClassifiedFallback
	return summary
}

func (s *Service) fetchAll(ctx context.Context) ([]record.Raw, error) {
	if len(s.deps.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	batches := make([][]record.Raw, len(s.deps.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.deps.Sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.opts.SourceTimeout)
			defer cancel()

			raws, err := src.Fetch(fetchCtx)
			if err != nil {
				return fmt.Errorf("fetch source %s: %w", src.Name(), err)
			}
			batches[i] = raws
			s.logger.Debug().
				Str("source", src.Name()).
				Int("records", len(raws)).
				Msg("source fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	out := make([]record.Raw, 0, total)
	for _, batch := range batches {
		out = append(out, batch...)
	}
	return out, nil
}

type normalizeOutcome struct {
	rec record.Normalized
	err error
}

func (s *Service) normalizeAll(ctx context.Context, raws []record.Raw, summary *Summary) ([]record.Normalized, error) {
	outcomes := make([]normalizeOutcome, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := record.NormalizeWith(raws[i], s.opts.Classifier)
			outcomes[i] = normalizeOutcome{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]record.Normalized, 0, len(raws))
	for i, outcome := range outcomes {
		if outcome.err != nil {
			summary.Dropped++
			s.logger.Debug().
				Err(outcome.err).
				Str("calendar", raws[i].SourceCalendarID).
				Str("date", raws[i].Date).
				Str("organizer", raws[i].Organizer).
				Msg("dropping malformed listing")
			continue
		}
		if outcome.rec.TypeFallthrough {
			summary.ClassifiedFallback++
			s.logger.Debug().
				Str("calendar", outcome.rec.SourceCalendarID).
				Str("type", outcome.rec.TypeCode).
				Msg("type label matched no rule")
		}
		records = append(records, outcome.rec)
	}
	return records, nil
}

func (s *Service) locked(ctx context.Context, fn func(context.Context) error) error {
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	defer s.mu.Unlock()

	if s.deps.Locker == nil {
		return fn(ctx)
	}

	holder := uuid.NewString()
	acquired, err := s.deps.Locker.TryLock(ctx, holder)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return ErrRunInProgress
	}
	defer func() {
		if err := s.deps.Locker.Unlock(context.WithoutCancel(ctx), holder); err != nil {
			s.logger.Warn().Err(err).Msg("release run lock failed")
		}
	}()

	return fn(ctx)
}

func (s *Service) startRun(ctx context.Context, triggeredBy string, started time.Time) (string, error) {
	if s.deps.Ledger == nil {
		return "", nil
	}
	runUUID, err := s.deps.Ledger.StartRun(ctx, triggeredBy, started)
	if err != nil {
		return "", fmt.Errorf("start sync run: %w", err)
	}
	return runUUID, nil
}

func (s *Service) finishRun(ctx context.Context, runUUID string, summary Summary, runErr error, started, finished time.Time) {
	status := db.RunStatusCompleted
	if runErr != nil {
		status = db.RunStatusFailed
	}

	m := s.deps.Metrics
	m.ObserveRun(status, started, finished)
	m.AddRecords(metrics.OutcomeDropped, summary.Dropped)
	m.AddRecords(metrics.OutcomeFallback, summary.ClassifiedFallback)
	m.AddRecords(metrics.OutcomeCorrected, summary.Corrected)
	m.AddRecords(metrics.OutcomeDuplicate, summary.Duplicates)
	m.AddRecords(metrics.OutcomeInserted, summary.Inserted)
	m.AddRecords(metrics.OutcomeUpdated, summary.Updated)
	m.AddRecords(metrics.OutcomeClosed, summary.Closed)
	m.AddRecords(metrics.OutcomeStoreError, summary.Errors)

	event := s.logger.Info()
	if runErr != nil {
		event = s.logger.Error().Err(runErr)
	}
	event.
		Str("run_uuid", runUUID).
		Int("fetched", summary.Fetched).
		Int("dropped", summary.Dropped).
		Int("duplicates", summary.Duplicates).
		Int("corrected", summary.Corrected).
		Int("upserted", summary.Upserted).
		Int("closed", summary.Closed).
		Int("errors", summary.Errors).
		Dur("duration", finished.Sub(started)).
		Msg("sync run finished")

	if s.deps.Ledger == nil || runUUID == "" {
		return
	}
	ledgerCtx := context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = s.deps.Ledger.FailRun(ledgerCtx, runUUID, summary.counts(), runErr, finished)
	} else {
		err = s.deps.Ledger.CompleteRun(ledgerCtx, runUUID, summary.counts(), finished)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("run_uuid", runUUID).Msg("record sync run failed")
	}
}
