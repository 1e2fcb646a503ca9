package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/jachtproef/internal/memstore"
	"horse.fit/jachtproef/internal/reconcile"
	"horse.fit/jachtproef/internal/record"
)

func mustNormalize(t *testing.T, raw record.Raw) record.Normalized {
	t.Helper()
	rec, err := record.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize %+v: %v", raw, err)
	}
	return rec
}

func TestReconcileInsertsIntoEmptyStore(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	engine := reconcile.NewEngine(store, zerolog.Nop())
	snapshot := []record.Normalized{mustNormalize(t, record.Raw{
		Date:             "24-07-2025",
		Organizer:        "Stichting X",
		Location:         "Utrecht",
		TypeLabel:        "CAC Iets",
		SourceCalendarID: "Veldwedstrijd",
	})}

	summary, err := engine.Reconcile(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Inserted != 1 || summary.Upserted() != 1 || summary.Closed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	all := store.All()
	if len(all) != 1 {
		t.Fatalf("expected one stored match, got %d", len(all))
	}
	got := all[0]
	if got.Type != "Veldwedstrijd" || got.Remark != "Kwalificatie: CAC Iets" {
		t.Fatalf("unexpected stored type/remark: %q %q", got.Type, got.Remark)
	}
	if got.RegistrationStatus != record.StatusOpen || got.OrganizerKey != "x" {
		t.Fatalf("unexpected stored match: %+v", got.Stored)
	}
	if got.ID == "" || got.LastUpdated.IsZero() {
		t.Fatalf("expected id and last_updated to be set: %+v", got.Stored)
	}
}

func TestReconcileClosesMissingAndRefreshesPresent(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	engine := reconcile.NewEngine(store, zerolog.Nop())
	ctx := context.Background()

	a := mustNormalize(t, record.Raw{Date: "01-09-2025", Organizer: "KC Twente", Location: "Enschede", TypeLabel: "SJP", SourceCalendarID: "Jachthondenproef"})
	b := mustNormalize(t, record.Raw{Date: "02-09-2025", Organizer: "KC Drenthe", Location: "Assen", TypeLabel: "MAP", SourceCalendarID: "Jachthondenproef"})
	if _, err := engine.Reconcile(ctx, []record.Normalized{a, b}); err != nil {
		t.Fatalf("seed reconcile: %v", err)
	}

	var aID string
	for _, m := range store.All() {
		if m.OrganizerKey == a.OrganizerKey {
			aID = m.ID
		}
	}
	if !store.SetNotes(aID, "handmatig gecontroleerd") {
		t.Fatalf("expected notes to be set")
	}

	refreshed := a
	refreshed.Remark = "Alleen retrievers"
	summary, err := engine.Reconcile(ctx, []record.Normalized{refreshed})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Updated != 1 || summary.Closed != 1 || summary.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected no new records, got %d", len(all))
	}
	for _, m := range all {
		switch m.OrganizerKey {
		case a.OrganizerKey:
			if m.RegistrationStatus != record.StatusOpen {
				t.Fatalf("expected A to stay open, got %s", m.RegistrationStatus)
			}
			if m.Remark != "Alleen retrievers" {
				t.Fatalf("expected A to be refreshed, got %q", m.Remark)
			}
			if m.Notes != "handmatig gecontroleerd" {
				t.Fatalf("expected foreign column to be preserved, got %q", m.Notes)
			}
		case b.OrganizerKey:
			if m.RegistrationStatus != record.StatusClosed {
				t.Fatalf("expected B to be closed, got %s", m.RegistrationStatus)
			}
			if m.RegistrationText != b.RegistrationText {
				t.Fatalf("expected closure to touch only the status, got %q", m.RegistrationText)
			}
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	engine := reconcile.NewEngine(store, zerolog.Nop())
	ctx := context.Background()

	store.Seed(reconcile.Stored{
		OrganizerKey:       "oud",
		LocationKey:        "ergens",
		Date:               time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Organizer:          "Oud",
		Location:           "Ergens",
		RegistrationStatus: record.StatusOpen,
	})
	snapshot := []record.Normalized{
		mustNormalize(t, record.Raw{Date: "01-09-2025", Organizer: "KC Twente", Location: "Enschede", TypeLabel: "SJP", SourceCalendarID: "Jachthondenproef"}),
		mustNormalize(t, record.Raw{Date: "02-09-2025", Organizer: "KC Drenthe", Location: "Assen", TypeLabel: "MAP", SourceCalendarID: "Jachthondenproef"}),
	}

	first, err := engine.Reconcile(ctx, snapshot)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if first.Inserted != 2 || first.Closed != 1 {
		t.Fatalf("unexpected first summary: %+v", first)
	}
	writes := store.Writes()
	before := store.All()

	second, err := engine.Reconcile(ctx, snapshot)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Upserted() != 0 || second.Closed != 0 || second.Unchanged != 2 {
		t.Fatalf("unexpected second summary: %+v", second)
	}
	if store.Writes() != writes {
		t.Fatalf("expected no writes on second run, got %d more", store.Writes()-writes)
	}
	after := store.All()
	if len(after) != len(before) {
		t.Fatalf("unexpected record count change: %d -> %d", len(before), len(after))
	}
}

func TestReconcileRejectsEmptySnapshot(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed(reconcile.Stored{OrganizerKey: "a", LocationKey: "b", Date: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), RegistrationStatus: record.StatusOpen})
	engine := reconcile.NewEngine(store, zerolog.Nop())

	_, err := engine.Reconcile(context.Background(), nil)
	if !errors.Is(err, reconcile.ErrEmptySnapshot) {
		t.Fatalf("expected empty snapshot error, got %v", err)
	}
	open, _ := store.ListOpen(context.Background())
	if len(open) != 1 {
		t.Fatalf("expected open match to be untouched")
	}
}

type flakyStore struct {
	*memstore.Store
	failOrganizerKey string
}

func (f *flakyStore) Insert(ctx context.Context, match reconcile.Stored) (reconcile.Stored, error) {
	if match.OrganizerKey == f.failOrganizerKey {
		return reconcile.Stored{}, errors.New("connection reset")
	}
	return f.Store.Insert(ctx, match)
}

func TestReconcileContinuesAfterStoreFailure(t *testing.T) {
	t.Parallel()

	store := &flakyStore{Store: memstore.New(), failOrganizerKey: "twente"}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	snapshot := []record.Normalized{
		mustNormalize(t, record.Raw{Date: "01-09-2025", Organizer: "KC Twente", Location: "Enschede"}),
		mustNormalize(t, record.Raw{Date: "02-09-2025", Organizer: "KC Drenthe", Location: "Assen"}),
	}
	summary, err := engine.Reconcile(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if summary.Inserted != 1 || summary.Errors != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCloseExpired(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed(
		reconcile.Stored{OrganizerKey: "past", LocationKey: "x", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), RegistrationStatus: record.StatusOpen},
		reconcile.Stored{OrganizerKey: "today", LocationKey: "x", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), RegistrationStatus: record.StatusOpensAt},
	)
	engine := reconcile.NewEngine(store, zerolog.Nop())

	summary, err := engine.CloseExpired(context.Background(), time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("close expired: %v", err)
	}
	if summary.Closed != 1 {
		t.Fatalf("unexpected closed count: %d", summary.Closed)
	}
	open, _ := store.ListOpen(context.Background())
	if len(open) != 1 || open[0].OrganizerKey != "today" {
		t.Fatalf("unexpected open matches: %+v", open)
	}
}
