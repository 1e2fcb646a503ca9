package dedupe

import (
	"reflect"
	"testing"
	"time"

	"horse.fit/jachtproef/internal/record"
	"horse.fit/jachtproef/internal/similarity"
	"horse.fit/jachtproef/internal/textnorm"
)

func makeRecord(date, organizer, location, calendar string) record.Normalized {
	parsed, err := time.Parse(record.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return record.Normalized{
		Date:             parsed,
		OrganizerRaw:     organizer,
		OrganizerKey:     textnorm.Key(organizer),
		LocationRaw:      location,
		LocationKey:      textnorm.Key(location),
		SourceCalendarID: calendar,
	}
}

func TestDedupeFirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	records := []record.Normalized{
		makeRecord("2025-07-24", "Stichting X", "Utrecht", "Veldwedstrijd"),
		makeRecord("2025-07-25", "KC Twente", "Enschede", "Jachthondenproef"),
		makeRecord("2025-07-24", "Stichting X i.s.m. Vereniging Y", "Utrecht", "ORWEJA Werktest"),
		makeRecord("2025-07-24", "stichting x [email protected]", "UTRECHT", "Jachthondenproef"),
	}

	got := Dedupe(records)
	if len(got) != 2 {
		t.Fatalf("unexpected survivor count: %d", len(got))
	}
	if got[0].SourceCalendarID != "Veldwedstrijd" || got[1].OrganizerRaw != "KC Twente" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	t.Parallel()

	records := []record.Normalized{
		makeRecord("2025-07-24", "Stichting X", "Utrecht", "Veldwedstrijd"),
		makeRecord("2025-07-24", "Stichting X", "Utrecht", "Veldwedstrijd"),
		makeRecord("2025-08-01", "KC Twente", "Enschede", "Jachthondenproef"),
	}

	once := Dedupe(records)
	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected dedupe to be idempotent: %+v vs %+v", once, twice)
	}
}

func TestAcrossSourcesKeepsHigherPriority(t *testing.T) {
	t.Parallel()

	records := []record.Normalized{
		makeRecord("2025-09-13", "KC De Peel", "Deurne", "public"),
		makeRecord("2025-09-13", "Stichting KC De Peel", "Landgoed Deurne", "Jachthondenproef"),
		makeRecord("2025-09-13", "Jachtvereniging Hubertus", "Zeeland", "public"),
		makeRecord("2025-09-14", "KC De Peel", "Deurne", "Jachthondenproef"),
	}

	got := AcrossSources(records, Options{Priority: []string{"Veldwedstrijd", "Jachthondenproef"}})
	if len(got) != 3 {
		t.Fatalf("unexpected survivor count: %d (%+v)", len(got), got)
	}
	if got[0].SourceCalendarID != "Jachthondenproef" || got[0].OrganizerRaw != "Stichting KC De Peel" {
		t.Fatalf("expected higher priority calendar to win the slot, got %+v", got[0])
	}
	if got[1].OrganizerRaw != "Jachtvereniging Hubertus" {
		t.Fatalf("unexpected second survivor: %+v", got[1])
	}
	if got[2].Date.Format(record.DateLayout) != "2025-09-14" {
		t.Fatalf("expected different day to survive, got %+v", got[2])
	}

	again := AcrossSources(got, Options{Priority: []string{"Veldwedstrijd", "Jachthondenproef"}})
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("expected cross-source pass to be idempotent")
	}
}

func TestAcrossSourcesKeepsSameCalendarEvents(t *testing.T) {
	t.Parallel()

	records := []record.Normalized{
		makeRecord("2025-07-24", "Jachtvereniging Noord", "Hoenderloo", "Jachthondenproef"),
		makeRecord("2025-07-24", "KC Twente", "Hoenderloo", "Jachthondenproef"),
		makeRecord("2025-07-24", "Jachtvereniging Zuid", "Ermelo", "Jachthondenproef"),
	}

	got := AcrossSources(records, Options{Priority: []string{"Veldwedstrijd", "Jachthondenproef"}})
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("expected all same-calendar events to survive, got %+v", got)
	}
}

func TestAcrossSourcesUsesConfiguredMeasure(t *testing.T) {
	t.Parallel()

	records := []record.Normalized{
		makeRecord("2025-07-24", "KC Twente", "Hoenderloo", "Veldwedstrijd"),
		makeRecord("2025-07-24", "Jachtvereniging Noord", "Hoenderlo", "Jachthondenproef"),
	}

	if got := AcrossSources(records, Options{}); len(got) != 1 {
		t.Fatalf("expected character overlap to merge near-identical locations, got %+v", got)
	}
	got := AcrossSources(records, Options{Measure: similarity.MeasureTokenJaccard})
	if len(got) != 2 {
		t.Fatalf("expected token jaccard to keep both listings, got %+v", got)
	}
}
