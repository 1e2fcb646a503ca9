package record

import (
	"errors"
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"24-07-2025",
		"2025-07-24",
		"24/07/2025",
		"2025/07/24",
		"24-07-25",
		"24/07/25",
		"do 24-7-2025",
		" 24-07-2025 ",
	}
	for _, input := range inputs {
		got, err := ParseDate(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("unexpected date for %q: %s", input, got)
		}
	}
}

func TestParseDateRejects(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "binnenkort", "31-02-2025", "2025"} {
		_, err := ParseDate(input)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected malformed error for %q, got %v", input, err)
		}
	}
}

func TestParseRegistration(t *testing.T) {
	t.Parallel()

	if got := ParseRegistration(""); got.State != StatusOpen {
		t.Fatalf("expected empty text to be open, got %+v", got)
	}
	if got := ParseRegistration("Inschrijven"); got.State != StatusOpen {
		t.Fatalf("expected open, got %+v", got)
	}
	if got := ParseRegistration("Niet meer mogelijk"); got.State != StatusClosed {
		t.Fatalf("expected closed, got %+v", got)
	}
	if got := ParseRegistration("inschrijving niet mogelijk"); got.State != StatusClosed {
		t.Fatalf("expected closed, got %+v", got)
	}
	if got := ParseRegistration("Proef is vol"); got.State != StatusClosed {
		t.Fatalf("expected closed, got %+v", got)
	}

	got := ParseRegistration("Vanaf 01-06-2025 20:00")
	if got.State != StatusOpensAt || got.OpensAt == nil {
		t.Fatalf("expected opens_at, got %+v", got)
	}
	if got.OpensAt.Format("2006-01-02 15:04") != "2025-06-01 20:00" {
		t.Fatalf("unexpected opening time: %s", got.OpensAt)
	}

	if got := ParseRegistration("vanaf binnenkort"); got.State != StatusOpen {
		t.Fatalf("expected unparseable opening date to count as open, got %+v", got)
	}
}

func TestNormalizeEndToEndFieldTrial(t *testing.T) {
	t.Parallel()

	got, err := Normalize(Raw{
		Date:             "24-07-2025",
		Organizer:        "Stichting X",
		Location:         "Utrecht",
		TypeLabel:        "CAC Iets",
		SourceCalendarID: "Veldwedstrijd",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.TypeCode != "Veldwedstrijd" {
		t.Fatalf("unexpected type code: %q", got.TypeCode)
	}
	if got.TypeDetail != "Kwalificatie: CAC Iets" {
		t.Fatalf("unexpected type detail: %q", got.TypeDetail)
	}
	if got.OrganizerKey != "x" {
		t.Fatalf("unexpected organizer key: %q", got.OrganizerKey)
	}
	if got.OrganizerRaw != "Stichting X" {
		t.Fatalf("unexpected organizer display value: %q", got.OrganizerRaw)
	}
	if got.Date.Format(DateLayout) != "2025-07-24" {
		t.Fatalf("unexpected date: %s", got.Date)
	}
	if got.Registration.State != StatusOpen || got.RegistrationText != DefaultRegistrationText {
		t.Fatalf("unexpected registration: %+v %q", got.Registration, got.RegistrationText)
	}
	if got.Remark != "Kwalificatie: CAC Iets" {
		t.Fatalf("unexpected remark: %q", got.Remark)
	}
	if key := got.Key().String(); key != "x|2025-07-24|utrecht" {
		t.Fatalf("unexpected composite key: %q", key)
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := Normalize(Raw{Date: "geen datum", Organizer: "KC", Location: "Ede"})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed date error, got %v", err)
	}

	_, err = Normalize(Raw{Date: "24-07-2025", Organizer: " ", Location: "<br>"})
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed error for empty organizer and location, got %v", err)
	}
}

func TestJoinRemarks(t *testing.T) {
	t.Parallel()

	got := JoinRemarks("Alleen labradors", "", "Kwalificatie: CAC", "Alleen labradors")
	if got != "Alleen labradors | Kwalificatie: CAC" {
		t.Fatalf("unexpected joined remarks: %q", got)
	}
}
