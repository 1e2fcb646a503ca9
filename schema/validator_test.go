package exportschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateCalendarExport_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_calendar_id":"Jachthondenproef",
		"scraped_at":"2025-07-01T06:00:00Z",
		"records":[
			{"date":"24-07-2025","organizer":"KC Twente","location":"Enschede","type_label":"MAP","registration_text":"Inschrijven"},
			{"date":"25-07-2025","organizer":"KC Drenthe","location":"Assen","type_label":"SJP","source_calendar_id":"Veldwedstrijd"}
		]
	}`)

	export, err := ValidateCalendarExport(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if len(export.Records) != 2 {
		t.Fatalf("unexpected record count: %d", len(export.Records))
	}
	if export.Records[0].SourceCalendarID != "Jachthondenproef" {
		t.Fatalf("expected calendar id to be inherited, got %q", export.Records[0].SourceCalendarID)
	}
	if export.Records[1].SourceCalendarID != "Veldwedstrijd" {
		t.Fatalf("expected explicit calendar id to win, got %q", export.Records[1].SourceCalendarID)
	}
}

func TestValidateCalendarExport_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_calendar_id":"Jachthondenproef",
		"records":[{"date":"24-07-2025","organizer":"KC Twente","location":"Enschede"}]
	}`)

	if _, err := ValidateCalendarExport(payload); err == nil {
		t.Fatalf("expected validation to fail for missing type_label")
	}
}

func TestValidateCalendarExport_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_calendar_id":"Jachthondenproef",
		"records":[],
		"cookies":"secret"
	}`)

	if _, err := ValidateCalendarExport(payload); err == nil {
		t.Fatalf("expected validation to fail for unknown field")
	}
}

func TestValidateCalendarExport_KeepsMalformedRecords(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_calendar_id":"Veldwedstrijd",
		"records":[{"date":"binnenkort","organizer":" ","location":"","type_label":"CAC"}]
	}`)

	export, err := ValidateCalendarExport(payload)
	if err != nil {
		t.Fatalf("expected structurally valid export, got %v", err)
	}
	if len(export.Records) != 1 {
		t.Fatalf("expected malformed record to be passed on for normalization")
	}
}

func TestValidateCalendarExport_WrongVersion(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v2","source_calendar_id":"X","records":[]}`)

	_, err := ValidateCalendarExport(payload)
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestValidateCalendarExport_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","source_calendar_id":"X","records":[]} {}`)

	if _, err := ValidateCalendarExport(payload); err == nil {
		t.Fatalf("expected trailing content to be rejected")
	}
}
