package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"horse.fit/jachtproef/internal/config"
)

const calendarPage = `<html><body>
<table class="table">
  <tr><th>Datum</th><th>Type</th><th>Organisatie</th><th>Locatie</th><th>Opmerkingen</th><th>Inschrijving</th></tr>
  <tr>
    <td>24-07-2025</td>
    <td>CAC  Apporteerwedstrijd</td>
    <td>Stichting X<br>i.s.m. Vereniging Y</td>
    <td>Utrecht Aanvang: 8.30</td>
    <td>Alleen retrievers</td>
    <td><a href="/inschrijven/1">Inschrijven</a></td>
  </tr>
  <tr><td>25-07-2025</td><td>MAP</td><td>KC Twente</td><td>Enschede</td></tr>
  <tr><td colspan="2">Geen proeven in augustus</td></tr>
</table>
</body></html>`

func TestParseCalendarTable(t *testing.T) {
	t.Parallel()

	records, err := ParseCalendarTable(strings.NewReader(calendarPage), "Veldwedstrijd", "")
	if err != nil {
		t.Fatalf("parse calendar table: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("unexpected record count: %d", len(records))
	}

	first := records[0]
	if first.Date != "24-07-2025" || first.TypeLabel != "CAC Apporteerwedstrijd" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Organizer != "Stichting X i.s.m. Vereniging Y" {
		t.Fatalf("unexpected organizer: %q", first.Organizer)
	}
	if first.RegistrationText != "Inschrijven" || first.Remarks != "Alleen retrievers" {
		t.Fatalf("unexpected registration/remarks: %+v", first)
	}
	if first.SourceCalendarID != "Veldwedstrijd" {
		t.Fatalf("unexpected calendar id: %q", first.SourceCalendarID)
	}
	if records[1].RegistrationText != "" || records[1].Remarks != "" {
		t.Fatalf("expected missing columns to be empty: %+v", records[1])
	}
}

func TestParseCalendarTableMissingTable(t *testing.T) {
	t.Parallel()

	_, err := ParseCalendarTable(strings.NewReader("<html><body><p>Log in</p></body></html>"), "Veldwedstrijd", "")
	if err == nil {
		t.Fatalf("expected error when calendar table is missing")
	}
}

func TestFromCatalogueAndFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "proeven.json")
	htmlPath := filepath.Join(dir, "veld.html")
	export := `{"payload_version":"v1","source_calendar_id":"Jachthondenproef","records":[
		{"date":"01-09-2025","organizer":"KC Drenthe","location":"Assen","type_label":"SJP"}
	]}`
	if err := os.WriteFile(jsonPath, []byte(export), 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}
	if err := os.WriteFile(htmlPath, []byte(calendarPage), 0o600); err != nil {
		t.Fatalf("write page: %v", err)
	}

	disabled := false
	sources, err := FromCatalogue(&config.Catalogue{Sources: []config.SourceSpec{
		{Name: "proeven", Format: "json", Path: jsonPath},
		{Name: "veld", Format: "html", CalendarID: "Veldwedstrijd", Path: htmlPath},
		{Name: "oud", Format: "json", Path: filepath.Join(dir, "missing.json"), Enabled: &disabled},
	}})
	if err != nil {
		t.Fatalf("build sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("unexpected source count: %d", len(sources))
	}

	proeven, err := sources[0].Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch json source: %v", err)
	}
	if len(proeven) != 1 || proeven[0].SourceCalendarID != "Jachthondenproef" {
		t.Fatalf("unexpected json records: %+v", proeven)
	}

	veld, err := sources[1].Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch html source: %v", err)
	}
	if len(veld) != 2 {
		t.Fatalf("unexpected html record count: %d", len(veld))
	}
}

func TestFromCatalogueRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := FromCatalogue(&config.Catalogue{Sources: []config.SourceSpec{{Name: "x", Format: "csv", Path: "x.csv"}}})
	if err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
