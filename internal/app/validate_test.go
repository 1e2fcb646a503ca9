package app

import (
	"os"
	"path/filepath"
	"testing"

	"horse.fit/jachtproef/internal/config"
	"horse.fit/jachtproef/internal/taxonomy"
)

func TestCollectJSONFilesRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.json"), `{"k":"v"}`)
	mustWriteFile(t, filepath.Join(root, "b.txt"), `x`)
	mustWriteFile(t, filepath.Join(root, ".hidden.json"), `{}`)
	mustWriteFile(t, filepath.Join(root, "nested", "c.json"), `{"k":"v2"}`)

	files, err := collectJSONFiles(root, true)
	if err != nil {
		t.Fatalf("collectJSONFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 json files, got %d (%v)", len(files), files)
	}
}

func TestCollectJSONFilesNonRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.json"), `{"k":"v"}`)
	mustWriteFile(t, filepath.Join(root, "nested", "c.json"), `{"k":"v2"}`)

	files, err := collectJSONFiles(root, false)
	if err != nil {
		t.Fatalf("collectJSONFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 json file, got %d (%v)", len(files), files)
	}
}

func TestValidateExportFileCountsMalformedRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proef.json")
	mustWriteFile(t, path, `{
  "payload_version": "v1",
  "source_calendar_id": "Jachthondenproef",
  "records": [
    {"date": "24-07-2025", "organizer": "Stichting X", "location": "Utrecht", "type_label": "SJP", "registration_text": "Inschrijven"},
    {"date": "someday", "organizer": "Stichting Y", "location": "Ede", "type_label": "MAP"}
  ]
}`)

	var result validateResult
	if err := validateExportFile(path, &result); err != nil {
		t.Fatalf("validateExportFile failed: %v", err)
	}
	if result.Records != 2 || result.Malformed != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestValidateExportFileRejectsSchemaViolation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	mustWriteFile(t, path, `{"payload_version": "v2", "source_calendar_id": "Veldwedstrijd", "records": []}`)

	var result validateResult
	if err := validateExportFile(path, &result); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestClassifierRulesFromCatalogue(t *testing.T) {
	t.Parallel()

	catalogue, err := config.ParseCatalogue([]byte(`
sources:
  - name: proef
    path: proef.json
type_rules:
  - calendar: Jachthondenproef
    code: SWT
    when: ["Spaniel Werktest"]
  - calendar: Jachthondenproef
    code: KAP
    words: ["KAP"]
`))
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}

	rules := classifierRules(catalogue)
	got := rules["Jachthondenproef"]
	if len(got) != 2 || got[0].Code != "SWT" || got[0].Phrases[0] != "spaniel werktest" || got[1].Words[0] != "kap" {
		t.Fatalf("unexpected rules: %+v", got)
	}

	res := taxonomy.NewClassifier(rules).Classify("Spaniel werktest voorjaar", "Jachthondenproef")
	if res.Code != "SWT" {
		t.Fatalf("unexpected classification: %+v", res)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
