package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "production", "info")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug().Msg("hidden")
	logger.Info().Str("calendar", "Veldwedstrijd").Msg("fetched")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("did not expect debug line at info level: %s", out)
	}
	for _, want := range []string{`"service":"jachtproef"`, `"calendar":"Veldwedstrijd"`, `"message":"fetched"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewWithWriter(&bytes.Buffer{}, "local", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
