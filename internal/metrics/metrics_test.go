package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	started := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	m.ObserveRun("completed", started, started.Add(3*time.Second))
	m.AddRecords(OutcomeInserted, 4)
	m.AddRecords(OutcomeClosed, 0)
	m.SetSnapshotSize(12)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	text := string(body)
	for _, want := range []string{
		`jachtproef_sync_runs_total{status="completed"} 1`,
		`jachtproef_records_total{outcome="inserted"} 4`,
		`jachtproef_snapshot_records 12`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
	if strings.Contains(text, `outcome="closed"`) {
		t.Fatalf("did not expect zero additions to create a series")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveRun("failed", time.Now(), time.Now())
	m.AddRecords(OutcomeDropped, 1)
	m.SetSnapshotSize(1)
}
