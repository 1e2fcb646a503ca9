package globaltime

import (
	"testing"
	"time"
)

func TestTodayUsesLocationCalendarDay(t *testing.T) {
	SetMockTime(time.Date(2025, 7, 31, 23, 30, 0, 0, time.UTC))
	defer ResetTime()

	amsterdam, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	if got := Today(amsterdam); !got.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected amsterdam day: %s", got)
	}
	if got := Today(nil); !got.Equal(time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected utc day: %s", got)
	}
}
