package schedule

import (
	"testing"
	"time"

	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

func entry(h, m int, name string) Entry {
	return Entry{Hours: h, Minutes: m, Location: weather.Location{Name: name}}
}

func TestFindMatch(t *testing.T) {
	entries := []Entry{
		entry(7, 30, "Tokyo"),
		entry(18, 0, "Osaka"),
		entry(7, 30, "Nagoya"),
	}

	cases := []struct {
		name  string
		now   time.Time
		want  string
		match bool
	}{
		{"exact", time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC), "Tokyo", true},
		{"seconds ignored", time.Date(2024, 6, 1, 7, 30, 59, 0, time.UTC), "Tokyo", true},
		{"next minute", time.Date(2024, 6, 1, 7, 31, 0, 0, time.UTC), "", false},
		{"evening", time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), "Osaka", true},
		{"minute only", time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FindMatch(tc.now, entries)
			if ok != tc.match {
				t.Fatalf("expected match=%v, got %v", tc.match, ok)
			}
			if got.Location.Name != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Location.Name)
			}
		})
	}
}

func TestFindMatchUsesTimeLocation(t *testing.T) {
	entries := []Entry{entry(9, 0, "Tokyo")}
	utc := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := FindMatch(utc, entries); ok {
		t.Fatalf("00:00 UTC must not match a 09:00 entry")
	}
	if _, ok := FindMatch(utc.In(time.FixedZone("JST", 9*60*60)), entries); !ok {
		t.Fatalf("09:00 JST should match")
	}
}

func TestFindMatchEmpty(t *testing.T) {
	if _, ok := FindMatch(time.Now(), nil); ok {
		t.Fatalf("expected no match for nil list")
	}
}
