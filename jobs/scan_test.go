package jobs

import (
	"testing"
	"time"
)

func TestDetectAnomaliesFlagsSpike(t *testing.T) {
	series := map[int64]*costSeries{
		1: {
			VehicleID: 1,
			Periods:   []string{"2026-01", "2026-02", "2026-03", "2026-04", "2026-05", "2026-06"},
			Values:    []float64{100, 110, 95, 105, 100, 900},
		},
	}
	anomalies := detectAnomalies(series, 2.0)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if a.VehicleID != 1 || a.Period != "2026-06" {
		t.Fatalf("unexpected anomaly scope: %+v", a)
	}
	if a.Severity != severityHigh {
		t.Fatalf("expected HIGH severity, got %s", a.Severity)
	}
	if a.Delta <= 0 {
		t.Fatalf("expected positive delta, got %f", a.Delta)
	}
}

func TestDetectAnomaliesIgnoresSteadySpend(t *testing.T) {
	series := map[int64]*costSeries{
		1: {
			VehicleID: 1,
			Periods:   []string{"2026-01", "2026-02", "2026-03", "2026-04"},
			Values:    []float64{100, 105, 98, 102},
		},
	}
	if got := detectAnomalies(series, 2.5); len(got) != 0 {
		t.Fatalf("expected no anomalies, got %+v", got)
	}
}

func TestDetectAnomaliesSkipsShortSeries(t *testing.T) {
	series := map[int64]*costSeries{
		1: {VehicleID: 1, Periods: []string{"2026-05", "2026-06"}, Values: []float64{10, 10000}},
	}
	if got := detectAnomalies(series, 2.0); len(got) != 0 {
		t.Fatalf("two months is not enough history, got %+v", got)
	}
}

func TestDetectAnomaliesSkipsZeroVariance(t *testing.T) {
	series := map[int64]*costSeries{
		1: {VehicleID: 1, Periods: []string{"2026-04", "2026-05", "2026-06"}, Values: []float64{50, 50, 50}},
	}
	if got := detectAnomalies(series, 2.0); len(got) != 0 {
		t.Fatalf("flat series has no baseline deviation, got %+v", got)
	}
}

func TestWithinReminderWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		event time.Time
		days  int
		want  bool
	}{
		{"inside window", now.AddDate(0, 0, 10), 30, true},
		{"on the boundary", now.AddDate(0, 0, 30), 30, true},
		{"beyond lead time", now.AddDate(0, 0, 31), 30, false},
		{"already past", now.AddDate(0, 0, -1), 30, false},
		{"zero lead time", now.AddDate(0, 0, 5), 0, false},
	}
	for _, tc := range cases {
		if got := withinReminderWindow(tc.event, now, tc.days); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
