package analytics

import (
	"math"
	"testing"
	"time"
)

func period(label string, total float64, count int, byCategory map[string]float64) PeriodSummary {
	return PeriodSummary{
		Label:        label,
		From:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:           time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		TotalCost:    total,
		ServiceCount: count,
		ByCategory:   byCategory,
	}
}

func TestComparePeriodsUnionsCategories(t *testing.T) {
	baseline := period("baseline", 500, 3, map[string]float64{"Oil Change": 120, "Tires": 380})
	current := period("current", 650, 4, map[string]float64{"Oil Change": 150, "Brakes": 500})

	result := ComparePeriods(baseline, current)

	if len(result.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(result.Categories))
	}
	want := []string{"Brakes", "Oil Change", "Tires"}
	for i, name := range want {
		if result.Categories[i].Category != name {
			t.Fatalf("expected %s at %d, got %s", name, i, result.Categories[i].Category)
		}
	}
	if result.TotalDelta != 150 {
		t.Fatalf("unexpected total delta %v", result.TotalDelta)
	}
	if result.ServiceDelta != 1 {
		t.Fatalf("unexpected service delta %d", result.ServiceDelta)
	}
}

func TestComparePeriodsCategoryDeltas(t *testing.T) {
	baseline := period("baseline", 100, 1, map[string]float64{"Oil Change": 100})
	current := period("current", 150, 1, map[string]float64{"Oil Change": 150})

	result := ComparePeriods(baseline, current)

	delta := result.Categories[0]
	if delta.Amount != 50 {
		t.Fatalf("unexpected amount %v", delta.Amount)
	}
	if math.Abs(delta.PercentChg-50) > 1e-9 {
		t.Fatalf("unexpected percent change %v", delta.PercentChg)
	}
}

func TestComparePeriodsZeroBaseline(t *testing.T) {
	result := ComparePeriods(
		period("baseline", 0, 0, map[string]float64{}),
		period("current", 200, 1, map[string]float64{"Brakes": 200}),
	)
	if result.TotalPctChg != 100 {
		t.Fatalf("expected 100%% against a zero baseline, got %v", result.TotalPctChg)
	}
	if result.Categories[0].PercentChg != 100 {
		t.Fatalf("expected 100%% for a new category, got %v", result.Categories[0].PercentChg)
	}
}

func TestComparePeriodsBothZero(t *testing.T) {
	result := ComparePeriods(
		period("baseline", 0, 0, nil),
		period("current", 0, 0, nil),
	)
	if result.TotalPctChg != 0 {
		t.Fatalf("expected 0%% when both totals are zero, got %v", result.TotalPctChg)
	}
	if result.TotalDelta != 0 {
		t.Fatalf("expected zero delta, got %v", result.TotalDelta)
	}
}

func TestBuildComparisonView(t *testing.T) {
	result := ComparePeriods(
		period("baseline", 400, 2, map[string]float64{"Tires": 400}),
		period("current", 300, 1, map[string]float64{"Tires": 300}),
	)
	view := BuildComparisonView(result)
	if len(view.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(view.Rows))
	}
	row := view.Rows[0]
	if row.Sign >= 0 {
		t.Fatalf("expected negative sign for a drop, got %d", row.Sign)
	}
	if row.Delta == "" || view.TotalDelta == "" {
		t.Fatalf("expected formatted deltas, got %+v", view)
	}
}
