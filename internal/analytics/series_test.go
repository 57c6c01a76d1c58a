package analytics

import (
	"errors"
	"math"
	"testing"
)

func costSeries(months []string, totals []float64) []MonthlyCostPoint {
	points := make([]MonthlyCostPoint, len(months))
	for i := range months {
		points[i] = MonthlyCostPoint{Month: months[i], Maintenance: totals[i], Total: totals[i]}
	}
	return points
}

func TestRollingAverageKeepsSeriesLength(t *testing.T) {
	points := costSeries(
		[]string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05"},
		[]float64{10, 20, 30, 40, 50},
	)
	out, err := RollingAverage(points, 3)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	if len(out) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(out))
	}
}

func TestRollingAverageWindowThree(t *testing.T) {
	points := costSeries(
		[]string{"2025-01", "2025-02", "2025-03", "2025-04"},
		[]float64{100, 200, 300, 400},
	)
	out, err := RollingAverage(points, 3)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	if out[0].Value != nil || out[1].Value != nil {
		t.Fatalf("expected nil values before the window fills")
	}
	if out[2].Value == nil || *out[2].Value != 200 {
		t.Fatalf("expected 200 at index 2, got %v", out[2].Value)
	}
	if out[3].Value == nil || *out[3].Value != 300 {
		t.Fatalf("expected 300 at index 3, got %v", out[3].Value)
	}
}

func TestRollingAverageWindowLargerThanSeries(t *testing.T) {
	points := costSeries([]string{"2025-01", "2025-02"}, []float64{10, 20})
	out, err := RollingAverage(points, 6)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	for i, p := range out {
		if p.Value != nil {
			t.Fatalf("expected all nil values, index %d has %v", i, *p.Value)
		}
	}
}

func TestRollingAverageEmptyInput(t *testing.T) {
	out, err := RollingAverage(nil, 3)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d points", len(out))
	}
}

func TestRollingAverageIsPure(t *testing.T) {
	points := costSeries(
		[]string{"2025-01", "2025-02", "2025-03", "2025-04"},
		[]float64{12.5, 80, 0, 41.25},
	)
	first, err := RollingAverage(points, 2)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	second, err := RollingAverage(points, 2)
	if err != nil {
		t.Fatalf("rolling average error: %v", err)
	}
	for i := range first {
		a, b := first[i].Value, second[i].Value
		if (a == nil) != (b == nil) {
			t.Fatalf("run mismatch at %d", i)
		}
		if a != nil && *a != *b {
			t.Fatalf("run mismatch at %d: %v vs %v", i, *a, *b)
		}
	}
}

func TestRollingAverageRejectsBadWindow(t *testing.T) {
	if _, err := RollingAverage(nil, 0); err == nil {
		t.Fatal("expected error for window 0")
	}
	if _, err := RollingAverage(nil, -2); err == nil {
		t.Fatal("expected error for negative window")
	}
}

func TestValidateSeriesRejectsNaN(t *testing.T) {
	points := []MonthlyCostPoint{{Month: "2025-01", Fuel: math.NaN()}}
	err := ValidateSeries(points)
	var invalid *InvalidDataPointError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDataPointError, got %v", err)
	}
	if invalid.Month != "2025-01" || invalid.Field != "fuel" {
		t.Fatalf("unexpected error detail: %+v", invalid)
	}
}

func TestValidateSeriesRejectsNegativeCost(t *testing.T) {
	points := []MonthlyCostPoint{{Month: "2025-01", Maintenance: -10}}
	var invalid *InvalidDataPointError
	if err := ValidateSeries(points); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDataPointError, got %v", err)
	}
}

func TestValidateSeriesRejectsBadMonth(t *testing.T) {
	if err := ValidateSeries([]MonthlyCostPoint{{Month: "2025-13"}}); err == nil {
		t.Fatal("expected error for month 13")
	}
	if err := ValidateSeries([]MonthlyCostPoint{{Month: "January"}}); err == nil {
		t.Fatal("expected error for free-form month")
	}
}

func TestValidateSeriesRejectsOutOfOrderMonths(t *testing.T) {
	points := costSeries([]string{"2025-03", "2025-01"}, []float64{1, 2})
	if err := ValidateSeries(points); err == nil {
		t.Fatal("expected error for out-of-order months")
	}
}

func TestNormalizeFillsGapsWithZeros(t *testing.T) {
	points := []MonthlyCostPoint{
		{Month: "2025-01", Maintenance: 100},
		{Month: "2025-04", Fuel: 60},
	}
	out, err := Normalize(points)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 contiguous months, got %d", len(out))
	}
	if out[1].Month != "2025-02" || out[1].Total != 0 {
		t.Fatalf("expected zero-cost filler for 2025-02, got %+v", out[1])
	}
	if out[2].Month != "2025-03" || out[2].Total != 0 {
		t.Fatalf("expected zero-cost filler for 2025-03, got %+v", out[2])
	}
	if out[0].Total != 100 || out[3].Total != 60 {
		t.Fatalf("expected recomputed totals, got %v and %v", out[0].Total, out[3].Total)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	points := []MonthlyCostPoint{
		{Month: "2025-01", Maintenance: 100},
		{Month: "2025-03", Fuel: 50},
	}
	once, err := Normalize(points)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	twice, err := Normalize(once)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("length changed on second pass: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("point %d changed on second pass: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	out, err := Normalize(nil)
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}

func TestSortSeries(t *testing.T) {
	points := costSeries([]string{"2025-03", "2025-01", "2025-02"}, []float64{3, 1, 2})
	SortSeries(points)
	for i, want := range []string{"2025-01", "2025-02", "2025-03"} {
		if points[i].Month != want {
			t.Fatalf("expected %s at %d, got %s", want, i, points[i].Month)
		}
	}
}
