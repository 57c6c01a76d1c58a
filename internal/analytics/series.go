package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MonthlyCostPoint aggregates one calendar month of spending for a vehicle,
// a garage, or the whole fleet. Points are ordered chronologically and never
// mutated after load.
type MonthlyCostPoint struct {
	Month       string  `json:"month"`
	Maintenance float64 `json:"maintenance"`
	Fuel        float64 `json:"fuel"`
	DEF         float64 `json:"def_cost"`
	Total       float64 `json:"total"`
}

// CombinedTotal sums the cost components tracked per month.
func (p MonthlyCostPoint) CombinedTotal() float64 {
	return p.Maintenance + p.Fuel + p.DEF
}

// RollingAveragePoint carries the trailing average for one month. Value is
// nil while fewer than the window's worth of history exists.
type RollingAveragePoint struct {
	Month string   `json:"month"`
	Value *float64 `json:"value"`
}

// InvalidDataPointError reports a cost field that cannot enter an average.
type InvalidDataPointError struct {
	Month string
	Field string
	Value float64
}

func (e *InvalidDataPointError) Error() string {
	return fmt.Sprintf("analytics: invalid %s value %v for month %s", e.Field, e.Value, e.Month)
}

// ValidateSeries rejects malformed months and non-finite or negative cost
// fields so that bad input fails fast instead of propagating NaN into
// averages and exports.
func ValidateSeries(points []MonthlyCostPoint) error {
	prev := ""
	for _, p := range points {
		if _, err := parseMonth(p.Month); err != nil {
			return fmt.Errorf("analytics: bad month label %q: %w", p.Month, err)
		}
		if prev != "" && p.Month <= prev {
			return fmt.Errorf("analytics: months out of order at %s", p.Month)
		}
		prev = p.Month
		for field, value := range map[string]float64{
			"maintenance": p.Maintenance,
			"fuel":        p.Fuel,
			"def_cost":    p.DEF,
		} {
			if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
				return &InvalidDataPointError{Month: p.Month, Field: field, Value: value}
			}
		}
	}
	return nil
}

// Normalize re-indexes a sparse monthly series onto a contiguous calendar
// between its first and last month, inserting explicit zero-cost points for
// months with no activity. Totals are recomputed from the components. The
// input is validated first; the result is a fresh slice.
func Normalize(points []MonthlyCostPoint) ([]MonthlyCostPoint, error) {
	if err := ValidateSeries(points); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return []MonthlyCostPoint{}, nil
	}

	lookup := make(map[string]MonthlyCostPoint, len(points))
	for _, p := range points {
		lookup[p.Month] = p
	}

	first, _ := parseMonth(points[0].Month)
	last, _ := parseMonth(points[len(points)-1].Month)

	months := enumerateMonths(first, last)
	out := make([]MonthlyCostPoint, 0, len(months))
	for _, m := range months {
		key := formatMonth(m)
		p := lookup[key]
		p.Month = key
		p.Total = p.CombinedTotal()
		out = append(out, p)
	}
	return out, nil
}

// RollingAverage computes the trailing N-month average of total spend. The
// output has the same length as the input; index i holds the mean of the
// totals over [i-window+1, i], or nil when fewer than window points precede
// it. Empty input yields empty output; window larger than the series yields
// all nils. The function is pure: identical input always produces identical
// output.
func RollingAverage(points []MonthlyCostPoint, window int) ([]RollingAveragePoint, error) {
	if window <= 0 {
		return nil, fmt.Errorf("analytics: window must be positive, got %d", window)
	}
	if err := ValidateSeries(points); err != nil {
		return nil, err
	}

	out := make([]RollingAveragePoint, len(points))
	var running float64
	for i, p := range points {
		running += p.CombinedTotal()
		if i >= window {
			running -= points[i-window].CombinedTotal()
		}
		out[i] = RollingAveragePoint{Month: p.Month}
		if i >= window-1 {
			avg := running / float64(window)
			out[i].Value = &avg
		}
	}
	return out, nil
}

// SortSeries orders points chronologically in place. Repositories return
// ordered rows already; this guards series assembled from merged sources.
func SortSeries(points []MonthlyCostPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
}

func parseMonth(period string) (time.Time, error) {
	if period == "" {
		return time.Time{}, fmt.Errorf("empty month")
	}
	t, err := time.ParseInLocation("2006-01", period, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

func formatMonth(t time.Time) string {
	return t.Format("2006-01")
}

func enumerateMonths(from, to time.Time) []time.Time {
	if from.After(to) {
		return nil
	}
	var months []time.Time
	current := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !current.After(end) {
		months = append(months, current)
		current = current.AddDate(0, 1, 0)
	}
	return months
}
