package analytics

import (
	"sort"
	"time"
)

// PeriodSummary aggregates cost and activity for one arbitrary date range.
type PeriodSummary struct {
	Label        string             `json:"label"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	TotalCost    float64            `json:"total_cost"`
	ServiceCount int                `json:"service_count"`
	ByCategory   map[string]float64 `json:"by_category"`
}

// CategoryDelta describes the movement of one spending category between two
// periods.
type CategoryDelta struct {
	Category   string  `json:"category"`
	Baseline   float64 `json:"baseline"`
	Current    float64 `json:"current"`
	Amount     float64 `json:"amount"`
	PercentChg float64 `json:"percent_change"`
}

// PeriodComparison juxtaposes two period summaries with per-category deltas.
type PeriodComparison struct {
	Baseline     PeriodSummary   `json:"baseline"`
	Current      PeriodSummary   `json:"current"`
	TotalDelta   float64         `json:"total_delta"`
	TotalPctChg  float64         `json:"total_percent_change"`
	ServiceDelta int             `json:"service_count_delta"`
	Categories   []CategoryDelta `json:"categories"`
}

// ComparePeriods computes the deltas between a baseline and a current period.
// Categories present in either period appear in the result, sorted by name
// so repeated runs are deterministic.
func ComparePeriods(baseline, current PeriodSummary) PeriodComparison {
	names := make(map[string]struct{}, len(baseline.ByCategory)+len(current.ByCategory))
	for name := range baseline.ByCategory {
		names[name] = struct{}{}
	}
	for name := range current.ByCategory {
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	deltas := make([]CategoryDelta, 0, len(sorted))
	for _, name := range sorted {
		base := baseline.ByCategory[name]
		cur := current.ByCategory[name]
		deltas = append(deltas, CategoryDelta{
			Category:   name,
			Baseline:   base,
			Current:    cur,
			Amount:     cur - base,
			PercentChg: variancePercent(base, cur),
		})
	}

	return PeriodComparison{
		Baseline:     baseline,
		Current:      current,
		TotalDelta:   current.TotalCost - baseline.TotalCost,
		TotalPctChg:  variancePercent(baseline.TotalCost, current.TotalCost),
		ServiceDelta: current.ServiceCount - baseline.ServiceCount,
		Categories:   deltas,
	}
}

func variancePercent(base, current float64) float64 {
	if almostZero(base) {
		if almostZero(current) {
			return 0
		}
		return 100
	}
	return (current - base) / base * 100
}

func almostZero(v float64) bool {
	return v > -0.0001 && v < 0.0001
}
