package analytics

import "fmt"

// TrendDirection is the coarse classification of a cost or efficiency metric
// over time.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// ClassifyTrend derives a trend label from one parameterized comparison: the
// latest short-window rolling average against the latest long-window rolling
// average of the same series. Epsilon is an absolute dead zone; deltas inside
// it classify as stable so that noise cannot flap the label between pages
// that share a series.
//
// Series shorter than the long window classify as stable: there is not
// enough history to call a direction.
func ClassifyTrend(points []MonthlyCostPoint, shortWindow, longWindow int, epsilon float64) (TrendDirection, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return TrendStable, fmt.Errorf("analytics: windows must be positive")
	}
	if shortWindow >= longWindow {
		return TrendStable, fmt.Errorf("analytics: short window %d must be below long window %d", shortWindow, longWindow)
	}
	if epsilon < 0 {
		return TrendStable, fmt.Errorf("analytics: epsilon must not be negative")
	}
	if len(points) < longWindow {
		return TrendStable, nil
	}

	shortAvgs, err := RollingAverage(points, shortWindow)
	if err != nil {
		return TrendStable, err
	}
	longAvgs, err := RollingAverage(points, longWindow)
	if err != nil {
		return TrendStable, err
	}

	last := len(points) - 1
	shortVal := shortAvgs[last].Value
	longVal := longAvgs[last].Value
	if shortVal == nil || longVal == nil {
		return TrendStable, nil
	}
	return ClassifyPair(*longVal, *shortVal, epsilon), nil
}

// ClassifyPair labels the movement from a baseline value to a recent value.
// Used directly by the fuel-economy comparison, where the backend already
// reduced the series to a recent-vs-baseline MPG pair.
func ClassifyPair(baseline, recent, epsilon float64) TrendDirection {
	delta := recent - baseline
	if delta > epsilon {
		return TrendIncreasing
	}
	if delta < -epsilon {
		return TrendDecreasing
	}
	return TrendStable
}
