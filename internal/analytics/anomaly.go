package analytics

import "math"

// Anomaly flags a month whose total spend deviates from the series baseline
// by more than the z-score threshold.
type Anomaly struct {
	Month    string  `json:"month"`
	Amount   float64 `json:"amount"`
	Baseline float64 `json:"baseline"`
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"`
}

// Severity levels attached to anomalies.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
)

// DetectAnomalies scans a monthly series for months whose spend deviates
// from the mean by at least z standard deviations. Medium severity starts at
// 60% of the threshold. Fewer than three months, or a flat series, yields
// no anomalies.
func DetectAnomalies(points []MonthlyCostPoint, z float64) []Anomaly {
	if len(points) < 3 || z <= 0 {
		return nil
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.CombinedTotal()
	}
	mean := average(values)
	stddev := std(values, mean)
	if stddev == 0 {
		return nil
	}

	anomalies := make([]Anomaly, 0)
	for i, p := range points {
		zscore := math.Abs((values[i] - mean) / stddev)
		severity := ""
		switch {
		case zscore >= z:
			severity = SeverityHigh
		case zscore >= z*0.6:
			severity = SeverityMedium
		default:
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Month:    p.Month,
			Amount:   values[i],
			Baseline: mean,
			ZScore:   zscore,
			Severity: severity,
		})
	}
	return anomalies
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
