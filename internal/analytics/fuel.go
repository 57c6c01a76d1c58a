package analytics

// FuelEconomyPoint holds one month of observed fuel economy for a vehicle.
type FuelEconomyPoint struct {
	Month string  `json:"month"`
	MPG   float64 `json:"mpg"`
}

// FuelTrend compares recent fuel economy against the longer baseline.
type FuelTrend struct {
	BaselineMPG float64        `json:"baseline_mpg"`
	RecentMPG   float64        `json:"recent_mpg"`
	Direction   TrendDirection `json:"direction"`
}

// FuelEconomyTrend reduces a monthly MPG series to a recent-vs-baseline pair
// and classifies the movement. The last recentMonths points form the recent
// sample; everything before them forms the baseline. Series too short to
// split classify as stable.
func FuelEconomyTrend(points []FuelEconomyPoint, recentMonths int, epsilon float64) FuelTrend {
	if recentMonths <= 0 || len(points) <= recentMonths {
		return FuelTrend{Direction: TrendStable}
	}
	split := len(points) - recentMonths

	var baselineSum float64
	for _, p := range points[:split] {
		baselineSum += p.MPG
	}
	baseline := baselineSum / float64(split)

	var recentSum float64
	for _, p := range points[split:] {
		recentSum += p.MPG
	}
	recent := recentSum / float64(recentMonths)

	return FuelTrend{
		BaselineMPG: baseline,
		RecentMPG:   recent,
		Direction:   ClassifyPair(baseline, recent, epsilon),
	}
}
