package analytics

// ComparisonRow is a display-ready category delta: currency and percent
// strings plus a sign for the view's coloring (-1, 0, 1).
type ComparisonRow struct {
	Category string `json:"category"`
	Baseline string `json:"baseline"`
	Current  string `json:"current"`
	Delta    string `json:"delta"`
	Percent  string `json:"percent"`
	Sign     int    `json:"sign"`
}

// ComparisonView is the formatted rendition of a PeriodComparison.
type ComparisonView struct {
	BaselineLabel string          `json:"baseline_label"`
	CurrentLabel  string          `json:"current_label"`
	BaselineTotal string          `json:"baseline_total"`
	CurrentTotal  string          `json:"current_total"`
	TotalDelta    string          `json:"total_delta"`
	TotalPercent  string          `json:"total_percent"`
	ServiceDelta  int             `json:"service_count_delta"`
	Rows          []ComparisonRow `json:"rows"`
}

// BuildComparisonView formats a comparison for display. All arithmetic is
// already done; this only renders currency, percent, and sign.
func BuildComparisonView(cmp PeriodComparison) ComparisonView {
	rows := make([]ComparisonRow, 0, len(cmp.Categories))
	for _, d := range cmp.Categories {
		rows = append(rows, ComparisonRow{
			Category: d.Category,
			Baseline: FormatCurrency(d.Baseline),
			Current:  FormatCurrency(d.Current),
			Delta:    FormatSignedCurrency(d.Amount),
			Percent:  FormatPercent(d.PercentChg),
			Sign:     sign(d.Amount),
		})
	}
	return ComparisonView{
		BaselineLabel: cmp.Baseline.Label,
		CurrentLabel:  cmp.Current.Label,
		BaselineTotal: FormatCurrency(cmp.Baseline.TotalCost),
		CurrentTotal:  FormatCurrency(cmp.Current.TotalCost),
		TotalDelta:    FormatSignedCurrency(cmp.TotalDelta),
		TotalPercent:  FormatPercent(cmp.TotalPctChg),
		ServiceDelta:  cmp.ServiceDelta,
		Rows:          rows,
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
