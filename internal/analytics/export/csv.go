package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/mygarage/mygarage/internal/analytics"
)

// Column headers are fixed so downstream spreadsheets keyed on them never
// break between exports.
var (
	reportHeader     = []string{"Month", "Maintenance", "Fuel", "DEF", "Total", "3-Month Avg", "6-Month Avg"}
	comparisonHeader = []string{"Category", "Baseline", "Current", "Change", "Change %"}
	fuelHeader       = []string{"Month", "MPG"}
)

// WriteReportCSV serialises a monthly cost report, with its rolling
// averages, to CSV. Rolling columns are blank until enough history exists.
func WriteReportCSV(w io.Writer, report analytics.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(reportHeader); err != nil {
		return err
	}
	for i, point := range report.Months {
		record := []string{
			point.Month,
			formatFloat(point.Maintenance),
			formatFloat(point.Fuel),
			formatFloat(point.DEF),
			formatFloat(point.Total),
			formatRolling(report.RollingShort, i),
			formatRolling(report.RollingLong, i),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteComparisonCSV emits per-category deltas between two periods, followed
// by a totals row.
func WriteComparisonCSV(w io.Writer, comparison analytics.PeriodComparison) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(comparisonHeader); err != nil {
		return err
	}
	for _, delta := range comparison.Categories {
		record := []string{
			delta.Category,
			formatFloat(delta.Baseline),
			formatFloat(delta.Current),
			formatFloat(delta.Amount),
			formatFloat(delta.PercentChg),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	totals := []string{
		"Total",
		formatFloat(comparison.Baseline.TotalCost),
		formatFloat(comparison.Current.TotalCost),
		formatFloat(comparison.TotalDelta),
		formatFloat(comparison.TotalPctChg),
	}
	if err := writer.Write(totals); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteFuelEconomyCSV prints a monthly fuel economy series to CSV.
func WriteFuelEconomyCSV(w io.Writer, points []analytics.FuelEconomyPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(fuelHeader); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{point.Month, formatFloat(point.MPG)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatRolling(points []analytics.RollingAveragePoint, i int) string {
	if i >= len(points) || points[i].Value == nil {
		return ""
	}
	return formatFloat(*points[i].Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
