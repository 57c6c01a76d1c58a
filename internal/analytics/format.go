package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCurrency renders an amount as a grouped dollar string for view
// models and exports.
func FormatCurrency(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// FormatSignedCurrency prefixes positive deltas with a plus sign.
func FormatSignedCurrency(v float64) string {
	if v > 0 {
		return printer.Sprintf("+$%.2f", v)
	}
	if v < 0 {
		return printer.Sprintf("-$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", 0.0)
}

// FormatPercent renders a signed percent change with one decimal.
func FormatPercent(v float64) string {
	if v > 0 {
		return printer.Sprintf("+%.1f%%", v)
	}
	return printer.Sprintf("%.1f%%", v)
}
