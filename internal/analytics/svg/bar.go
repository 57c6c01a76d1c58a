package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Bars renders a grouped bar chart comparing two values per category, used
// for baseline-versus-current period views. Values and labels must be the
// same length.
func Bars(width, height int, baseline, current []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(baseline) == 0 {
		return "", fmt.Errorf("svg: baseline required")
	}
	if len(baseline) != len(current) || len(baseline) != len(labels) {
		return "", fmt.Errorf("svg: baseline, current and labels must align")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	baselineColor := fallback(opts.BaselineColor, "#94a3b8")
	currentColor := fallback(opts.CurrentColor, "#2563eb")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5f5")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := 0.0
	for i := range baseline {
		if baseline[i] > maxVal {
			maxVal = baseline[i]
		}
		if current[i] > maxVal {
			maxVal = current[i]
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	scale := chartHeight / maxVal

	groupWidth := chartWidth / float64(len(baseline))
	barWidth := groupWidth * 0.35
	gap := groupWidth * 0.06

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Period comparison"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Spend by category for the baseline and current periods"))))

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := padding + chartHeight - ratio*chartHeight
		value := maxVal * ratio
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value))))
	}

	b.WriteString(fmt.Sprintf("<g stroke=\"%s\" aria-label=\"Axes\">", axisColor))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+chartHeight))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding+chartHeight, padding+chartWidth, padding+chartHeight))
	b.WriteString("</g>")

	base := padding + chartHeight
	for i := range baseline {
		groupX := padding + float64(i)*groupWidth + (groupWidth-2*barWidth-gap)/2

		bh := baseline[i] * scale
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"><title>%s baseline %s</title></rect>",
			groupX, base-bh, barWidth, bh, baselineColor,
			template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(formatTick(baseline[i]))))

		ch := current[i] * scale
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"><title>%s current %s</title></rect>",
			groupX+barWidth+gap, base-ch, barWidth, ch, currentColor,
			template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(formatTick(current[i]))))

		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>",
			padding+float64(i)*groupWidth+groupWidth/2, base+14, axisColor, template.HTMLEscapeString(labels[i])))
	}

	b.WriteString(fmt.Sprintf("<g font-size=\"10\" fill=\"%s\" aria-label=\"Legend\">", axisColor))
	b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect><text x=\"%.2f\" y=\"%.2f\">Baseline</text>", padding, padding-16, baselineColor, padding+14, padding-7))
	b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect><text x=\"%.2f\" y=\"%.2f\">Current</text>", padding+80, padding-16, currentColor, padding+94, padding-7))
	b.WriteString("</g>")

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
