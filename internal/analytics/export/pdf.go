package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/mygarage/mygarage/internal/analytics"
)

// ReportPayload aggregates everything rendered into a PDF export: the
// computed report, an optional period comparison, and the pre-rendered
// charts.
type ReportPayload struct {
	Title      string
	Report     analytics.Report
	Comparison *analytics.PeriodComparison
	CostChart  template.HTML
	DeltaChart template.HTML
}

// PDFExporter wraps Gotenberg interactions for report exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderReport sends HTML content to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	html := buildHTML(payload)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "report.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}

	return io.ReadAll(resp.Body)
}

func buildHTML(payload ReportPayload) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;} .row-label{text-align:left;} svg{max-width:100%;}")
	b.WriteString("</style></head><body>")
	title := payload.Title
	if title == "" {
		title = "Cost Report"
	}
	b.WriteString(fmt.Sprintf("<h1>%s – %s to %s</h1>", htmlEscape(title), htmlEscape(payload.Report.From), htmlEscape(payload.Report.To)))

	b.WriteString("<section><h2>Summary</h2><table><tbody>")
	b.WriteString("<tr><td class=\"row-label\">Trend</td><td>")
	b.WriteString(htmlEscape(string(payload.Report.Trend)))
	b.WriteString("</td></tr>")
	var total float64
	for _, point := range payload.Report.Months {
		total += point.Total
	}
	b.WriteString("<tr><td class=\"row-label\">Total Spend</td><td>")
	b.WriteString(formatFloat(total))
	b.WriteString("</td></tr>")
	if payload.Report.Fuel != nil {
		b.WriteString("<tr><td class=\"row-label\">Fuel Economy</td><td>")
		b.WriteString(fmt.Sprintf("%s MPG recent vs %s MPG baseline (%s)",
			formatFloat(payload.Report.Fuel.RecentMPG),
			formatFloat(payload.Report.Fuel.BaselineMPG),
			htmlEscape(string(payload.Report.Fuel.Direction))))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table></section>")

	if payload.CostChart != "" {
		b.WriteString("<section><h2>Monthly Spend</h2>")
		b.WriteString(string(payload.CostChart))
		b.WriteString("</section>")
	}

	if len(payload.Report.Months) > 0 {
		b.WriteString("<section><h2>Monthly Detail</h2><table><thead><tr><th>Month</th><th>Maintenance</th><th>Fuel</th><th>DEF</th><th>Total</th><th>3-Month Avg</th><th>6-Month Avg</th></tr></thead><tbody>")
		for i, point := range payload.Report.Months {
			b.WriteString("<tr><td class=\"row-label\">")
			b.WriteString(htmlEscape(point.Month))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(point.Maintenance))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(point.Fuel))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(point.DEF))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(point.Total))
			b.WriteString("</td><td>")
			b.WriteString(formatRolling(payload.Report.RollingShort, i))
			b.WriteString("</td><td>")
			b.WriteString(formatRolling(payload.Report.RollingLong, i))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if len(payload.Report.Anomalies) > 0 {
		b.WriteString("<section><h2>Unusual Months</h2><table><thead><tr><th>Month</th><th>Amount</th><th>Typical</th><th>Severity</th></tr></thead><tbody>")
		for _, anomaly := range payload.Report.Anomalies {
			b.WriteString("<tr><td class=\"row-label\">")
			b.WriteString(htmlEscape(anomaly.Month))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(anomaly.Amount))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(anomaly.Baseline))
			b.WriteString("</td><td>")
			b.WriteString(htmlEscape(anomaly.Severity))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if payload.Comparison != nil {
		comparison := *payload.Comparison
		b.WriteString("<section><h2>Period Comparison</h2>")
		if payload.DeltaChart != "" {
			b.WriteString(string(payload.DeltaChart))
		}
		b.WriteString("<table><thead><tr><th>Category</th><th>Baseline</th><th>Current</th><th>Change</th><th>Change %</th></tr></thead><tbody>")
		for _, delta := range comparison.Categories {
			b.WriteString("<tr><td class=\"row-label\">")
			b.WriteString(htmlEscape(delta.Category))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(delta.Baseline))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(delta.Current))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(delta.Amount))
			b.WriteString("</td><td>")
			b.WriteString(formatFloat(delta.PercentChg))
			b.WriteString("</td></tr>")
		}
		b.WriteString("<tr><td class=\"row-label\">Total</td><td>")
		b.WriteString(formatFloat(comparison.Baseline.TotalCost))
		b.WriteString("</td><td>")
		b.WriteString(formatFloat(comparison.Current.TotalCost))
		b.WriteString("</td><td>")
		b.WriteString(formatFloat(comparison.TotalDelta))
		b.WriteString("</td><td>")
		b.WriteString(formatFloat(comparison.TotalPctChg))
		b.WriteString("</td></tr>")
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func htmlEscape(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
