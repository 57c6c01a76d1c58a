package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mygarage/mygarage/internal/analytics"
)

func avg(v float64) *float64 { return &v }

func sampleReport() analytics.Report {
	return analytics.Report{
		Scope: analytics.ScopeVehicle,
		From:  "2025-01",
		To:    "2025-04",
		Months: []analytics.MonthlyCostPoint{
			{Month: "2025-01", Maintenance: 100, Fuel: 80, DEF: 0, Total: 180},
			{Month: "2025-02", Maintenance: 0, Fuel: 90, DEF: 12.5, Total: 102.5},
			{Month: "2025-03", Maintenance: 250, Fuel: 85, DEF: 0, Total: 335},
			{Month: "2025-04", Maintenance: 40, Fuel: 95, DEF: 0, Total: 135},
		},
		RollingShort: []analytics.RollingAveragePoint{
			{Month: "2025-01"},
			{Month: "2025-02"},
			{Month: "2025-03", Value: avg(205.83)},
			{Month: "2025-04", Value: avg(190.83)},
		},
		RollingLong: []analytics.RollingAveragePoint{
			{Month: "2025-01"},
			{Month: "2025-02"},
			{Month: "2025-03"},
			{Month: "2025-04"},
		},
		Trend: analytics.TrendStable,
	}
}

func TestWriteReportCSVHeaderIsStable(t *testing.T) {
	first := &bytes.Buffer{}
	if err := WriteReportCSV(first, sampleReport()); err != nil {
		t.Fatalf("report csv error: %v", err)
	}
	second := &bytes.Buffer{}
	if err := WriteReportCSV(second, analytics.Report{}); err != nil {
		t.Fatalf("report csv error: %v", err)
	}

	headerA := strings.SplitN(first.String(), "\n", 2)[0]
	headerB := strings.SplitN(second.String(), "\n", 2)[0]
	if headerA != headerB {
		t.Fatalf("headers differ: %q vs %q", headerA, headerB)
	}
	want := "Month,Maintenance,Fuel,DEF,Total,3-Month Avg,6-Month Avg"
	if headerA != want {
		t.Fatalf("unexpected header %q", headerA)
	}
}

func TestWriteReportCSVRows(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteReportCSV(buf, sampleReport()); err != nil {
		t.Fatalf("report csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(records))
	}
	if records[1][5] != "" {
		t.Fatalf("rolling column should be blank before the window fills, got %q", records[1][5])
	}
	if records[3][5] != "205.83" {
		t.Fatalf("unexpected rolling value %q", records[3][5])
	}
	if records[4][4] != "135.00" {
		t.Fatalf("unexpected total %q", records[4][4])
	}
}

func TestWriteComparisonCSV(t *testing.T) {
	comparison := analytics.ComparePeriods(
		analytics.PeriodSummary{TotalCost: 500, ByCategory: map[string]float64{"Oil Change": 120, "Tires": 380}},
		analytics.PeriodSummary{TotalCost: 650, ByCategory: map[string]float64{"Oil Change": 150, "Brakes": 500}},
	)
	buf := &bytes.Buffer{}
	if err := WriteComparisonCSV(buf, comparison); err != nil {
		t.Fatalf("comparison csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	// header + 3 sorted categories + totals
	if len(records) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(records))
	}
	if records[1][0] != "Brakes" || records[2][0] != "Oil Change" || records[3][0] != "Tires" {
		t.Fatalf("categories not sorted: %v %v %v", records[1][0], records[2][0], records[3][0])
	}
	if records[4][0] != "Total" || records[4][3] != "150.00" {
		t.Fatalf("unexpected totals row %v", records[4])
	}
}

func TestPDFExporterRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(4 << 10); err != nil {
			t.Fatalf("unexpected parse error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	exporter := &PDFExporter{Endpoint: srv.URL}
	data, err := exporter.RenderReport(context.Background(), ReportPayload{Title: "Truck", Report: sampleReport()})
	if err != nil {
		t.Fatalf("pdf render error: %v", err)
	}
	if string(data) != "PDF" {
		t.Fatalf("unexpected payload %q", string(data))
	}
}

func TestPDFExporterRequiresEndpoint(t *testing.T) {
	exporter := &PDFExporter{}
	if _, err := exporter.RenderReport(context.Background(), ReportPayload{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
