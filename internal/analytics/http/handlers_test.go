package analytichttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mygarage/mygarage/internal/analytics"
	"github.com/mygarage/mygarage/internal/analytics/export"
	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/shared"
)

type stubService struct {
	report     analytics.Report
	comparison analytics.PeriodComparison
	fuel       []analytics.FuelEconomyPoint
	err        error
}

func (s *stubService) VehicleReport(ctx context.Context, vehicleID int64, from, to string) (analytics.Report, error) {
	return s.report, s.err
}

func (s *stubService) GarageReport(ctx context.Context, garageID int64, from, to string) (analytics.Report, error) {
	return s.report, s.err
}

func (s *stubService) FleetReport(ctx context.Context, ownerID int64, from, to string) (analytics.Report, error) {
	return s.report, s.err
}

func (s *stubService) FuelEconomySeries(ctx context.Context, vehicleID int64, from, to string) ([]analytics.FuelEconomyPoint, error) {
	return s.fuel, s.err
}

func (s *stubService) CompareVehiclePeriods(ctx context.Context, vehicleID int64, baseFrom, baseTo, curFrom, curTo time.Time) (analytics.PeriodComparison, error) {
	return s.comparison, s.err
}

func (s *stubService) CompareGaragePeriods(ctx context.Context, garageID int64, baseFrom, baseTo, curFrom, curTo time.Time) (analytics.PeriodComparison, error) {
	return s.comparison, s.err
}

type stubAccess struct {
	err error
}

func (s stubAccess) CanAccessVehicle(ctx context.Context, userID, vehicleID int64) error {
	return s.err
}

func (s stubAccess) CanAccessGarage(ctx context.Context, userID, garageID int64) error {
	return s.err
}

type stubPDF struct {
	last export.ReportPayload
}

func (s *stubPDF) RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error) {
	s.last = payload
	return []byte("%PDF-1.4 stub"), nil
}

func testReport() analytics.Report {
	short := 150.0
	return analytics.Report{
		Scope: analytics.ScopeVehicle,
		From:  "2025-01",
		To:    "2025-03",
		Months: []analytics.MonthlyCostPoint{
			{Month: "2025-01", Maintenance: 100, Total: 100},
			{Month: "2025-02", Maintenance: 150, Total: 150},
			{Month: "2025-03", Maintenance: 200, Total: 200},
		},
		RollingShort: []analytics.RollingAveragePoint{
			{Month: "2025-01"}, {Month: "2025-02"}, {Month: "2025-03", Value: &short},
		},
		RollingLong: []analytics.RollingAveragePoint{
			{Month: "2025-01"}, {Month: "2025-02"}, {Month: "2025-03"},
		},
		Trend: analytics.TrendIncreasing,
	}
}

func newTestRouter(t *testing.T, service *stubService, access stubAccess, pdf PDFService) chi.Router {
	t.Helper()
	handler := NewHandler(nil, service, access, pdf)
	handler.WithNow(func() time.Time { return time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC) })
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func doRequest(router chi.Router, target string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestVehicleReportRequiresSession(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestVehicleReportForbiddenWithoutAccess(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{err: httpx.ErrForbidden}, nil)
	rr := doRequest(router, "/analytics/vehicles/1", "7")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestVehicleReportSuccess(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Trend     string          `json:"trend"`
		Months    []any           `json:"months"`
		CostChart string          `json:"cost_chart"`
		Rolling   json.RawMessage `json:"rolling_short"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Trend != string(analytics.TrendIncreasing) {
		t.Fatalf("unexpected trend %q", resp.Trend)
	}
	if len(resp.Months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(resp.Months))
	}
	if !strings.Contains(resp.CostChart, "<svg") {
		t.Fatalf("expected inline svg chart")
	}
}

func TestVehicleReportRejectsBadMonth(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1?from=2025-13", "7")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestVehicleReportRejectsInvertedRange(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1?from=2025-06&to=2025-01", "7")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestVehicleReportMapsInvalidDataPoint(t *testing.T) {
	service := &stubService{err: &analytics.InvalidDataPointError{Month: "2025-02", Field: "fuel", Value: -5}}
	router := newTestRouter(t, service, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1", "7")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestGarageCompare(t *testing.T) {
	comparison := analytics.ComparePeriods(
		analytics.PeriodSummary{TotalCost: 400, ByCategory: map[string]float64{"Tires": 400}},
		analytics.PeriodSummary{TotalCost: 500, ByCategory: map[string]float64{"Tires": 500}},
	)
	router := newTestRouter(t, &stubService{comparison: comparison}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/garages/3/compare?base_from=2024-01&base_to=2024-12&from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		TotalDelta float64 `json:"total_delta"`
		View       struct {
			TotalDelta string `json:"total_delta"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalDelta != 100 {
		t.Fatalf("unexpected delta %v", resp.TotalDelta)
	}
	if resp.View.TotalDelta == "" {
		t.Fatalf("expected formatted delta in view")
	}
}

func TestCompareRequiresAllBounds(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/garages/3/compare?base_from=2024-01", "7")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestVehicleCSVExport(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1/export.csv?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "Month,Maintenance,Fuel,DEF,Total") {
		t.Fatalf("unexpected csv header: %s", rr.Body.String())
	}
}

func TestVehiclePDFExport(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, pdf)
	rr := doRequest(router, "/analytics/vehicles/1/export.pdf?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if len(pdf.last.Report.Months) != 3 {
		t.Fatalf("expected payload to carry the report")
	}
	if pdf.last.CostChart == "" {
		t.Fatalf("expected payload to include the rendered chart")
	}
}

func TestPDFExportWithoutExporter(t *testing.T) {
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1/export.pdf", "7")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestFleetCSVExport(t *testing.T) {
	report := testReport()
	report.Scope = analytics.ScopeFleet
	router := newTestRouter(t, &stubService{report: report}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/fleet/export.csv?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "Month,Maintenance,Fuel,DEF,Total") {
		t.Fatalf("unexpected csv header: %s", rr.Body.String())
	}
}

func TestGaragePDFExport(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, pdf)
	rr := doRequest(router, "/analytics/garages/3/export.pdf?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if pdf.last.Title != "Garage 3" {
		t.Fatalf("unexpected payload title %q", pdf.last.Title)
	}
}

func TestFleetPDFExport(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, &stubService{report: testReport()}, stubAccess{}, pdf)
	rr := doRequest(router, "/analytics/fleet/export.pdf?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if pdf.last.Title != "Fleet" {
		t.Fatalf("unexpected payload title %q", pdf.last.Title)
	}
}

func TestVehicleComparisonCSVExport(t *testing.T) {
	comparison := analytics.ComparePeriods(
		analytics.PeriodSummary{TotalCost: 400, ByCategory: map[string]float64{"Tires": 400}},
		analytics.PeriodSummary{TotalCost: 500, ByCategory: map[string]float64{"Tires": 500}},
	)
	router := newTestRouter(t, &stubService{comparison: comparison}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1/compare/export.csv?base_from=2024-01&base_to=2024-12&from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "Category,Baseline,Current,Change") {
		t.Fatalf("unexpected csv header: %s", body)
	}
	if !strings.Contains(body, "Total,400.00,500.00,100.00") {
		t.Fatalf("expected total row in csv: %s", body)
	}
}

func TestGarageComparisonCSVRequiresAllBounds(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/garages/3/compare/export.csv?base_from=2024-01", "7")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestFuelEconomyCSVExport(t *testing.T) {
	service := &stubService{fuel: []analytics.FuelEconomyPoint{
		{Month: "2025-01", MPG: 24.5},
		{Month: "2025-02", MPG: 25.1},
	}}
	router := newTestRouter(t, service, stubAccess{}, nil)
	rr := doRequest(router, "/analytics/vehicles/1/fuel/export.csv?from=2025-01&to=2025-03", "7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "Month,MPG") {
		t.Fatalf("unexpected csv header: %s", body)
	}
	if !strings.Contains(body, "2025-01,24.50") {
		t.Fatalf("expected mpg row in csv: %s", body)
	}
}

func TestFuelEconomyCSVForbiddenWithoutAccess(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubAccess{err: httpx.ErrForbidden}, nil)
	rr := doRequest(router, "/analytics/vehicles/1/fuel/export.csv", "7")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
