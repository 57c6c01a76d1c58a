package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mygarage/mygarage/internal/analytics"
	"github.com/mygarage/mygarage/internal/analytics/export"
	"github.com/mygarage/mygarage/internal/analytics/svg"
	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/shared"
)

var monthRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

const trendWindowMonths = 12
const requestTimeout = 5 * time.Second

// ReportService defines the analytics data contract used by the handler.
type ReportService interface {
	VehicleReport(ctx context.Context, vehicleID int64, from, to string) (analytics.Report, error)
	GarageReport(ctx context.Context, garageID int64, from, to string) (analytics.Report, error)
	FleetReport(ctx context.Context, ownerID int64, from, to string) (analytics.Report, error)
	FuelEconomySeries(ctx context.Context, vehicleID int64, from, to string) ([]analytics.FuelEconomyPoint, error)
	CompareVehiclePeriods(ctx context.Context, vehicleID int64, baseFrom, baseTo, curFrom, curTo time.Time) (analytics.PeriodComparison, error)
	CompareGaragePeriods(ctx context.Context, garageID int64, baseFrom, baseTo, curFrom, curTo time.Time) (analytics.PeriodComparison, error)
}

// AccessService resolves whether a user may read a vehicle or garage.
type AccessService interface {
	CanAccessVehicle(ctx context.Context, userID, vehicleID int64) error
	CanAccessGarage(ctx context.Context, userID, garageID int64) error
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// Handler coordinates HTTP requests for cost analytics and exports.
type Handler struct {
	logger  *slog.Logger
	service ReportService
	access  AccessService
	pdf     PDFService
	csvPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, access AccessService, pdf PDFService) *Handler {
	h := &Handler{
		logger:  logger,
		service: service,
		access:  access,
		pdf:     pdf,
		now:     time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// reportResponse carries the computed report together with a server-rendered
// chart an SPA can inline directly.
type reportResponse struct {
	analytics.Report
	CostChart template.HTML `json:"cost_chart"`
}

// comparisonResponse pairs raw deltas with display-ready strings.
type comparisonResponse struct {
	analytics.PeriodComparison
	View       analytics.ComparisonView `json:"view"`
	DeltaChart template.HTML            `json:"delta_chart"`
}

type reportFilters struct {
	from string
	to   string
}

func (h *Handler) handleVehicleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.VehicleReport(ctx, vehicleID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondReport(w, report)
}

func (h *Handler) handleGarageReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	garageID, err := pathID(r, "garageID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "garage id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessGarage(ctx, userID, garageID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.GarageReport(ctx, garageID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondReport(w, report)
}

func (h *Handler) handleFleetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.FleetReport(ctx, userID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondReport(w, report)
}

func (h *Handler) handleVehicleCompare(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	ranges, err := parseCompareRanges(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	comparison, err := h.service.CompareVehiclePeriods(ctx, vehicleID, ranges.baseFrom, ranges.baseTo, ranges.curFrom, ranges.curTo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondComparison(w, comparison)
}

func (h *Handler) handleGarageCompare(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	garageID, err := pathID(r, "garageID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "garage id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessGarage(ctx, userID, garageID); err != nil {
		h.respondError(w, err)
		return
	}

	ranges, err := parseCompareRanges(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	comparison, err := h.service.CompareGaragePeriods(ctx, garageID, ranges.baseFrom, ranges.baseTo, ranges.curFrom, ranges.curTo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondComparison(w, comparison)
}

func (h *Handler) handleVehicleCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.VehicleReport(ctx, vehicleID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamCSV(w, fmt.Sprintf("vehicle-%d-costs-%s.csv", vehicleID, filters.to), func(buf *bytes.Buffer) error {
		return export.WriteReportCSV(buf, report)
	})
}

func (h *Handler) handleGarageCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	garageID, err := pathID(r, "garageID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "garage id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessGarage(ctx, userID, garageID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.GarageReport(ctx, garageID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamCSV(w, fmt.Sprintf("garage-%d-costs-%s.csv", garageID, filters.to), func(buf *bytes.Buffer) error {
		return export.WriteReportCSV(buf, report)
	})
}

func (h *Handler) handleVehiclePDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Export Unavailable", "pdf exporter not configured")
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.VehicleReport(ctx, vehicleID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.streamPDF(ctx, w, fmt.Sprintf("Vehicle %d", vehicleID), report, fmt.Sprintf("vehicle-%d-costs-%s.pdf", vehicleID, filters.to))
}

func (h *Handler) handleGaragePDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Export Unavailable", "pdf exporter not configured")
		return
	}
	garageID, err := pathID(r, "garageID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "garage id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessGarage(ctx, userID, garageID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	report, err := h.service.GarageReport(ctx, garageID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamPDF(ctx, w, fmt.Sprintf("Garage %d", garageID), report, fmt.Sprintf("garage-%d-costs-%s.pdf", garageID, filters.to))
}

func (h *Handler) handleFleetCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.FleetReport(ctx, userID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamCSV(w, fmt.Sprintf("fleet-costs-%s.csv", filters.to), func(buf *bytes.Buffer) error {
		return export.WriteReportCSV(buf, report)
	})
}

func (h *Handler) handleFleetPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Export Unavailable", "pdf exporter not configured")
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.FleetReport(ctx, userID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.streamPDF(ctx, w, "Fleet", report, fmt.Sprintf("fleet-costs-%s.pdf", filters.to))
}

func (h *Handler) handleVehicleCompareCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	ranges, err := parseCompareRanges(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	comparison, err := h.service.CompareVehiclePeriods(ctx, vehicleID, ranges.baseFrom, ranges.baseTo, ranges.curFrom, ranges.curTo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	filename := fmt.Sprintf("vehicle-%d-comparison-%s.csv", vehicleID, ranges.curTo.Format("2006-01"))
	h.streamCSV(w, filename, func(buf *bytes.Buffer) error {
		return export.WriteComparisonCSV(buf, comparison)
	})
}

func (h *Handler) handleGarageCompareCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	garageID, err := pathID(r, "garageID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "garage id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessGarage(ctx, userID, garageID); err != nil {
		h.respondError(w, err)
		return
	}

	ranges, err := parseCompareRanges(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	comparison, err := h.service.CompareGaragePeriods(ctx, garageID, ranges.baseFrom, ranges.baseTo, ranges.curFrom, ranges.curTo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	filename := fmt.Sprintf("garage-%d-comparison-%s.csv", garageID, ranges.curTo.Format("2006-01"))
	h.streamCSV(w, filename, func(buf *bytes.Buffer) error {
		return export.WriteComparisonCSV(buf, comparison)
	})
}

func (h *Handler) handleFuelEconomyCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	vehicleID, err := pathID(r, "vehicleID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "vehicle id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.access.CanAccessVehicle(ctx, userID, vehicleID); err != nil {
		h.respondError(w, err)
		return
	}

	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	points, err := h.service.FuelEconomySeries(ctx, vehicleID, filters.from, filters.to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	filename := fmt.Sprintf("vehicle-%d-fuel-economy-%s.csv", vehicleID, filters.to)
	h.streamCSV(w, filename, func(buf *bytes.Buffer) error {
		return export.WriteFuelEconomyCSV(buf, points)
	})
}

func (h *Handler) respondReport(w http.ResponseWriter, report analytics.Report) {
	chart, err := h.costChart(report)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reportResponse{Report: report, CostChart: chart})
}

func (h *Handler) respondComparison(w http.ResponseWriter, comparison analytics.PeriodComparison) {
	chart, err := deltaChart(comparison)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, comparisonResponse{
		PeriodComparison: comparison,
		View:             analytics.BuildComparisonView(comparison),
		DeltaChart:       chart,
	})
}

func (h *Handler) streamCSV(w http.ResponseWriter, filename string, write func(*bytes.Buffer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := write(buf); err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) streamPDF(ctx context.Context, w http.ResponseWriter, title string, report analytics.Report, filename string) {
	chart, err := h.costChart(report)
	if err != nil {
		h.respondError(w, err)
		return
	}
	pdfBytes, err := h.pdf.RenderReport(ctx, export.ReportPayload{
		Title:     title,
		Report:    report,
		CostChart: chart,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) costChart(report analytics.Report) (template.HTML, error) {
	if len(report.Months) == 0 {
		return "", nil
	}
	labels := make([]string, 0, len(report.Months))
	totals := make([]float64, 0, len(report.Months))
	for _, point := range report.Months {
		labels = append(labels, point.Month)
		totals = append(totals, point.Total)
	}
	overlay := make([]*float64, 0, len(report.RollingLong))
	for _, point := range report.RollingLong {
		overlay = append(overlay, point.Value)
	}
	return svg.Line(svg.DefaultWidth, svg.DefaultHeight, totals, overlay, labels, svg.LineOpts{
		Title:       "Monthly Spend",
		Description: "Total spend per month with the long rolling average",
		ShowDots:    true,
	})
}

func deltaChart(comparison analytics.PeriodComparison) (template.HTML, error) {
	if len(comparison.Categories) == 0 {
		return "", nil
	}
	labels := make([]string, 0, len(comparison.Categories))
	baseline := make([]float64, 0, len(comparison.Categories))
	current := make([]float64, 0, len(comparison.Categories))
	for _, delta := range comparison.Categories {
		labels = append(labels, delta.Category)
		baseline = append(baseline, delta.Baseline)
		current = append(current, delta.Current)
	}
	return svg.Bars(svg.DefaultWidth, svg.DefaultHeight, baseline, current, labels, svg.BarOpts{
		Title:       "Period Comparison",
		Description: "Spend by category for the baseline and current periods",
	})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.respondError(w, httpx.ErrUnauthorized)
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		h.respondError(w, httpx.ErrUnauthorized)
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logError("parse user id", err)
		h.respondError(w, httpx.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}

// parseFilters reads the from/to month bounds, defaulting to the trailing
// twelve months ending with the current month.
func (h *Handler) parseFilters(r *http.Request) (reportFilters, error) {
	now := h.now().UTC()
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if to == "" {
		to = now.Format("2006-01")
	}
	if err := validateMonth(to); err != nil {
		return reportFilters{}, err
	}

	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from == "" {
		base, _ := time.Parse("2006-01", to)
		from = base.AddDate(0, -trendWindowMonths+1, 0).Format("2006-01")
	}
	if err := validateMonth(from); err != nil {
		return reportFilters{}, err
	}
	if from > to {
		return reportFilters{}, fmt.Errorf("%w: from must not be after to", httpx.ErrValidation)
	}
	return reportFilters{from: from, to: to}, nil
}

type compareRanges struct {
	baseFrom time.Time
	baseTo   time.Time
	curFrom  time.Time
	curTo    time.Time
}

// parseCompareRanges reads the four month bounds of a comparison. Each range
// spans whole calendar months, inclusive on both ends.
func parseCompareRanges(r *http.Request) (compareRanges, error) {
	query := r.URL.Query()
	parse := func(param string) (time.Time, error) {
		raw := strings.TrimSpace(query.Get(param))
		if err := validateMonth(raw); err != nil {
			return time.Time{}, fmt.Errorf("%w: %s is required as YYYY-MM", httpx.ErrValidation, param)
		}
		t, _ := time.Parse("2006-01", raw)
		return t, nil
	}

	baseFrom, err := parse("base_from")
	if err != nil {
		return compareRanges{}, err
	}
	baseTo, err := parse("base_to")
	if err != nil {
		return compareRanges{}, err
	}
	curFrom, err := parse("from")
	if err != nil {
		return compareRanges{}, err
	}
	curTo, err := parse("to")
	if err != nil {
		return compareRanges{}, err
	}
	if baseFrom.After(baseTo) || curFrom.After(curTo) {
		return compareRanges{}, fmt.Errorf("%w: range start must not be after its end", httpx.ErrValidation)
	}
	return compareRanges{
		baseFrom: baseFrom,
		baseTo:   endOfMonth(baseTo),
		curFrom:  curFrom,
		curTo:    endOfMonth(curTo),
	}, nil
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 23, 59, 59, 0, time.UTC)
}

func validateMonth(value string) error {
	if !monthRegex.MatchString(value) {
		return fmt.Errorf("%w: month must use the YYYY-MM format", httpx.ErrValidation)
	}
	if _, err := time.Parse("2006-01", value); err != nil {
		return fmt.Errorf("%w: month out of range", httpx.ErrValidation)
	}
	return nil
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

// respondError maps invalid data points to 422 before falling back to the
// shared error responder.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var invalid *analytics.InvalidDataPointError
	if errors.As(err, &invalid) {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Data Point", err.Error())
		return
	}
	httpx.RespondError(w, h.logger, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
