package fuel

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/fuel", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/stats", h.handleStats)
		r.Get("/{logID}", h.handleGet)
		r.Delete("/{logID}", h.handleDelete)
	})
}

type listResponse struct {
	Logs       []Log             `json:"logs"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	logs, total, err := h.service.List(r.Context(), userID, filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if logs == nil {
		logs = []Log{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Logs:       logs,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "logID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	log, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, log)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, h.logger, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	log, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, log)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "logID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	vehicleID, err := strconv.ParseInt(r.URL.Query().Get("vehicle_id"), 10, 64)
	if err != nil || vehicleID <= 0 {
		httpx.RespondError(w, h.logger, fmt.Errorf("%w: vehicle_id is required", httpx.ErrValidation))
		return
	}
	stats, err := h.service.Stats(r.Context(), userID, vehicleID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func parseFilters(r *http.Request) (ListFilters, error) {
	q := r.URL.Query()
	vehicleID, err := strconv.ParseInt(q.Get("vehicle_id"), 10, 64)
	if err != nil || vehicleID <= 0 {
		return ListFilters{}, fmt.Errorf("%w: vehicle_id is required", httpx.ErrValidation)
	}
	filters := ListFilters{
		VehicleID: vehicleID,
		DEFOnly:   q.Get("def") == "true",
		Page:      1,
		Limit:     20,
	}
	for _, bound := range []struct {
		value  string
		target *string
	}{{q.Get("from"), &filters.From}, {q.Get("to"), &filters.To}} {
		if bound.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound.value); err != nil {
			return ListFilters{}, fmt.Errorf("%w: date bounds must be YYYY-MM-DD", httpx.ErrValidation)
		}
		*bound.target = bound.value
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filters.Limit = limit
	}
	return filters, nil
}

func currentUser(r *http.Request) (int64, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, httpx.ErrUnauthorized
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0, httpx.ErrUnauthorized
	}
	return id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", httpx.ErrValidation, name)
	}
	return id, nil
}
