package settings

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/shared"
)

// Handler exposes the settings document and the auto-save endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	manager *Manager
}

// NewHandler constructs the settings HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, manager *Manager) *Handler {
	return &Handler{logger: logger, service: service, manager: manager}
}

// MountRoutes registers settings endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/settings", h.handleGet)
	r.Put("/settings", h.handlePut)
	r.Patch("/settings/autosave", h.handleAutoSave)
	r.Post("/settings/flush", h.handleFlush)
}

type autoSaveResponse struct {
	State string `json:"state"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// handlePut applies an edit synchronously, bypassing the debounce. Used by
// clients that want a confirmed write, such as the final save on page exit.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	doc, err := h.service.Apply(r.Context(), userID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// handleAutoSave accepts an edit into the debounce loop and returns
// immediately. An accepted edit always schedules a save, so the response
// reports pending rather than re-reading the loop state mid-handoff.
func (h *Handler) handleAutoSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.manager.Edit(userID, req)
	httpx.JSON(w, http.StatusAccepted, autoSaveResponse{State: StatePending.String()})
}

// handleFlush forces any buffered edit to persist now.
func (h *Handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	doc, err := h.manager.Flush(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, h.logger, httpx.ErrUnauthorized)
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		httpx.RespondError(w, h.logger, httpx.ErrUnauthorized)
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.RespondError(w, h.logger, httpx.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}
