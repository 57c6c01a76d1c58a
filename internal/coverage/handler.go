package coverage

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

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
	r.Route("/warranties", func(r chi.Router) {
		r.Get("/", h.handleWarranties)
		r.Post("/", h.handleCreateWarranty)
		r.Put("/{warrantyID}", h.handleUpdateWarranty)
		r.Delete("/{warrantyID}", h.handleDeleteWarranty)
	})
	r.Route("/tsbs", func(r chi.Router) {
		r.Get("/", h.handleBulletins)
		r.Post("/", h.handleCreateBulletin)
		r.Put("/{tsbID}", h.handleUpdateBulletin)
		r.Delete("/{tsbID}", h.handleDeleteBulletin)
	})
}

func (h *Handler) handleWarranties(w http.ResponseWriter, r *http.Request) {
	userID, vehicleID, err := listParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	warranties, err := h.service.Warranties(r.Context(), userID, vehicleID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if warranties == nil {
		warranties = []Warranty{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warranties": warranties})
}

func (h *Handler) handleCreateWarranty(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req WarrantyRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	warranty, err := h.service.CreateWarranty(r.Context(), userID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, warranty)
}

func (h *Handler) handleUpdateWarranty(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "warrantyID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req WarrantyRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	warranty, err := h.service.UpdateWarranty(r.Context(), userID, id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warranty)
}

func (h *Handler) handleDeleteWarranty(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "warrantyID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteWarranty(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBulletins(w http.ResponseWriter, r *http.Request) {
	userID, vehicleID, err := listParams(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	includeResolved := r.URL.Query().Get("resolved") == "true"
	bulletins, err := h.service.Bulletins(r.Context(), userID, vehicleID, includeResolved)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if bulletins == nil {
		bulletins = []TSB{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tsbs": bulletins})
}

func (h *Handler) handleCreateBulletin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req TSBRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.service.CreateBulletin(r.Context(), userID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) handleUpdateBulletin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "tsbID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req TSBRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.service.UpdateBulletin(r.Context(), userID, id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleDeleteBulletin(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "tsbID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteBulletin(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listParams(r *http.Request) (userID, vehicleID int64, err error) {
	userID, err = currentUser(r)
	if err != nil {
		return 0, 0, err
	}
	vehicleID, err = strconv.ParseInt(r.URL.Query().Get("vehicle_id"), 10, 64)
	if err != nil || vehicleID <= 0 {
		return 0, 0, fmt.Errorf("%w: vehicle_id is required", httpx.ErrValidation)
	}
	return userID, vehicleID, nil
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	if err := h.validator.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return nil
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
