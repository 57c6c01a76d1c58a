package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/mygarage/mygarage/internal/shared"
)

// MountRoutes registers analytics endpoints onto the router. Export
// endpoints are rate limited per user since PDF rendering is expensive.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/analytics/vehicles/{vehicleID}", h.handleVehicleReport)
	r.Get("/analytics/vehicles/{vehicleID}/compare", h.handleVehicleCompare)
	r.Get("/analytics/garages/{garageID}", h.handleGarageReport)
	r.Get("/analytics/garages/{garageID}/compare", h.handleGarageCompare)
	r.Get("/analytics/fleet", h.handleFleetReport)

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/analytics/vehicles/{vehicleID}/export.csv", h.handleVehicleCSV)
		gr.Get("/analytics/vehicles/{vehicleID}/export.pdf", h.handleVehiclePDF)
		gr.Get("/analytics/vehicles/{vehicleID}/compare/export.csv", h.handleVehicleCompareCSV)
		gr.Get("/analytics/vehicles/{vehicleID}/fuel/export.csv", h.handleFuelEconomyCSV)
		gr.Get("/analytics/garages/{garageID}/export.csv", h.handleGarageCSV)
		gr.Get("/analytics/garages/{garageID}/export.pdf", h.handleGaragePDF)
		gr.Get("/analytics/garages/{garageID}/compare/export.csv", h.handleGarageCompareCSV)
		gr.Get("/analytics/fleet/export.csv", h.handleFleetCSV)
		gr.Get("/analytics/fleet/export.pdf", h.handleFleetPDF)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
