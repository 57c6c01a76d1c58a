package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/mygarage/mygarage/internal/analytics/http"
	"github.com/mygarage/mygarage/internal/auth"
	"github.com/mygarage/mygarage/internal/coverage"
	"github.com/mygarage/mygarage/internal/documents"
	"github.com/mygarage/mygarage/internal/expenses"
	"github.com/mygarage/mygarage/internal/fuel"
	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/maintenance"
	"github.com/mygarage/mygarage/internal/settings"
	"github.com/mygarage/mygarage/internal/shared"
	"github.com/mygarage/mygarage/internal/vehicles"
	"github.com/mygarage/mygarage/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	GarageHandler      *garage.Handler
	VehiclesHandler    *vehicles.Handler
	MaintenanceHandler *maintenance.Handler
	FuelHandler        *fuel.Handler
	CoverageHandler    *coverage.Handler
	ExpensesHandler    *expenses.Handler
	DocumentsHandler   *documents.Handler
	SettingsHandler    *settings.Handler
	AnalyticsHandler   *analytichttp.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.MountRoutes(r)
	params.GarageHandler.MountRoutes(r)
	params.VehiclesHandler.MountRoutes(r)
	params.MaintenanceHandler.MountRoutes(r)
	params.FuelHandler.MountRoutes(r)
	params.CoverageHandler.MountRoutes(r)
	params.ExpensesHandler.MountRoutes(r)
	params.DocumentsHandler.MountRoutes(r)
	params.SettingsHandler.MountRoutes(r)
	params.AnalyticsHandler.MountRoutes(r)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
