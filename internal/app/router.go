package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/titulaflow/titulaflow/internal/assignments"
	"github.com/titulaflow/titulaflow/internal/eligibility"
	"github.com/titulaflow/titulaflow/internal/issuance"
	"github.com/titulaflow/titulaflow/internal/notify"
	"github.com/titulaflow/titulaflow/internal/periods"
	"github.com/titulaflow/titulaflow/internal/validations"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	PeriodsHandler      *periods.Handler
	ValidationsHandler  *validations.Handler
	EligibilityHandler  *eligibility.Handler
	AssignmentsHandler  *assignments.Handler
	IssuanceHandler     *issuance.Handler
	NotificationHandler *notify.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/periods", params.PeriodsHandler.MountRoutes)
	r.Route("/validations", params.ValidationsHandler.MountRoutes)
	r.Route("/eligibility", params.EligibilityHandler.MountRoutes)
	r.Route("/assignments", params.AssignmentsHandler.MountRoutes)
	r.Route("/issuance", params.IssuanceHandler.MountRoutes)
	r.Route("/notifications", params.NotificationHandler.MountRoutes)

	return r
}
