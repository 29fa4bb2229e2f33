package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tradedesk/backoffice/internal/audit"
	"github.com/tradedesk/backoffice/internal/document"
	"github.com/tradedesk/backoffice/internal/observability"
	"github.com/tradedesk/backoffice/internal/platform/httpx"
	"github.com/tradedesk/backoffice/internal/reporting"
	"github.com/tradedesk/backoffice/internal/vendorsettings"
	"github.com/tradedesk/backoffice/jobs"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	VendorSettingsHandler *vendorsettings.Handler
	ReportHandler         *reporting.Handler
	DocumentHandler       *document.Handler
	JobHandler            *jobs.Handler
	AuditHandler          *audit.Handler

	// ReadinessChecks are run by /readyz, keyed by dependency name.
	ReadinessChecks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.ReadinessChecks, params.Logger))

	if params.VendorSettingsHandler != nil {
		r.Route("/vendor-settings", params.VendorSettingsHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}
	if params.DocumentHandler != nil {
		r.Route("/purchase-orders", params.DocumentHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit-logs", params.AuditHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func readinessHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				continue
			}
			result[name] = "ok"
		}
		httpx.JSON(w, status, result)
	}
}
