package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rentora-erp/rentora-erp/internal/auth"
	"github.com/rentora-erp/rentora-erp/internal/delivery"
	"github.com/rentora-erp/rentora-erp/internal/observability"
	"github.com/rentora-erp/rentora-erp/internal/procurement"
	"github.com/rentora-erp/rentora-erp/internal/projects"
	"github.com/rentora-erp/rentora-erp/internal/returns"
	"github.com/rentora-erp/rentora-erp/internal/vendors"
	"github.com/rentora-erp/rentora-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	ProjectsHandler    *projects.Handler
	VendorsHandler     *vendors.Handler
	ProcurementHandler *procurement.Handler
	DeliveryHandler    *delivery.Handler
	ReturnsHandler     *returns.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Rentora defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires a resolved principal.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePrincipal(params.AuthService, params.Logger))

		r.Route("/projects", params.ProjectsHandler.MountRoutes)
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		r.Route("/delivery", params.DeliveryHandler.MountRoutes)
		r.Route("/returns", params.ReturnsHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// OrderSummaryAdapter bridges the procurement service to the slim view
// the projects detail endpoint embeds.
type OrderSummaryAdapter struct {
	Service *procurement.Service
}

// ProjectOrderSummaries lists order summaries for one project.
func (a OrderSummaryAdapter) ProjectOrderSummaries(ctx context.Context, principalID, projectID int64) ([]projects.OrderSummary, error) {
	orders, err := a.Service.ListByProject(ctx, principalID, projectID)
	if err != nil {
		return nil, err
	}
	summaries := make([]projects.OrderSummary, 0, len(orders))
	for _, po := range orders {
		summaries = append(summaries, projects.OrderSummary{
			ID:       po.ID,
			Number:   po.Number,
			Status:   string(po.Status),
			VendorID: po.VendorID,
		})
	}
	return summaries, nil
}
