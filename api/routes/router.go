package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paprflow/paprflow-backend/api/controllers"
	"github.com/paprflow/paprflow-backend/api/middleware"
	"github.com/paprflow/paprflow-backend/internal/activity"
	"github.com/paprflow/paprflow-backend/internal/invoices"
	"github.com/paprflow/paprflow-backend/internal/ocr"
	"github.com/paprflow/paprflow-backend/internal/rules"
	"github.com/paprflow/paprflow-backend/internal/vendors"
	"github.com/paprflow/paprflow-backend/internal/workflow"
	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	pkgredis "github.com/paprflow/paprflow-backend/pkg/redis"
)

// Dependencies carries everything the router mounts. Optional entries
// (OCRJobs, Health pingers) may be nil.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Redis *pkgredis.Client

	WorkflowService workflow.Service
	InvoiceRepo     invoices.Repository
	VendorService   vendors.Service
	RuleService     rules.Service
	ActivityService activity.Service
	OCRJobs         *ocr.JobPublisher

	HealthChecks map[string]controllers.Pinger
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthChecks))
	})
	r.Handle("/metrics", promhttp.Handler())

	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(deps.InvoiceRepo, logg))
			r.Post("/", invoiceSubmit(deps, logg))
			r.Get("/{invoiceID}", controllers.InvoiceDetail(deps.InvoiceRepo, logg))
			r.Get("/{invoiceID}/rule-matches", controllers.InvoiceRuleMatches(deps.WorkflowService, logg))
			r.Post("/{invoiceID}/submit-for-approval", controllers.InvoiceSubmitForApproval(deps.WorkflowService, logg))
			r.Post("/{invoiceID}/decision", controllers.InvoiceDecision(deps.WorkflowService, logg))
			r.Post("/{invoiceID}/assign", controllers.InvoiceAssign(deps.WorkflowService, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.VendorSearch(deps.VendorService, logg))
			r.Post("/", controllers.VendorCreate(deps.VendorService, logg))
			r.Get("/{vendorID}", controllers.VendorDetail(deps.VendorService, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleSupervisor)).
				Post("/{vendorID}/flag", controllers.VendorFlag(deps.VendorService, logg))
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", controllers.RuleList(deps.RuleService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleSupervisor))
				r.Post("/", controllers.RuleCreate(deps.RuleService, logg))
				r.Patch("/{ruleID}/active", controllers.RuleSetActive(deps.RuleService, logg))
			})
		})

		r.Get("/activities", controllers.ActivityFeed(deps.ActivityService, logg))
	})

	return r
}

// invoiceSubmit avoids handing a typed-nil queuer to the controller
// when Pub/Sub is not wired.
func invoiceSubmit(deps Dependencies, logg *logger.Logger) http.HandlerFunc {
	if deps.OCRJobs == nil {
		return controllers.InvoiceSubmit(deps.WorkflowService, nil, logg)
	}
	return controllers.InvoiceSubmit(deps.WorkflowService, deps.OCRJobs, logg)
}
