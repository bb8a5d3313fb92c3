package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gatic-backend/api/controllers"
	"github.com/angelmondragon/gatic-backend/api/middleware"
	"github.com/angelmondragon/gatic-backend/internal/activity"
	"github.com/angelmondragon/gatic-backend/internal/assignments"
	"github.com/angelmondragon/gatic-backend/internal/inventory"
	"github.com/angelmondragon/gatic-backend/internal/loans"
	"github.com/angelmondragon/gatic-backend/internal/tasks"
	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gatic-backend/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient redisStore,
	metricsHandler http.Handler,
	inventoryService inventory.Service,
	loanService loans.Service,
	assignmentService assignments.Service,
	taskService tasks.Service,
	activityService activity.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var redisP pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	writePolicy := middleware.NewWriteRateLimitPolicy(cfg.RateLimit.WriteWindow, cfg.RateLimit.WriteLimit)
	writers := middleware.RequireRole(logg, enums.ActorRoleAdmin, enums.ActorRoleEditor)
	admins := middleware.RequireRole(logg, enums.ActorRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		if redisClient != nil {
			r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}
		r.Get("/ping", controllers.Ping())

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(inventoryService, logg))
			r.Get("/summary", controllers.InventorySummary(inventoryService, logg))
			r.Get("/export", controllers.InventoryExport(inventoryService, logg))
			r.Get("/{id}", controllers.InventoryGet(inventoryService, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.InventoryCreate(inventoryService, logg))
				r.Post("/{id}/retire", controllers.InventoryRetire(inventoryService, logg))
				r.Post("/{id}/maintenance", controllers.InventoryMaintenance(inventoryService, false, logg))
				r.Post("/{id}/maintenance/return", controllers.InventoryMaintenance(inventoryService, true, logg))
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.LoanList(loanService, logg))
			r.Get("/{id}", controllers.LoanGet(loanService, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.LoanCreate(loanService, logg))
				r.Post("/{id}/return", controllers.LoanReturn(loanService, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", controllers.AssignmentList(assignmentService, logg))
			r.Get("/{id}", controllers.AssignmentGet(assignmentService, logg))
			r.Group(func(r chi.Router) {
				r.Use(writers)
				r.Post("/", controllers.AssignmentCreate(assignmentService, logg))
				r.Post("/{id}/return", controllers.AssignmentReturn(assignmentService, logg))
				r.Post("/{id}/retire", controllers.AssignmentRetire(assignmentService, logg))
			})
		})

		r.Get("/activity", controllers.ActivityList(activityService, logg))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.TaskList(taskService, logg))
			// any non reader may file a task; the service enforces the rest
			r.Post("/", controllers.TaskCreate(taskService, logg))
			r.Group(func(r chi.Router) {
				r.Use(admins)
				r.Post("/{id}/approve", controllers.TaskApprove(taskService, logg))
				r.Post("/{id}/reject", controllers.TaskReject(taskService, logg))
			})
		})
	})

	return r
}
