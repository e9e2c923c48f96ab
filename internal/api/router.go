package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/go-crm/internal/activities"
	"github.com/hugh/go-crm/internal/analytics"
	"github.com/hugh/go-crm/internal/api/handlers"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/auth"
	"github.com/hugh/go-crm/internal/contacts"
	"github.com/hugh/go-crm/internal/deals"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/hugh/go-crm/internal/tasks"
	"github.com/hugh/go-crm/pkg/cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	AnalyticsCache cache.Cache    // nil falls back to an in-process cache
	AnalyticsTTL   time.Duration  // zero means analytics.DefaultTTL
	DealNotifier   deals.Notifier // optional; receives won/lost transitions
	AllowedOrigins []string       // CORS allowed origins
	RateLimitReqs  int            // Rate limit requests per window
	RateLimitSecs  int            // Rate limit window in seconds
	Metrics        bool           // expose /metrics
	Development    bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Secure(middleware.SecureOptions(cfg.Development)))
	if cfg.Metrics {
		r.Use(middleware.Metrics)
	}

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.OrganizationHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize services
	ttl := cfg.AnalyticsTTL
	if ttl <= 0 {
		ttl = analytics.DefaultTTL
	}
	memberService := membership.NewService(cfg.DB)
	contactService := contacts.NewService(cfg.DB, memberService)
	dealService := deals.NewService(cfg.DB, memberService, cfg.DealNotifier, cfg.Logger)
	taskService := tasks.NewService(cfg.DB, memberService)
	activityService := activities.NewService(cfg.DB, memberService)
	analyticsService := analytics.NewService(cfg.DB, memberService, cfg.AnalyticsCache, ttl, cfg.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	orgHandler := handlers.NewOrganizationHandler(memberService)
	contactHandler := handlers.NewContactHandler(contactService)
	dealHandler := handlers.NewDealHandler(dealService)
	taskHandler := handlers.NewTaskHandler(taskService)
	activityHandler := handlers.NewActivityHandler(activityService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}

			r.Get("/organizations/me", orgHandler.Me)

			// Tenant-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Tenant)

				r.Route("/organizations/members", func(r chi.Router) {
					r.Get("/", orgHandler.ListMembers)
					r.Post("/", orgHandler.AddMember)
					r.Patch("/{userID}", orgHandler.UpdateMember)
					r.Delete("/{userID}", orgHandler.RemoveMember)
				})

				r.Route("/contacts", func(r chi.Router) {
					r.Get("/", contactHandler.List)
					r.Post("/", contactHandler.Create)
					r.Get("/{id}", contactHandler.Get)
					r.Patch("/{id}", contactHandler.Update)
					r.Delete("/{id}", contactHandler.Delete)
				})

				r.Route("/deals", func(r chi.Router) {
					r.Get("/", dealHandler.List)
					r.Post("/", dealHandler.Create)
					r.Get("/{id}", dealHandler.Get)
					r.Patch("/{id}", dealHandler.Update)
					r.Delete("/{id}", dealHandler.Delete)
					r.Get("/{id}/activities", activityHandler.List)
					r.Post("/{id}/activities", activityHandler.Create)
				})

				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", taskHandler.List)
					r.Post("/", taskHandler.Create)
					r.Get("/{id}", taskHandler.Get)
					r.Patch("/{id}", taskHandler.Update)
					r.Delete("/{id}", taskHandler.Delete)
				})

				r.Route("/analytics/deals", func(r chi.Router) {
					r.Get("/summary", analyticsHandler.Summary)
					r.Get("/funnel", analyticsHandler.Funnel)
				})
			})
		})
	})

	return &Router{r}
}
