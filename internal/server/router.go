package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"growly/internal/config"
	"growly/internal/domain/feed"
	"growly/internal/domain/lead"
	"growly/internal/middleware"
	"growly/internal/pkg/logger"
	"growly/internal/pkg/metrics"
	"growly/internal/pkg/response"
)

const (
	Name    = "Growly API"
	Version = "1.0.0"
)

// App is the assembled HTTP application.
type App struct {
	Router  *gin.Engine
	Hub     *feed.Hub
	Metrics *metrics.Metrics
	Leads   *lead.Service
}

// Option customises New.
type Option func(*options)

type options struct {
	notifier lead.Notifier
	policy   middleware.AdminPolicy
	clock    func() time.Time
}

// WithNotifier sends new-lead notifications through n.
func WithNotifier(n lead.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithAdminPolicy overrides the policy derived from cfg.Admin.
func WithAdminPolicy(p middleware.AdminPolicy) Option {
	return func(o *options) { o.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New wires the store, services and handlers onto a gin engine.
func New(cfg *config.Config, db *gorm.DB, log logger.Logger, opts ...Option) *App {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.policy == nil {
		o.policy = middleware.PolicyFromConfig(cfg.Admin)
	}
	if log == nil {
		log = logger.Discard()
	}

	m := metrics.New()
	hub := feed.NewHub(m, log.With("component", "feed"))

	serviceOpts := []lead.Option{
		lead.WithPublisher(hub),
		lead.WithMetrics(m),
		lead.WithLogger(log.With("component", "lead")),
	}
	if o.notifier != nil {
		serviceOpts = append(serviceOpts, lead.WithNotifier(o.notifier))
	}
	if o.clock != nil {
		serviceOpts = append(serviceOpts, lead.WithClock(o.clock))
	}
	leadService := lead.NewService(lead.NewRepository(db), serviceOpts...)

	app := &App{
		Hub:     hub,
		Metrics: m,
		Leads:   leadService,
	}
	app.Router = newRouter(cfg, log, m, o.policy, routeHandlers{
		leads: lead.NewHandler(leadService),
		feed:  feed.NewHandler(hub, cfg.AllowedOrigins),
	})
	return app
}

type routeHandlers struct {
	leads *lead.Handler
	feed  *feed.Handler
}

func newRouter(cfg *config.Config, log logger.Logger, m *metrics.Metrics, policy middleware.AdminPolicy, h routeHandlers) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(log),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/", serviceInfo)

	api := r.Group("/api")
	api.GET("/health", health(cfg.AppEnv))

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	lead.RegisterPublicRoutes(api, h.leads, limiter.Middleware())

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(policy, log))
	{
		lead.RegisterAdminRoutes(admin, h.leads)
		feed.RegisterRoutes(admin, h.feed)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "ROUTE_NOT_FOUND",
			fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})

	return r
}

func serviceInfo(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"name":    Name,
		"version": Version,
		"endpoints": gin.H{
			"health": "/api/health",
			"leads":  "/api/leads",
			"admin":  "/api/admin/leads",
		},
	})
}

// health stays outside the envelope so load balancers can read it directly.
func health(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"message":     "Growly API is running!",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"environment": env,
		})
	}
}
