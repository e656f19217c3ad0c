package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/lenskeep/studio-api/internal/middleware"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
	// RequestTimeout bounds authenticated requests; zero means 30s.
	RequestTimeout time.Duration
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewRouter assembles the middleware chain and mounts all handlers.
// The ws handler authenticates inside its own endpoint (query token), so it
// registers on the public group; everything else sits behind bearer auth.
func NewRouter(
	auth *middleware.AuthMiddleware,
	notificationH Handler,
	statusH Handler,
	opsH Handler,
	wsH Handler,
	healthH Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		metrics: newRouterMetrics(),
	}

	rateLimiter := middleware.NewRateLimiter(config.RateLimit, config.RateBurst)

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.CORS(config.CORSConfig),
		rateLimiter.RateLimit(),
		r.metricsMiddleware(),
	)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := engine.Group("/api/v1")
	healthH.RegisterRoutes(public)
	wsH.RegisterRoutes(public)

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	authed := engine.Group("/api/v1")
	authed.Use(middleware.Timeout(timeout), auth.Authenticate())
	notificationH.RegisterRoutes(authed)
	statusH.RegisterRoutes(authed)

	admin := engine.Group("/api/v1")
	admin.Use(middleware.Timeout(timeout), auth.Authenticate(), auth.RequireAdmin())
	opsH.RegisterRoutes(admin)

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}
