package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qkdsim_http_requests_total",
			Help: "Total HTTP requests handled by the qkdsim API.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qkdsim_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

// metricsMiddleware records request counts and latency per route, in the
// style of the teacher's logging middleware.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start).Seconds()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, path, statusLabel(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(elapsed)
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// loggingMiddleware logs each request at Info level, replacing the
// teacher's stdlib log.Printf middleware with structured logrus fields.
func loggingMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("handled request")
	}
}

// NewRouter wires every route the driver layer exposes.
func NewRouter(handler *Handler, log *logrus.Logger) *gin.Engine {
	if log == nil {
		log = logrus.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggingMiddleware(log))
	r.Use(metricsMiddleware())

	r.GET("/health", handler.HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := r.Group("/sessions")
	{
		sessions.POST("", handler.InitiateSessionHandler)
		sessions.POST("/:id/join", handler.JoinSessionHandler)
		sessions.POST("/:id/exchange", handler.ExecuteKeyExchangeHandler)
		sessions.GET("/:id", handler.GetSessionHandler)
	}

	keys := r.Group("/keys")
	{
		keys.GET("/:id", handler.GetKeyHandler)
		keys.DELETE("/:id", handler.RevokeKeyHandler)
	}

	return r
}
