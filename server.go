package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/sheetsync"
	"github.com/mmdatafocus/distributor_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	_ "time/tzdata"
)

var tracer trace.Tracer = otel.Tracer("distributor-dashboard")

func init() {
	// posted numbers stay json.Number so money is never routed through float64
	binding.EnableDecoderUseNumber = true
}

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// apiServer carries what the handlers need; one snapshot is processed per request.
type apiServer struct {
	settings config.Settings
	loc      *time.Location
	logger   *logrus.Logger
	// nil when the sheet API is not configured
	source sheetsync.SnapshotSource
	now    func() time.Time
}

func newAPIServer(settings config.Settings, source sheetsync.SnapshotSource, logger *logrus.Logger) (*apiServer, error) {
	loc, err := utils.LoadLocation(settings.ReferenceTimezone)
	if err != nil {
		return nil, err
	}
	return &apiServer{
		settings: settings,
		loc:      loc,
		logger:   logger,
		source:   source,
		now:      time.Now,
	}, nil
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// correlationMiddleware generates a correlation id once per request and attaches it to the context.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

func corsMiddleware(settings config.Settings) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	// In production, require explicit allowlist via CORS_ALLOWED_ORIGINS; otherwise allow all.
	if settings.Production {
		corsConfig.AllowOrigins = settings.CorsAllowedOrigins
		if len(corsConfig.AllowOrigins) == 0 {
			// deny all if not configured in production
			corsConfig.AllowOrigins = []string{"https://invalid.localhost"}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	return cors.New(corsConfig)
}

func (s *apiServer) router() *gin.Engine {
	r := gin.New()
	r.Use(correlationMiddleware())
	r.Use(corsMiddleware(s.settings))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if client := config.GetRedisDB(); client != nil && strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		r.Use(NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second).RateLimitMiddleware)
	}

	r.Use(customErrorLogger(s.logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	v1 := r.Group("/api/v1")
	v1.POST("/reconcile", s.reconcileHandler())
	v1.POST("/reconcile/export", s.reconcileExportHandler())
	v1.POST("/trends", s.trendsHandler())
	v1.GET("/dashboard/sku", s.dashboardSkuHandler())
	v1.GET("/dashboard/trends", s.dashboardTrendsHandler())
	v1.POST("/dashboard/refresh", s.dashboardRefreshHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	settings := config.GetSettings()
	logger := config.GetLogger()
	if settings.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Redis is optional: it backs the snapshot cache and rate limiting only.
	if settings.RedisAddress != "" {
		if err := config.ConnectRedisWithRetry(sigCtx, settings.RedisAddress, 5); err != nil {
			config.LogWarn(logger, "server.go", "main", "ConnectRedisWithRetry", settings.RedisAddress, "redis disabled: "+err.Error())
		}
	}
	defer config.CloseRedis()

	var source sheetsync.SnapshotSource
	if src, err := sheetsync.NewSourceFromSettings(settings); err != nil {
		config.LogWarn(logger, "server.go", "main", "NewSourceFromSettings", nil, "dashboard endpoints disabled: "+err.Error())
	} else {
		source = src
	}

	api, err := newAPIServer(settings, source, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "REFERENCE_TIMEZONE"}).Fatal(err.Error())
	}

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           api.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{
		"port":     settings.Port,
		"timezone": settings.ReferenceTimezone,
	}).Info("server started")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.FullPath(),
				"status":         c.Writer.Status(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware counts requests per client IP in a fixed window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count == 1 {
		if err := rl.client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
