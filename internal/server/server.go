// Package server exposes the optimizer over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/listingopt/internal/config"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// rateLimitClients bounds how many per-IP limiters are kept.
const rateLimitClients = 10000

// SetupRouter creates the gin engine with middleware and routes. A nil
// gatherer disables /metrics.
func SetupRouter(cfg *config.Config, handler *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RequestLogger())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.POST("/optimize",
			RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst, rateLimitClients),
			handler.Optimize)
		api.GET("/optimizations", handler.ListOptimizations)
		api.GET("/optimizations/:id", handler.GetOptimization)
		api.GET("/history/:asin", handler.History)
		api.GET("/changes/:asin", handler.Changes)
	}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})

	return router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// Write timeouts are left unset since an optimization can take well over a
// minute.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
