// Package server serves the manifest, the produced map data and the monitoring endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/manifest"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the HTTP server.
type Options struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DataDir      string
	ConsumerDir  string // served under /map when it exists
}

// NewRouter builds the gin engine. store may be nil when no database backs the cache.
func NewRouter(log *slog.Logger, gatherer prometheus.Gatherer, store Pinger, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		log.DebugContext(ctx, "Performing health checks...")

		status, body := http.StatusOK, "OK"
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		c.String(status, body)
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/"+manifest.FileName, manifestHandler(log, opts))
	router.Static("/data", opts.DataDir)

	consumerDir := consumerDirOf(opts)
	if info, err := os.Stat(consumerDir); err == nil && info.IsDir() {
		router.Static("/map", consumerDir)
	}

	return router
}

// manifestHandler serves <data>/manifest.json, building it in memory when it was never written.
func manifestHandler(log *slog.Logger, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := filepath.Join(opts.DataDir, manifest.FileName)
		if _, err := os.Stat(path); err == nil {
			c.File(path)
			return
		}

		entries, err := manifest.Build(opts.DataDir, consumerDirOf(opts))
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Failed to build manifest", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "manifest unavailable"})
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func consumerDirOf(opts Options) string {
	if opts.ConsumerDir != "" {
		return opts.ConsumerDir
	}
	return manifest.DefaultConsumerDir(opts.DataDir)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Run serves handler until ctx is canceled, then shuts the server down gracefully.
func Run(ctx context.Context, log *slog.Logger, handler http.Handler, opts Options) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Starting map data server", "port", opts.Port, "data_dir", opts.DataDir)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutdown signal received. Stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
