package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-profiles/internal/api"
	"github.com/celerix-dev/celerix-profiles/internal/config"
	internalengine "github.com/celerix-dev/celerix-profiles/internal/engine"
	"github.com/celerix-dev/celerix-profiles/internal/server"
	"github.com/celerix-dev/celerix-profiles/internal/vault"
	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/logging"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "celerix-stored: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	// 1. Initialize the profile store
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	opts, err := cfg.StoreOptions(log)
	if err != nil {
		return err
	}
	store, err := engine.New[schema.Document](cfg.EngineConfig(), opts...)
	if err != nil {
		return err
	}
	svc := internalengine.NewService(store, cfg.Obfuscate, log)

	ids, err := svc.List()
	if err != nil {
		log.Warn("could not list existing profiles", "error", err)
	}
	log.Info("store opened", "data_dir", cfg.DataDir, "profiles", len(ids), "codec", cfg.Codec, "obfuscated", cfg.Obfuscate)

	// 2. Initialize the TCP Router
	router := server.NewRouter(svc)
	router.SetLogger(log)

	if !cfg.DisableTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
		log.Info("TLS encryption enabled")
	} else {
		log.Warn("TLS encryption disabled", "env", "CELERIX_DISABLE_TLS")
	}

	// 3. Initialize the HTTP API
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newHTTPHandler(svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("TCP router listening", "port", cfg.Port)
		if err := router.Listen(cfg.Port); err != nil {
			errCh <- fmt.Errorf("tcp router: %w", err)
		}
	}()

	// 4. Wait for a signal or a failed listener
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-errCh:
		log.Error("server failed", "error", err)
	}

	// Profile writes are synchronous, so stopping the listeners is enough.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopErr := router.Stop(); stopErr != nil {
		log.Warn("tcp router stop", "error", stopErr)
	}
	if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
		log.Warn("http server shutdown", "error", stopErr)
	}
	log.Info("shutdown complete")
	return err
}

func newHTTPHandler(svc *internalengine.Service, log logging.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h := &api.Handler{Store: svc}
	h.Register(r.Group("/api"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
