package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"luxe/config"
	"luxe/itinerary"
	"luxe/middleware"
	"luxe/mq"
	"luxe/progress"
	"luxe/ratelim"
	"luxe/routes"
)

const (
	submitBurst     = 2
	shutdownTimeout = 10 * time.Second
)

var servePort string

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve itinerary builds over HTTP",
	Long: `Start the HTTP API. Builds run in the background; poll
GET /api/itineraries/:id or follow /api/itineraries/:id/ws for progress.

When REDIS_URL is set, build events go through Redis so every instance's
websocket subscribers see them. When JWT_SECRET is set, every API call needs
a bearer token (see "luxe token").`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("took", time.Since(start)))
	})
}

// newHTTPHandler applies middleware: logging → security headers → CORS → router.
func newHTTPHandler(router *httprouter.Router, origins []string, logger *zap.Logger) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Location", "Retry-After", "Content-Disposition"},
	}).Handler(router)
	return loggingMiddleware(logger, securityHeaders(corsHandler))
}

// eventSinks returns where build events go. With Redis configured the hub is
// fed by the relay instead of directly, so events published by other
// instances reach local subscribers too.
func eventSinks(ctx context.Context, cfg *config.Config, hub *progress.Hub, registry *itinerary.Registry, logger *zap.Logger) (mq.Publisher, func(), error) {
	sinks := mq.Fanout{mq.LogPublisher{Logger: logger.Named("events")}, registry}
	if cfg.Server.RedisURL == "" {
		return append(sinks, hub), func() {}, nil
	}

	client, err := mq.NewRedisClient(cfg.Server.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	pub := mq.NewRedisPublisher(client)
	go func() {
		if err := pub.Relay(ctx, hub, logger.Named("relay")); err != nil {
			logger.Error("redis relay stopped", zap.Error(err))
		}
	}()
	return append(sinks, pub), func() { _ = client.Close() }, nil
}

func listenAddr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}
	logger, err := newLogger(cfg, "json")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := progress.NewHub(logger.Named("progress"))
	go hub.Run()
	registry := itinerary.NewRegistry()

	events, closeEvents, err := eventSinks(ctx, cfg, hub, registry, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	b, err := newBuilder(cfg, events, logger)
	if err != nil {
		return err
	}

	auth := middleware.NewAuth(cfg.Server.JWTSecret)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET not set; the API is open")
	}
	handler := itinerary.NewHandler(registry, b.Run, hub, logger.Named("api"))
	router := routes.New(handler, auth, ratelim.NewRateLimiter(cfg.Server.SubmitPerMin, submitBurst))

	server := &http.Server{
		Addr:              listenAddr(cfg.Server.Port),
		Handler:           newHTTPHandler(router, cfg.Server.AllowedOrigins, logger.Named("http")),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(hub.Stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("builds still running at exit", zap.Error(err))
	}
	logger.Info("server stopped cleanly")
	return nil
}
