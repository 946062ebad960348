package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskmanager/backend/internal/auth"
	"github.com/taskmanager/backend/internal/config"
	"github.com/taskmanager/backend/internal/db"
	"github.com/taskmanager/backend/internal/logger"
	"github.com/taskmanager/backend/internal/metrics"
	"github.com/taskmanager/backend/internal/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

// HealthHandler answers 200 while ping succeeds and 503 otherwise.
func HealthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "text/plain")
		if err := ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "database unavailable")
			return
		}
		fmt.Fprintln(w, "ok")
	}
}

type routerDeps struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler *auth.Handler
	tokens  *auth.TokenIssuer
	limiter *middleware.RateLimiter
	ping    func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(d.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(d.metrics.Middleware)
	r.Use(middleware.CORS(d.cfg.AllowedOrigins))

	r.Get("/", RootHandler)
	r.Get("/healthz", HealthHandler(d.ping))
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	r.Mount("/auth", auth.SetupRoutes(d.handler, d.tokens, d.limiter))
	return r
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New("taskmanager-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.DatabaseURL, log, 30*time.Second)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(conn)

	if err := auth.Migrate(conn); err != nil {
		return fmt.Errorf("migrate auth schema: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	svc := auth.NewService(auth.NewGormStore(conn), auth.NewHasher(cfg.BcryptCost), tokens, log, m)
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer limiter.Close()

	srv := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: newRouter(routerDeps{
			cfg:     cfg,
			logger:  log,
			metrics: m,
			handler: auth.NewHandler(svc, log),
			tokens:  tokens,
			limiter: limiter,
			ping:    func(ctx context.Context) error { return db.Ping(ctx, conn) },
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
