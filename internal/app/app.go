// Package app wires configuration, storage, domain services and the HTTP
// server into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/orders-service/internal/api"
	"github.com/xenking/orders-service/internal/domain/order"
	"github.com/xenking/orders-service/internal/repository"
	"github.com/xenking/orders-service/pkg/health"
	"github.com/xenking/orders-service/pkg/httpmiddleware"
)

// Run assembles the service and blocks until ctx is cancelled or the server
// fails. Shutdown is graceful: the readiness probe flips first so load
// balancers drain the instance, then in-flight requests get a bounded window
// to finish.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := newHealth(ctx, pool)

	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	orderService := order.NewService(productRepo, orderRepo)
	handler := api.NewHandler(orderService, productRepo)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(ctx, cfg, m, healthSvc, handler),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdown(lg, cfg.Graceful, server, healthSvc)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHealth registers the service probes: postgres connectivity gates
// readiness, goroutine count and GC pauses gate liveness.
func newHealth(ctx context.Context, pool *pgxpool.Pool) *health.Health {
	h := health.New()
	h.AddReadinessCheck("postgres", 5*time.Second, pool.Ping)
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	h.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	h.Start(ctx, 10*time.Second)
	h.SetReady(true)
	return h
}

// buildHandler stacks the probe endpoints and the otelhttp-instrumented API
// routes behind one middleware chain. The first middleware listed is the
// outermost, so recovery wraps everything.
func buildHandler(ctx context.Context, cfg *Config, m *app.Telemetry, healthSvc *health.Health, h *api.Handler) http.Handler {
	apiHandler := otelhttp.NewHandler(
		http.StripPrefix("/api", h.Router()),
		"orders-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", apiHandler)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)
}

// shutdown drops readiness, waits for load balancers to notice, then stops
// the server within the configured timeout.
func shutdown(lg *zap.Logger, cfg GracefulConfig, server *http.Server, healthSvc *health.Health) {
	healthSvc.SetReady(false)
	lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
	time.Sleep(cfg.ReadinessDelay)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := server.Shutdown(ctx); err != nil {
		lg.Error("Server shutdown error", zap.Error(err))
	}
	healthSvc.Stop()
}
