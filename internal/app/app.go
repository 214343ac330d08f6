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
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/aurashop/storefront/internal/api"
	"github.com/aurashop/storefront/internal/catalog"
	"github.com/aurashop/storefront/internal/domain/cart"
	"github.com/aurashop/storefront/internal/domain/order"
	"github.com/aurashop/storefront/internal/storage/memory"
	"github.com/aurashop/storefront/internal/storage/postgres"
	redisstore "github.com/aurashop/storefront/internal/storage/redis"
	"github.com/aurashop/storefront/pkg/health"
	"github.com/aurashop/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	ledger := postgres.NewLedger(pool)

	// Cart sessions live in Redis when configured, in process memory
	// otherwise.
	var carts cart.Store
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		rdb := goredis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		carts = redisstore.NewCartStore(rdb, redisstore.DefaultTTL)
	} else {
		lg.Warn("Redis URL not set, cart sessions are kept in memory")
		carts = memory.NewCartStore()
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Prefilter warmed from the catalog so order placement can reject unknown
	// product ids without touching the database.
	ids, err := productRepo.ListIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "warm product prefilter")
	}
	prefilter := catalog.NewPrefilter(ids)
	lg.Info("Product prefilter warmed", zap.Int("products", len(ids)))

	// Domain services.
	orderService := order.NewService(productRepo, ledger, orderRepo, prefilter)

	// HTTP handlers.
	h := api.NewHandler(
		api.Config{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		productRepo,
		carts,
		orderService,
		orderRepo,
	)

	authn := httpmiddleware.Noop
	if cfg.APIKeyPepper != "" {
		authn = api.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper))
	} else {
		lg.Warn("API key pepper not set, order endpoints are unauthenticated")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, authn)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key", "X-Session-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
