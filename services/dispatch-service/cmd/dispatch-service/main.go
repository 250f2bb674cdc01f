package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/plumbdesk/dispatch/libs/config"
	"github.com/plumbdesk/dispatch/libs/db"
	"github.com/plumbdesk/dispatch/libs/grpcx"
	"github.com/plumbdesk/dispatch/libs/httpx"
	"github.com/plumbdesk/dispatch/libs/kafkax"
	otelx "github.com/plumbdesk/dispatch/libs/otel"
	"github.com/plumbdesk/dispatch/libs/runtime"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/handlers"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/holds"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/outbox"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := runtime.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "dispatch-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("AUTO_MIGRATE", false) {
		if err := storage.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migration failed", "err", err)
			panic(err)
		}
	}

	horizons, err := loadHorizons()
	if err != nil {
		panic(err)
	}
	cal, err := loadCalendar(logger)
	if err != nil {
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo)
	svc := scheduling.NewService(repo, logger,
		scheduling.WithCalendar(cal),
		scheduling.WithHorizons(horizons),
	)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	sweepEvery, err := config.Duration("HOLD_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		panic(err)
	}
	sweeper := holds.NewSweeper(repo, logger, holds.SweeperConfig{
		Interval:  sweepEvery,
		BatchSize: config.Int("HOLD_SWEEP_BATCH", 500),
	})
	go sweeper.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: true},
	}
	limiter, rdb, err := loadRateLimiter(logger)
	if err != nil {
		panic(err)
	}
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb), Optional: true})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", metrics.Handler())
	handlers.NewDispatchHandler(svc, logger).Register(mux)

	requestTimeout, err := config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		limiter,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "dispatch")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
}
