package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/bolttesting/Bookly-sub001/internal/config"
	"github.com/bolttesting/Bookly-sub001/internal/outbox"
	"github.com/bolttesting/Bookly-sub001/internal/ratelimit"
	"github.com/bolttesting/Bookly-sub001/internal/scheduling"
	"github.com/bolttesting/Bookly-sub001/internal/service/appointments"
	"github.com/bolttesting/Bookly-sub001/internal/store/postgres"
	"github.com/bolttesting/Bookly-sub001/internal/telemetry"
	grpcTransport "github.com/bolttesting/Bookly-sub001/internal/transport/grpc"
)

const serviceName = "bookly-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	catalog := postgres.NewCatalogRepo(db)
	appts := postgres.NewAppointmentRepo(db)
	classes := postgres.NewClassRepo(db)

	engine := scheduling.NewEngine(scheduling.Repositories{
		Services:     catalog,
		Staff:        catalog,
		Availability: catalog,
		Appointments: appts,
	})
	bookings := appointments.NewService(engine, appts)

	limiter, closeLimiter := newLimiter(cfg, log)
	defer closeLimiter()

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(grpcTransport.Codec()),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestID(),
			grpcTransport.DefaultRequestTimeout(cfg.GRPCRequestTimeout),
			grpcTransport.RateLimit(limiter, log),
		),
	)
	grpcTransport.RegisterSchedulingService(grpcServer, grpcTransport.NewSchedulingServer(grpcTransport.SchedulingDeps{
		Engine:      engine,
		Waitlist:    scheduling.NewWaitlistCoordinator(postgres.NewWaitlistRepo(db), cfg.PromotionHold),
		Occurrences: scheduling.NewOccurrenceGenerator(classes, catalog, cfg.SeriesLookahead),
		Seats:       scheduling.NewSeatLedger(classes),
	}, log))
	grpcTransport.RegisterAppointmentsService(grpcServer, grpcTransport.NewAppointmentsServer(bookings, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	publisher := outbox.NewPublisher(postgres.NewOutboxRepo(db), log, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPollEvery,
		BatchSize: cfg.OutboxBatchSize,
	})
	workers.Add(1)
	go func() {
		defer workers.Done()
		publisher.Run(workerCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			stopWorkers()
			workers.Wait()
			os.Exit(1)
		}
	}

	stopWorkers()
	workers.Wait()
}

// newLimiter prefers Redis so every instance shares one budget per tenant.
func newLimiter(cfg config.Config, log *slog.Logger) (ratelimit.Limiter, func()) {
	if cfg.RateLimitRequests <= 0 {
		log.Info("rate limiting disabled")
		return nil, func() {}
	}
	if cfg.RedisURL == "" {
		log.Info("using in-process rate limiter", slog.Int("requests", cfg.RateLimitRequests), slog.Duration("window", cfg.RateLimitWindow))
		return ratelimit.NewLocalLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid redis url; using in-process rate limiter", slog.Any("err", err))
		return ratelimit.NewLocalLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
	}
	rdb := redis.NewClient(opts)
	log.Info("using redis rate limiter", slog.String("redis_addr", opts.Addr), slog.Bool("fail_open", cfg.RateLimitFailOpen))
	limiter := ratelimit.NewRedisLimiter(rdb, log, ratelimit.RedisConfig{
		Limit:    cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		FailOpen: cfg.RateLimitFailOpen,
	})
	return limiter, func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close failed", slog.Any("err", err))
		}
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
