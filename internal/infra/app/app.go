package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
	"github.com/SwagatoSarowar/Natours/internal/infra/database"
	"github.com/SwagatoSarowar/Natours/internal/infra/jobs"
	kafkainfra "github.com/SwagatoSarowar/Natours/internal/infra/kafka"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
	"github.com/SwagatoSarowar/Natours/internal/infra/mail"
	redisinfra "github.com/SwagatoSarowar/Natours/internal/infra/redis"
	"github.com/SwagatoSarowar/Natours/internal/infra/security"
	"github.com/SwagatoSarowar/Natours/internal/infra/telemetry"
	postgresrepo "github.com/SwagatoSarowar/Natours/internal/repository/postgres"
	redisrepo "github.com/SwagatoSarowar/Natours/internal/repository/redis"
	transportgrpc "github.com/SwagatoSarowar/Natours/internal/transport/grpc"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/routes"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

const (
	defaultRateLimitWindow = 15 * time.Minute
	shutdownTimeout        = 10 * time.Second
)

type Application struct {
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redisinfra.Client
	tracer     *telemetry.TracerProvider
	hashing    *security.HashingPool
	sweeper    *jobs.ResetTokenSweeper
	closers    []io.Closer
	grpcServer *transportgrpc.Server
	grpcAddr   string
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.release(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tracer

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	argon, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}
	a.hashing = security.NewHashingPool(argon, cfg.Hashing.Workers)

	tokens, err := security.NewSessionTokenIssuer(security.SessionTokenOptions{
		Secret: []byte(cfg.JWT.Secret),
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
	})
	if err != nil {
		return fmt.Errorf("init session tokens: %w", err)
	}
	resets := security.NewResetTokenManager(cfg.Reset.TokenTTL, nil)
	policy := security.NewPasswordPolicy(security.PasswordPolicyConfig{
		MinLength:      cfg.Password.MinLength,
		MaxLength:      cfg.Password.MaxLength,
		MinClasses:     cfg.Password.MinClasses,
		MinZxcvbnScore: cfg.Password.MinZxcvbnScore,
	})

	users := postgresrepo.NewUserRepository(pool)
	events := a.eventPublisher()

	mailer, err := a.mailer()
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	services := routes.ServiceSet{
		Auth:      usecase.NewAuthService(users, a.hashing, tokens, policy, events, log),
		Passwords: usecase.NewPasswordService(users, a.hashing, tokens, policy, events, log),
		Resets: usecase.NewPasswordResetService(users, a.hashing, tokens, resets, mailer, policy, events, usecase.PasswordResetOptions{
			URLBase:         cfg.Reset.URLBase,
			RollbackTimeout: cfg.Reset.RollbackTimeout,
		}, log),
		Users: usecase.NewUserService(users, events, log),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics := telemetry.NewAuthMetrics(registry)
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	window := cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	attempts := redisrepo.NewAttemptRepository(redisClient.Client(), redisrepo.AttemptWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       window * 2,
	})

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(attempts, log),
		Services:    services,
		AuthMetrics: authMetrics,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Database:    pool,
		Cache:       redisClient,
	})

	if cfg.GRPC.Enabled {
		srv, err := transportgrpc.NewServer(transportgrpc.ServerDependencies{
			Auth:       services.Auth,
			Recorder:   authMetrics,
			Registerer: registry,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("init grpc server: %w", err)
		}
		a.grpcServer = srv
		a.grpcAddr = fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	}

	sweeper, err := jobs.NewResetTokenSweeper(users, cfg.Reset.SweepSchedule, log)
	if err != nil {
		return fmt.Errorf("init reset sweeper: %w", err)
	}
	a.sweeper = sweeper

	return nil
}

// eventPublisher falls back to logging events when Kafka is not configured or unreachable.
func (a *Application) eventPublisher() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, logging events")
		return kafkainfra.NewLogPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, logging events", zap.Error(err))
		return kafkainfra.NewLogPublisher(a.logger)
	}
	a.closers = append(a.closers, producer)
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

func (a *Application) mailer() (port.Mailer, error) {
	cfg := a.cfg.Mail
	switch cfg.Transport {
	case "smtp":
		return mail.NewSMTPMailer(cfg, a.logger)
	case "kafka":
		producer, err := kafkainfra.NewSyncProducer(a.cfg.Kafka)
		if err != nil {
			return nil, err
		}
		outbox := kafkainfra.NewMailOutbox(producer, a.cfg.Kafka.TopicPrefix, cfg.Topic, cfg.From, a.logger)
		a.closers = append(a.closers, outbox)
		return outbox, nil
	case "", "log":
		return mail.NewLogMailer(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.release(rctx)
	}()

	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("start reset sweeper: %w", err)
	}

	grpcErrCh := make(chan error, 1)
	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC server", zap.String("address", a.grpcAddr))
		go func() {
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting Natours IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err := <-serverErrCh:
		return err
	case err := <-grpcErrCh:
		return err
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// release stops background work and closes every dependency that was
// opened, in reverse order of construction.
func (a *Application) release(ctx context.Context) {
	if a.sweeper != nil {
		if err := a.sweeper.Stop(ctx); err != nil {
			a.logger.Warn("reset sweeper stop", zap.Error(err))
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.Health.Shutdown()
		a.grpcServer.GracefulStop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close dependency", zap.Error(err))
		}
	}
	if a.hashing != nil {
		a.hashing.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown", zap.Error(err))
		}
	}
}
