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
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpcHealth "google.golang.org/grpc/health"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/peitalin/dt-auth-service/internal/adapters/db/memory"
	postgresRepo "github.com/peitalin/dt-auth-service/internal/adapters/db/postgres"
	redisRepo "github.com/peitalin/dt-auth-service/internal/adapters/db/redis"
	"github.com/peitalin/dt-auth-service/internal/adapters/events/kafka"
	"github.com/peitalin/dt-auth-service/internal/adapters/notify/logsender"
	"github.com/peitalin/dt-auth-service/internal/adapters/notify/rabbitmq"
	httpTransport "github.com/peitalin/dt-auth-service/internal/adapters/transport/http"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/app/health"
	"github.com/peitalin/dt-auth-service/internal/app/user/events"
	"github.com/peitalin/dt-auth-service/internal/app/user/jwt"
	"github.com/peitalin/dt-auth-service/internal/app/user/password"
	"github.com/peitalin/dt-auth-service/internal/app/user/reset"
	"github.com/peitalin/dt-auth-service/internal/app/user/service"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	"github.com/peitalin/dt-auth-service/internal/infra/config"
	"github.com/peitalin/dt-auth-service/internal/infra/dispatch"
	lg "github.com/peitalin/dt-auth-service/internal/infra/log"
	"github.com/peitalin/dt-auth-service/internal/infra/migrate"
	"github.com/peitalin/dt-auth-service/internal/infra/server"
)

const (
	checkInterval = 15 * time.Second
	purgeInterval = 10 * time.Minute
)

type storage struct {
	users  repo.UserRepo
	resets repo.ResetTokenRepo
	checks []health.Check
	close  func()
}

func openStorage(cfg *config.Config, zapLog *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		zapLog.Warn("using in-memory storage, data is lost on restart")
		return &storage{users: memory.NewUserRepo(), resets: memory.NewResetTokenRepo(), close: func() {}}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if err := migrate.Up(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &storage{
		users:  postgresRepo.NewPostgresUserRepo(db),
		resets: postgresRepo.NewPostgresResetTokenRepo(db),
		checks: []health.Check{health.DBCheck(db)},
		close:  func() { _ = sqlDB.Close() },
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := lg.Must("")
		bootLog.Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		grpc_prometheus.DefaultServerMetrics,
	)

	store, err := openStorage(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.close()
	checks := store.checks

	var revocations repo.RevocationRepo
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		rr := redisRepo.NewRedisRevocationRepo(redisCli)
		revocations = rr
		checks = append(checks, health.RedisCheck(rr))
	} else {
		zapLog.Warn("REDIS_ADDRESS not set, revocations are kept in memory")
		revocations = memory.NewRevocationRepo()
	}

	jobs := dispatch.New(dispatch.Options{
		Workers:    cfg.DispatchWorkers,
		QueueSize:  cfg.DispatchQueueSize,
		JobTimeout: cfg.RequestTimeout,
		Retry:      dispatch.DefaultRetryPolicy(cfg.DispatchMaxAttempts),
		Registerer: reg,
	}, zapLog)

	var sender notify.ResetSender
	switch cfg.NotifyDriver {
	case config.NotifyDriverRabbitMQ:
		pub, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.ResetQueue)
		if err != nil {
			zapLog.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer pub.Close()
		sender = pub
	default:
		sender = logsender.New(zapLog)
	}

	var publisher notify.EventPublisher = notify.NopPublisher{}
	if cfg.EventsDriver == config.EventsDriverKafka {
		producer := kafka.NewEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}
	emitter := events.NewEmitter(jobs, publisher, zapLog)

	tokens, err := jwt.NewTokenService(cfg)
	if err != nil {
		zapLog.Fatal("failed to init token service", zap.Error(err))
	}
	hasher := password.NewArgon2Hasher(cfg.PasswordPepper, password.DefaultParams)
	validate := dto.NewValidator()

	users := service.New(store.users, revocations, tokens, hasher, emitter, validate, zapLog)
	resets := reset.New(store.users, store.resets, revocations, hasher, sender, jobs, emitter,
		reset.Options{TTL: cfg.ResetTokenTTL, ResetURL: cfg.ResetURL, SessionTTL: cfg.SessionTTL}, validate, zapLog)

	healthSrv := grpcHealth.NewServer()
	checker := health.NewChecker(2*time.Second, healthSrv, zapLog, checks...)

	handler := httpTransport.NewHandler(users, resets, checker, httpTransport.CookieConfig{
		Name:   cfg.CookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}, zapLog)
	router := httpTransport.NewRouter(handler, users, httpTransport.RouterConfig{
		CookieName:       cfg.CookieName,
		RequestTimeout:   cfg.RequestTimeout,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
	}, reg, zapLog)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.StartHTTPServer(ctx, srv, cfg.HTTPSCertFile, cfg.HTTPSKeyFile, zapLog)
	})
	if cfg.GRPCAddress != "" {
		g.Go(func() error {
			return server.StartGRPCServer(ctx, server.GRPCOptions{
				Address:   cfg.GRPCAddress,
				CertFile:  cfg.HTTPSCertFile,
				KeyFile:   cfg.HTTPSKeyFile,
				RateLimit: cfg.RateLimitRPS,
				RateBurst: cfg.RateLimitBurst,
			}, healthSrv, zapLog)
		})
	}
	g.Go(func() error {
		checker.Run(ctx, checkInterval)
		return nil
	})
	g.Go(func() error {
		purgeResetTokens(ctx, jobs, store.resets, zapLog)
		return nil
	})

	waitErr := g.Wait()
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		zapLog.Error("server terminated", zap.Error(waitErr))
	}
	zapLog.Info("shutting down background jobs")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := jobs.Close(drainCtx); err != nil {
		zapLog.Error("dispatcher close", zap.Error(err))
	}
	if waitErr != nil {
		_ = zapLog.Sync()
		os.Exit(1)
	}
}

func purgeResetTokens(ctx context.Context, jobs *dispatch.Dispatcher, resets repo.ResetTokenRepo, zapLog *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs.Submit(dispatch.Job{Name: "purge_reset_tokens", Run: func(ctx context.Context) error {
				n, err := resets.Purge(ctx, time.Now())
				if err != nil {
					return err
				}
				if n > 0 {
					zapLog.Debug("purged reset tokens", zap.Int64("count", n))
				}
				return nil
			}})
		}
	}
}
