// Command ivdmiddlewared runs the IVD/LIS middleware API server together
// with its background pull/upload/retry/health-reap loops.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/authprovider"
	"github.com/hedgehog/ivdmiddleware/internal/cache"
	"github.com/hedgehog/ivdmiddleware/internal/config"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentadapter"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentintegration"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/logging"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/repository/postgres"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow"
	"github.com/hedgehog/ivdmiddleware/internal/settingsservice"
	"github.com/hedgehog/ivdmiddleware/internal/telemetry"
	"github.com/hedgehog/ivdmiddleware/internal/verification"
	"github.com/hedgehog/ivdmiddleware/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{Environment: cfg.Environment, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	tracerCfg := telemetry.DefaultConfig()
	tracerCfg.Enabled = cfg.TracingEnable
	tracerCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracerCfg.Environment = cfg.Environment
	tracerCfg.SamplingRate = cfg.SamplingRate

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewProvider(ctx, tracerCfg)
	if err != nil {
		logger.Fatalw("tracer provider init failed", "error", err)
	}
	defer tracer.Shutdown(context.Background())

	collector := metrics.New()

	repos, closeRepos, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Fatalw("repository init failed", "error", err)
	}
	defer closeRepos()

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("redis unreachable, LIS config cache disabled", "error", err)
		} else {
			logger.Infow("LIS config cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.RedisCacheTTL)
			repos.lisConfigs = cache.NewLISConfigRepository(repos.lisConfigs, redisClient, cfg.RedisCacheTTL)
		}
	}

	jwtProvider := authprovider.NewJWTProvider([]byte(cfg.SecretKey), time.Hour)
	accounts := authprovider.NewAccountService(repos.tenants, repos.users, jwtProvider)

	lisAdapter := lisadapter.NewMockAdapter()
	instAdapter := instrumentadapter.NewMockAdapter()

	lisConfigSvc := lisintegration.NewConfigService(repos.lisConfigs, lisAdapter)
	syncSvc := lisintegration.NewSyncService(repos.lisConfigs, repos.samples, repos.results, lisAdapter)
	uploadSvc := lisintegration.NewUploadService(repos.lisConfigs, repos.results, lisAdapter)
	retrySvc := lisintegration.NewRetryService(repos.results)

	reviews := reviewworkflow.NewService(repos.reviews, repos.resultDecisions, repos.results, repos.samples)
	engine := verification.NewEngine(repos.verificationSettings, repos.verificationRules, repos.results)
	verificationSvc := verification.NewService(engine, repos.results, reviews)
	settingsSvc := settingsservice.NewService(repos.verificationSettings, repos.verificationRules)

	instruments := instrumentintegration.NewInstrumentService(repos.instruments)
	querySvc := instrumentintegration.NewQueryService(instruments, repos.instruments, repos.orders, repos.samples, repos.instrumentQueries, instAdapter)
	resultSvc := instrumentintegration.NewResultService(instruments, repos.instruments, repos.orders, repos.results, repos.instrumentResults, verificationSvc, instAdapter)

	hub := httpapi.NewReviewHub(logger)

	router := httpapi.NewRouter(&httpapi.Deps{
		Logger:      logger,
		Metrics:     collector,
		Environment: cfg.Environment,
		CORSOrigins: cfg.CORSOrigins,

		Auth:     jwtProvider,
		Accounts: accounts,

		Samples: repos.samples,
		Results: repos.results,

		LISConfig: lisConfigSvc,

		Instruments: instruments,
		Query:       querySvc,
		Submission:  resultSvc,

		Verification: verificationSvc,
		Settings:     settingsSvc,
		Reviews:      reviews,

		Hub: hub,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      tracer.HTTPMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	loops := []workers.Loop{
		workers.NewPullLoop(repos.lisConfigs, syncSvc, cfg.PullPeriod, logger, collector),
		workers.NewUploadLoop(repos.lisConfigs, uploadSvc, cfg.UploadPeriod, logger, collector),
		workers.NewRetryLoop(repos.lisConfigs, retrySvc, cfg.RetryPeriod, logger, collector),
		workers.NewHealthReaper(repos.instruments, cfg.InstrumentStaleThreshold, cfg.HealthPeriod, logger, collector),
	}
	for _, loop := range loops {
		go loop.Run(ctx)
	}

	go func() {
		logger.Infow("server starting", "addr", cfg.ListenAddr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// repositories is every persistence port, constructed against either the
// in-memory or postgres realization depending on cfg.UseRealDatabase.
type repositories struct {
	tenants               repository.TenantRepository
	users                 repository.UserRepository
	samples               repository.SampleRepository
	orders                repository.OrderRepository
	results               repository.ResultRepository
	reviews               repository.ReviewRepository
	resultDecisions       repository.ResultDecisionRepository
	verificationSettings  repository.AutoVerificationSettingsRepository
	verificationRules     repository.VerificationRuleRepository
	lisConfigs            repository.LISConfigRepository
	instruments           repository.InstrumentRepository
	instrumentQueries     repository.InstrumentQueryRepository
	instrumentResults     repository.InstrumentResultRepository
}

func buildRepositories(cfg config.Config, logger *zap.SugaredLogger) (*repositories, func(), error) {
	if !cfg.UseRealDatabase {
		logger.Infow("using in-memory repositories")
		return &repositories{
			tenants:              memory.NewTenantRepository(),
			users:                memory.NewUserRepository(),
			samples:              memory.NewSampleRepository(),
			orders:               memory.NewOrderRepository(),
			results:              memory.NewResultRepository(),
			reviews:              memory.NewReviewRepository(),
			resultDecisions:      memory.NewResultDecisionRepository(),
			verificationSettings: memory.NewVerificationSettingsRepository(),
			verificationRules:    memory.NewVerificationRuleRepository(),
			lisConfigs:           memory.NewLISConfigRepository(),
			instruments:          memory.NewInstrumentRepository(),
			instrumentQueries:    memory.NewInstrumentQueryRepository(),
			instrumentResults:    memory.NewInstrumentResultRepository(),
		}, func() {}, nil
	}

	logger.Infow("using postgres repositories", "database_url", cfg.DatabaseURL)
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return &repositories{
		tenants:              postgres.NewTenantRepository(db),
		users:                postgres.NewUserRepository(db),
		samples:              postgres.NewSampleRepository(db),
		orders:               postgres.NewOrderRepository(db),
		results:              postgres.NewResultRepository(db),
		reviews:              postgres.NewReviewRepository(db),
		resultDecisions:      postgres.NewResultDecisionRepository(db),
		verificationSettings: postgres.NewAutoVerificationSettingsRepository(db),
		verificationRules:    postgres.NewVerificationRuleRepository(db),
		lisConfigs:           postgres.NewLISConfigRepository(db),
		instruments:          postgres.NewInstrumentRepository(db),
		instrumentQueries:    postgres.NewInstrumentQueryRepository(db),
		instrumentResults:    postgres.NewInstrumentResultRepository(db),
	}, func() { db.Close() }, nil
}
