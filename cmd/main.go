package main

import (
	"context"
	"expvar"
	"runtime"

	"eventtrail/internal/infrastructure/configs"
	"eventtrail/internal/infrastructure/logging"
	"eventtrail/internal/infrastructure/metrics"
	"eventtrail/internal/infrastructure/ratelimiter"
	"eventtrail/internal/infrastructure/tracing"
	"eventtrail/internal/persistence/db"
	"eventtrail/internal/persistence/repository"
	"eventtrail/internal/presentation/api"
	eventsHandler "eventtrail/internal/presentation/handler/events"
	healthHandler "eventtrail/internal/presentation/handler/health"
	profilesHandler "eventtrail/internal/presentation/handler/profiles"
)

const serviceName = "eventtrail-api"

func main() {
	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to load config", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	shutdownTracer, err := tracing.InitTracer(tracing.NewDefaultConfig(serviceName))
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to init tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error(logging.General, logging.Shutdown, "failed to shut down tracer", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	ctx := context.Background()

	mongoCfg := db.NewMongoDefaultConfig()
	client, err := db.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		logger.Fatal(logging.Mongo, logging.Startup, "failed to connect to mongodb", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer func() {
		if err := db.DisconnectMongo(context.Background(), client); err != nil {
			logger.Error(logging.Mongo, logging.Shutdown, "failed to disconnect from mongodb", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	database := db.GetDatabase(client, mongoCfg)

	profileRepository := repository.NewProfileRepository(database)
	eventRepository := repository.NewEventRepository(database)
	logRepository := repository.NewEventLogRepository(database)

	if err := logRepository.EnsureIndexes(ctx); err != nil {
		logger.Fatal(logging.Mongo, logging.Startup, "failed to ensure indexes", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	m := metrics.New()

	limiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(
		*cfg,
		eventsHandler.NewHandler(eventRepository, profileRepository, logRepository, cfg.Audit.Actor, logger, m),
		profilesHandler.NewHandler(profileRepository, logger),
		healthHandler.NewHandler(client),
		logger,
		limiter,
		m,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	if err := app.Run(app.Mount()); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
