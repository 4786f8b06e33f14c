package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventtrail/internal/infrastructure/configs"
	"eventtrail/internal/infrastructure/logging"
	"eventtrail/internal/infrastructure/metrics"
	"eventtrail/internal/infrastructure/ratelimiter"
	eventsHandler "eventtrail/internal/presentation/handler/events"
	healthHandler "eventtrail/internal/presentation/handler/health"
	profilesHandler "eventtrail/internal/presentation/handler/profiles"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          configs.Config
	eventsHandler   *eventsHandler.Handler
	profilesHandler *profilesHandler.Handler
	healthHandler   *healthHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
	metrics         *metrics.Metrics
}

func NewApplication(
	config configs.Config,
	eventsHandler *eventsHandler.Handler,
	profilesHandler *profilesHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	metrics *metrics.Metrics,
) *Application {
	return &Application{
		config:          config,
		eventsHandler:   eventsHandler,
		profilesHandler: profilesHandler,
		healthHandler:   healthHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
		metrics:         metrics,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", app.eventsHandler.ListEventsHandler)
			r.Post("/", app.eventsHandler.CreateEventHandler)
			r.Get("/{eventId}", app.eventsHandler.GetEventHandler)
			r.Put("/{eventId}", app.eventsHandler.UpdateEventHandler)
			r.Delete("/{eventId}", app.eventsHandler.DeleteEventHandler)
			r.Get("/{eventId}/logs", app.eventsHandler.GetEventLogsHandler)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", app.profilesHandler.ListProfilesHandler)
			r.Post("/", app.profilesHandler.CreateProfileHandler)
			r.Get("/{profileId}", app.profilesHandler.GetProfileHandler)
			r.Put("/{profileId}", app.profilesHandler.UpdateProfileHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      otelhttp.NewHandler(mux, "eventtrail-api"),
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
