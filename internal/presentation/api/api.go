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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/meshconf/meshconf/internal/infrastructure/configs"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	"github.com/meshconf/meshconf/internal/infrastructure/ratelimiter"
	healthHandler "github.com/meshconf/meshconf/internal/presentation/handler/health"
	meetingsHandler "github.com/meshconf/meshconf/internal/presentation/handler/meetings"
	signalHandler "github.com/meshconf/meshconf/internal/presentation/handler/signal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          *configs.Config
	meetingsHandler *meetingsHandler.Handler
	signalHandler   *signalHandler.Handler
	healthHandler   *healthHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
	registry        prometheus.Gatherer
}

func NewApplication(
	config *configs.Config,
	meetingsHandler *meetingsHandler.Handler,
	signalHandler *signalHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	registry prometheus.Gatherer,
) *Application {
	return &Application{
		config:          config,
		meetingsHandler: meetingsHandler,
		signalHandler:   signalHandler,
		healthHandler:   healthHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
		registry:        registry,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.rateLimiterMiddleware)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/", app.meetingsHandler.CreateMeetingHandler)
			r.Get("/{code}", app.meetingsHandler.GetMeetingHandler)
			r.Post("/{code}/join", app.meetingsHandler.JoinMeetingHandler)
			r.Post("/{code}/leave", app.meetingsHandler.LeaveMeetingHandler)
			r.Delete("/{code}", app.meetingsHandler.DeleteMeetingHandler)

			r.Get("/{code}/summary", app.meetingsHandler.GetSummaryHandler)
			r.Put("/{code}/summary", app.meetingsHandler.PutSummaryHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	// Websockets live outside the /api timeout; they are long lived by
	// design.
	r.Route("/ws/meetings/{code}", func(r chi.Router) {
		r.Get("/signal", app.signalHandler.SignalHandler)
		r.Get("/audio", app.signalHandler.AudioHandler)
	})

	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return otelhttp.NewHandler(r, "meshconf.http")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		healthHandler.SetUnhealthy()

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
