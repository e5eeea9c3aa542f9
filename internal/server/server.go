package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/handlers"
	"github.com/jjudge-oj/scoreboard/internal/logging"
	"github.com/jjudge-oj/scoreboard/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server, the verdict consumer and the standings
// update listener.
type Server struct {
	httpServer *http.Server
	components *Components
	consumer   *services.VerdictConsumer
	updates    *services.UpdateListener
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	components, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	if !cfg.Log.Release && !cfg.Log.Silent {
		router.Use(middleware.Logger)
	}
	router.Use(
		logging.Middleware(logger.Named("http")),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Health(components.DB))
	router.Method(http.MethodGet, "/metrics", components.Metrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, components.Users, jwtSecret)
	})
	router.Route("/api/standings", func(r chi.Router) {
		handlers.StandingsRouter(r, components.Standings, components.Users, handlers.StandingsRouterConfig{
			JWTSecret:   jwtSecret,
			RequireAuth: cfg.Standings.RequireAuth,
		}, logger.Named("standings"))
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s := &Server{
		httpServer: httpServer,
		components: components,
		logger:     logger,
	}
	if components.Queue != nil {
		s.consumer = services.NewVerdictConsumer(
			components.Queue,
			cfg.MQ.VerdictChannel,
			components.Submissions,
			logger.Named("verdicts"),
			components.Metrics,
		)
		s.updates = services.NewUpdateListener(
			components.Queue,
			cfg.MQ.UpdatesChannel,
			components.Origin,
			components.Standings,
			logger.Named("updates"),
		)
	}
	return s, nil
}

// Run serves HTTP and consumes queue events until ctx is cancelled or any
// of them fails, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.consumer != nil {
		g.Go(func() error {
			return s.consumer.Run(ctx)
		})
	}
	if s.updates != nil {
		g.Go(func() error {
			return s.updates.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown()
	})

	err := g.Wait()
	if closeErr := s.components.Close(); closeErr != nil {
		s.logger.Warn("closing connections", zap.Error(closeErr))
	}
	return err
}

// Shutdown attempts a graceful shutdown of the HTTP server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
