package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/config"
	"github.com/Clark-Hu/movie-reviewer/internal/metrics"
	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the handlers call into. Metrics is optional.
type Deps struct {
	Movies   *review.MovieManager
	Comments *review.CommentStore
	Auth     *auth.Service
	Health   HealthChecker
	Metrics  *metrics.Metrics
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	movies   *review.MovieManager
	comments *review.CommentStore
	auth     *auth.Service
	health   HealthChecker
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:      cfg,
		movies:   deps.Movies,
		comments: deps.Comments,
		auth:     deps.Auth,
		health:   deps.Health,
		metrics:  deps.Metrics,
		validate: newValidator(),
		logger:   logger.Named("http"),
		router:   chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(s.authenticate)

	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	s.router.Route("/users/me", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleCurrentUser)
		r.Get("/movies", s.handleCurrentUserMovies)
	})

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleListMovies)
		r.With(s.requireAuth).Post("/", s.handleCreateMovie)
		r.Route("/{movieId}", func(r chi.Router) {
			r.Get("/", s.handleGetMovie)
			r.With(s.requireAuth).Put("/", s.handleUpdateMovie)
			r.With(s.requireAuth).Delete("/", s.handleDeleteMovie)
			r.With(s.requireAuth).Post("/reconcile", s.handleReconcileMovie)
			r.Get("/comments", s.handleListComments)
			r.With(s.requireAuth).Post("/comments", s.handleAddComment)
			r.With(s.requireAuth).Delete("/comments/{commentId}", s.handleDeleteComment)
		})
	})

	s.router.Route("/reviews/{movieId}", func(r chi.Router) {
		r.Get("/", s.handleListComments)
		r.With(s.requireAuth).Post("/", s.handleAddComment)
		r.With(s.requireAuth).Put("/comments/{commentId}", s.handleUpdateComment)
		r.With(s.requireAuth).Delete("/comments/{commentId}", s.handleDeleteComment)
	})

	s.router.Get("/comments/{commentId}", s.handleGetComment)
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "storage is not reachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
