package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/cache"
	"github.com/Clark-Hu/movie-reviewer/internal/config"
	"github.com/Clark-Hu/movie-reviewer/internal/events"
	httpserver "github.com/Clark-Hu/movie-reviewer/internal/http"
	"github.com/Clark-Hu/movie-reviewer/internal/logging"
	"github.com/Clark-Hu/movie-reviewer/internal/metrics"
	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	var movieRepo review.MovieRepository = be.movies
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		movieRepo = cache.NewMovieRepository(movieRepo, cache.NewRedisStore(rdb, logger), time.Duration(cfg.CacheTTLSecs)*time.Second, logger)
	}

	mtx := metrics.New("moviereviewer")

	mode, err := review.ParseConsistencyMode(cfg.ConsistencyMode)
	if err != nil {
		return err
	}
	opts := []review.Option{
		review.WithConsistency(mode, be.tx),
		review.WithObserver(mtx),
		review.WithLogger(logger),
	}
	if cfg.NATSURL != "" {
		publisher, err := events.Connect(cfg.NATSURL, time.Duration(cfg.NATSConnectTimeoutSecs)*time.Second, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, review.WithPublisher(publisher))
	}

	comments := review.NewCommentStore(be.comments, nil, logger)
	movies := review.NewMovieManager(movieRepo, comments, be.users, opts...)
	if err := checkConsistency(mode, movies); err != nil {
		return err
	}
	logger.Info("movie manager ready",
		zap.String("storage", cfg.StorageDriver),
		zap.String("consistency", string(movies.Mode())),
	)

	authSvc := auth.NewService(be.users, auth.Config{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: time.Duration(cfg.JWTTTLMinutes) * time.Minute,
		Issuer:   "movie-reviewer",
	}, logger)

	if cfg.ReconcileIntervalSecs > 0 {
		go movies.RunReconciler(ctx, time.Duration(cfg.ReconcileIntervalSecs)*time.Second)
	}

	server := httpserver.New(cfg, httpserver.Deps{
		Movies:   movies,
		Comments: comments,
		Auth:     authSvc,
		Health:   be.health,
		Metrics:  mtx,
	}, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	return serveErr
}

// checkConsistency fails when the manager could not honour the requested mode,
// e.g. transactional without a transaction runner.
func checkConsistency(requested review.ConsistencyMode, movies *review.MovieManager) error {
	if movies.Mode() != requested {
		return fmt.Errorf("consistency mode %q is not available, manager runs %q", requested, movies.Mode())
	}
	return nil
}
