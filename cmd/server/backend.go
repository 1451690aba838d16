package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/config"
	httpserver "github.com/Clark-Hu/movie-reviewer/internal/http"
	"github.com/Clark-Hu/movie-reviewer/internal/repository"
	"github.com/Clark-Hu/movie-reviewer/internal/repository/mongodb"
	"github.com/Clark-Hu/movie-reviewer/internal/review"
	"github.com/Clark-Hu/movie-reviewer/internal/store"
)

// backend is the persistence side of the service for the configured driver.
type backend struct {
	movies   review.MovieRepository
	comments review.CommentRepository
	users    auth.UserStore
	tx       review.TxRunner
	health   httpserver.HealthChecker
	close    func()
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return openPostgres(ctx, cfg, logger)
	}
}

func openPostgres(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.RunMigrations {
		if err := store.RunMigrations(cfg.DBURL, cfg.MigrationsDir, logger); err != nil {
			return nil, err
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	repo := repository.New(st)
	return &backend{
		movies:   repo.Movies,
		comments: repo.Comments,
		users:    repo.Users,
		tx:       st,
		health:   st,
		close:    st.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	client, err := mongodb.Connect(ctx, mongodb.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: time.Duration(cfg.MongoConnectTimeoutSecs) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}

	closeClient := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("failed to disconnect mongo", zap.Error(err))
		}
	}

	if err := client.EnsureIndexes(ctx); err != nil {
		closeClient()
		return nil, err
	}

	repo := mongodb.New(client)
	return &backend{
		movies:   repo.Movies,
		comments: repo.Comments,
		users:    repo.Users,
		tx:       client,
		health:   client,
		close:    closeClient,
	}, nil
}
