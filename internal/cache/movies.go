package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
	"github.com/Clark-Hu/movie-reviewer/internal/review"
)

const movieKeyPrefix = "movie:"

// MovieRepository caches GetByID results and drops the entry on every write.
// Writes made inside a MovieManager transaction drop the entry after commit.
// GetForUpdate always reads the backing repository. Cache failures are logged
// and never fail the call.
type MovieRepository struct {
	next   review.MovieRepository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

var _ review.MovieRepository = (*MovieRepository)(nil)

// NewMovieRepository decorates next with store.
func NewMovieRepository(next review.MovieRepository, store Store, ttl time.Duration, logger *zap.Logger) *MovieRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MovieRepository{next: next, store: store, ttl: ttl, logger: logger.Named("cache")}
}

func movieKey(id string) string {
	return movieKeyPrefix + id
}

func (r *MovieRepository) Insert(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	return r.next.Insert(ctx, movie)
}

func (r *MovieRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	key := movieKey(id)
	payload, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		var movie domain.Movie
		if err := json.Unmarshal(payload, &movie); err == nil {
			return movie, nil
		}
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		r.invalidate(ctx, id)
	case !errors.Is(err, ErrMiss):
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	movie, err := r.next.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	if payload, err := json.Marshal(movie); err == nil {
		if err := r.store.Set(ctx, key, payload, r.ttl); err != nil {
			r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return movie, nil
}

func (r *MovieRepository) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	return r.next.GetForUpdate(ctx, id)
}

func (r *MovieRepository) List(ctx context.Context) ([]domain.Movie, error) {
	return r.next.List(ctx)
}

func (r *MovieRepository) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	return r.next.ListByUser(ctx, userID)
}

func (r *MovieRepository) Save(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	saved, err := r.next.Save(ctx, movie)
	r.invalidateOnCommit(ctx, movie.ID)
	return saved, err
}

func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	err := r.next.Delete(ctx, id)
	r.invalidateOnCommit(ctx, id)
	return err
}

// invalidateOnCommit drops the entry once the surrounding transaction commits,
// or right away when there is none.
func (r *MovieRepository) invalidateOnCommit(ctx context.Context, id string) {
	deferred := review.AfterCommit(ctx, func(ctx context.Context) {
		r.invalidate(ctx, id)
	})
	if !deferred {
		r.invalidate(ctx, id)
	}
}

func (r *MovieRepository) invalidate(ctx context.Context, id string) {
	if err := r.store.Delete(ctx, movieKey(id)); err != nil {
		r.logger.Warn("cache invalidation failed", zap.String("movie_id", id), zap.Error(err))
	}
}
