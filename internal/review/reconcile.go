package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// ReconcileResult describes what a reconciliation pass changed on one movie.
type ReconcileResult struct {
	Movie   domain.Movie
	Removed []string
	Changed bool
}

// Reconcile drops comment ids the comment store no longer holds and recomputes
// the average over the remaining ones. The movie is only written when something
// changed.
func (m *MovieManager) Reconcile(ctx context.Context, movieID string) (ReconcileResult, error) {
	var result ReconcileResult
	err := m.atomically(ctx, func(ctx context.Context) error {
		movie, err := m.loadForMutation(ctx, movieID)
		if err != nil {
			return err
		}

		kept := make([]string, 0, len(movie.CommentIDs))
		ratings := make([]int, 0, len(movie.CommentIDs))
		var removed []string
		for _, id := range movie.CommentIDs {
			c, err := m.comments.GetByID(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				removed = append(removed, id)
				continue
			}
			if err != nil {
				return fmt.Errorf("resolve comment %s: %w", id, err)
			}
			kept = append(kept, id)
			ratings = append(ratings, c.Rating)
		}

		repaired := movie.Clone()
		repaired.CommentIDs = kept
		repaired.AvgRating = Mean(ratings)
		if repaired.Equal(movie) {
			result = ReconcileResult{Movie: movie}
			return nil
		}

		saved, err := m.movies.Save(ctx, repaired)
		if err != nil {
			return domain.NewNotFound(entityMovie, movieID, err)
		}
		result = ReconcileResult{Movie: saved, Removed: removed, Changed: true}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	if result.Changed {
		m.logger.Info("movie reconciled",
			zap.String("movie_id", movieID),
			zap.Strings("removed_comment_ids", result.Removed),
			zap.Float64("avg_rating", result.Movie.AvgRating),
		)
		m.emit(ctx, EventMovieReconciled, result.Movie, "")
	}
	return result, nil
}

// ReconcileAll reconciles every movie and returns how many were repaired. Failures
// on individual movies do not stop the pass; they are joined into the error.
func (m *MovieManager) ReconcileAll(ctx context.Context) (int, error) {
	movies, err := m.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	var errs []error
	for _, movie := range movies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := m.Reconcile(ctx, movie.ID)
		if err != nil {
			// Deleted between listing and reconciling.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("reconcile movie %s: %w", movie.ID, err))
			continue
		}
		if res.Changed {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}

// RunReconciler calls ReconcileAll every interval until ctx is cancelled.
func (m *MovieManager) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.logger.Info("reconciler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			repaired, err := m.ReconcileAll(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("reconciliation pass failed", zap.Int("repaired", repaired), zap.Error(err))
				continue
			}
			m.logger.Debug("reconciliation pass finished", zap.Int("repaired", repaired))
		}
	}
}
