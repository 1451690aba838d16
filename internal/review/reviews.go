package review

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// ListComments resolves the movie's comments in display order. A referenced
// comment that no longer exists fails the call with a DesyncError.
func (m *MovieManager) ListComments(ctx context.Context, movieID string) ([]domain.Comment, error) {
	movie, err := m.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return m.resolveComments(ctx, movie)
}

// AddComment stores a new comment by username and appends it to the movie.
func (m *MovieManager) AddComment(ctx context.Context, username, movieID string, draft domain.Comment) (domain.Movie, error) {
	author, err := m.resolveUser(ctx, username)
	if err != nil {
		return domain.Movie{}, err
	}

	var (
		result    domain.Movie
		commentID string
	)
	err = m.atomically(ctx, func(ctx context.Context) error {
		comment, err := m.comments.Create(ctx, author.ID, draft.Rating, draft.Text)
		if err != nil {
			return err
		}
		commentID = comment.ID

		movie, err := m.loadForMutation(ctx, movieID)
		if err != nil {
			m.discardOrphan(ctx, comment.ID)
			return err
		}

		movie = movie.Clone()
		movie.CommentIDs = append(movie.CommentIDs, comment.ID)
		result, err = m.recomputeAndSave(ctx, movie)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	m.emit(ctx, EventReviewAdded, result, commentID)
	return result, nil
}

// UpdateComment changes a comment attached to the movie and refreshes the
// movie's average rating. A comment id that is not in the movie's list fails
// with a NotFoundError for the comment, even when the comment exists under
// another movie.
func (m *MovieManager) UpdateComment(ctx context.Context, movieID, commentID string, draft domain.Comment) (domain.Comment, error) {
	var (
		updated domain.Comment
		movie   domain.Movie
	)
	err := m.atomically(ctx, func(ctx context.Context) error {
		current, err := m.attachedMovie(ctx, movieID, commentID)
		if err != nil {
			return err
		}

		updated, err = m.comments.Update(ctx, commentID, draft)
		if err != nil {
			return err
		}

		current, err = m.reloadUnlocked(ctx, current)
		if err != nil {
			return err
		}
		movie, err = m.recomputeAndSave(ctx, current)
		return err
	})
	if err != nil {
		return domain.Comment{}, err
	}

	m.emit(ctx, EventReviewUpdated, movie, commentID)
	return updated, nil
}

// DeleteComment deletes a comment attached to the movie, drops it from the
// movie's list and refreshes the average rating. A comment id that is not in
// the movie's list fails with a NotFoundError for the comment and nothing is
// deleted.
func (m *MovieManager) DeleteComment(ctx context.Context, movieID, commentID string) (domain.Movie, error) {
	var result domain.Movie
	err := m.atomically(ctx, func(ctx context.Context) error {
		movie, err := m.attachedMovie(ctx, movieID, commentID)
		if err != nil {
			return err
		}

		if err := m.comments.Delete(ctx, commentID); err != nil {
			return err
		}

		movie, err = m.reloadUnlocked(ctx, movie)
		if err != nil {
			return err
		}
		movie = movie.Clone()
		if idx := slices.Index(movie.CommentIDs, commentID); idx >= 0 {
			movie.CommentIDs = slices.Delete(movie.CommentIDs, idx, idx+1)
		}
		result, err = m.recomputeAndSave(ctx, movie)
		return err
	})
	if err != nil {
		return domain.Movie{}, err
	}

	m.emit(ctx, EventReviewDeleted, result, commentID)
	return result, nil
}

// Mean returns the arithmetic mean of ratings, or exactly 0 for none.
func Mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

// averageRating recomputes the average from scratch over the movie's current
// comment ids.
func (m *MovieManager) averageRating(ctx context.Context, movie domain.Movie) (float64, error) {
	comments, err := m.resolveComments(ctx, movie)
	if err != nil {
		return 0, err
	}
	ratings := make([]int, 0, len(comments))
	for _, c := range comments {
		ratings = append(ratings, c.Rating)
	}
	return Mean(ratings), nil
}

func (m *MovieManager) recomputeAndSave(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	avg, err := m.averageRating(ctx, movie)
	if err != nil {
		return domain.Movie{}, err
	}
	movie.AvgRating = avg

	saved, err := m.movies.Save(ctx, movie)
	if err != nil {
		return domain.Movie{}, domain.NewNotFound(entityMovie, movie.ID, err)
	}
	return saved, nil
}

func (m *MovieManager) resolveComments(ctx context.Context, movie domain.Movie) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0, len(movie.CommentIDs))
	for _, id := range movie.CommentIDs {
		c, err := m.comments.GetByID(ctx, id)
		if err != nil {
			return nil, m.desync(movie.ID, id, err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// attachedMovie loads the movie for mutation and checks it references commentID.
func (m *MovieManager) attachedMovie(ctx context.Context, movieID, commentID string) (domain.Movie, error) {
	movie, err := m.loadForMutation(ctx, movieID)
	if err != nil {
		return domain.Movie{}, err
	}
	if !movie.HasComment(commentID) {
		return domain.Movie{}, &domain.NotFoundError{Entity: entityComment, Key: commentID}
	}
	return movie, nil
}

// reloadUnlocked reads the movie again after a comment write in relaxed mode,
// where other writers may have saved it in between. A locked movie is returned
// as is.
func (m *MovieManager) reloadUnlocked(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	if m.mode == ConsistencyTransactional {
		return movie, nil
	}
	return m.loadForMutation(ctx, movie.ID)
}

// desync marks a missing comment referenced by a movie. Other errors pass through.
func (m *MovieManager) desync(movieID, commentID string, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	m.observer.DesyncDetected(movieID, commentID)
	m.logger.Warn("movie references missing comment",
		zap.String("movie_id", movieID),
		zap.String("comment_id", commentID),
	)
	return &domain.DesyncError{MovieID: movieID, CommentID: commentID, Err: err}
}

// discardOrphan removes a comment created for a movie that turned out to be
// missing. Inside a transaction the rollback already takes care of it.
func (m *MovieManager) discardOrphan(ctx context.Context, commentID string) {
	if m.mode == ConsistencyTransactional {
		return
	}
	if err := m.comments.Delete(ctx, commentID); err != nil {
		m.logger.Warn("failed to discard orphan comment", zap.String("comment_id", commentID), zap.Error(err))
	}
}
