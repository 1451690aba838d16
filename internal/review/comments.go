package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

const entityComment = "comment"

// CommentStore owns comment records. It knows nothing about movies.
type CommentStore struct {
	repo   CommentRepository
	ids    IDGenerator
	now    func() time.Time
	logger *zap.Logger
}

// NewCommentStore builds a CommentStore. A nil ids falls back to UUIDs.
func NewCommentStore(repo CommentRepository, ids IDGenerator, logger *zap.Logger) *CommentStore {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentStore{
		repo:   repo,
		ids:    ids,
		now:    time.Now,
		logger: logger.Named("comments"),
	}
}

// Create stores a new comment written by authorID.
func (s *CommentStore) Create(ctx context.Context, authorID string, rating int, text string) (domain.Comment, error) {
	comment := domain.Comment{
		ID:       s.ids.NewID(),
		Rating:   rating,
		Text:     text,
		AuthorID: authorID,
		// Millisecond precision survives every supported backend unchanged.
		AddDate: s.now().UTC().Truncate(time.Millisecond),
	}

	stored, err := s.repo.Insert(ctx, comment)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	s.logger.Debug("comment created", zap.String("comment_id", stored.ID), zap.String("author_id", authorID))
	return stored, nil
}

// GetByID fetches a comment or fails with a NotFoundError.
func (s *CommentStore) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Comment{}, domain.NewNotFound(entityComment, id, err)
	}
	return comment, nil
}

// Update overwrites rating and text of an existing comment. Identity, author and
// creation date always keep their stored values. An update that changes nothing
// returns the stored comment without writing.
func (s *CommentStore) Update(ctx context.Context, id string, draft domain.Comment) (domain.Comment, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}

	draft.ID = existing.ID
	draft.AuthorID = existing.AuthorID
	draft.AddDate = existing.AddDate
	if draft.Equal(existing) {
		return existing, nil
	}

	updated, err := s.repo.Save(ctx, draft)
	if err != nil {
		return domain.Comment{}, domain.NewNotFound(entityComment, id, err)
	}
	return updated, nil
}

// Delete removes a comment or fails with a NotFoundError.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.NewNotFound(entityComment, id, err)
	}
	s.logger.Debug("comment deleted", zap.String("comment_id", id))
	return nil
}
