package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// CommentRepository persists comments. Missing records yield domain.ErrNotFound.
type CommentRepository interface {
	Insert(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	GetByID(ctx context.Context, id string) (domain.Comment, error)
	Save(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	Delete(ctx context.Context, id string) error
}

// MovieRepository persists movies. Missing records yield domain.ErrNotFound.
type MovieRepository interface {
	Insert(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	// GetForUpdate loads a movie for a read-modify-write cycle. It must read the
	// backing store, never a cache. Inside a transaction the backing store must
	// keep concurrent writers out until commit.
	GetForUpdate(ctx context.Context, id string) (domain.Movie, error)
	List(ctx context.Context) ([]domain.Movie, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Movie, error)
	Save(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	Delete(ctx context.Context, id string) error
}

// UserFinder resolves an authenticated username to its account.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

// TxRunner runs fn inside one backing-store transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator hands out opaque identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (v4) UUID strings.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
