package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

const (
	entityMovie = "movie"
	entityUser  = "user"
)

// ConsistencyMode selects how review mutations are protected against concurrent writers.
type ConsistencyMode string

const (
	// ConsistencyRelaxed runs every store call on its own. Two concurrent mutations of
	// one movie may race and the later save wins.
	ConsistencyRelaxed ConsistencyMode = "relaxed"
	// ConsistencyTransactional runs each mutation in one transaction with the movie
	// loaded for update.
	ConsistencyTransactional ConsistencyMode = "transactional"
)

// ParseConsistencyMode converts a configuration value into a ConsistencyMode.
func ParseConsistencyMode(raw string) (ConsistencyMode, error) {
	switch mode := ConsistencyMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return ConsistencyRelaxed, nil
	case ConsistencyRelaxed, ConsistencyTransactional:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown consistency mode %q", raw)
	}
}

// Observer is notified about aggregate mutations, detected desyncs and events
// that could not be published.
type Observer interface {
	Observe(kind EventKind)
	DesyncDetected(movieID, commentID string)
	PublishFailed(kind EventKind)
}

type noopObserver struct{}

func (noopObserver) Observe(EventKind)              {}
func (noopObserver) DesyncDetected(string, string) {}
func (noopObserver) PublishFailed(EventKind)        {}

// MovieManager owns movie records and keeps each movie's comment id list and
// average rating consistent with the comment store. It exposes a CRUD group and
// a review group of operations.
type MovieManager struct {
	movies    MovieRepository
	comments  *CommentStore
	users     UserFinder
	ids       IDGenerator
	tx        TxRunner
	mode      ConsistencyMode
	publisher Publisher
	observer  Observer
	now       func() time.Time
	logger    *zap.Logger
}

// Option customises a MovieManager.
type Option func(*MovieManager)

// WithConsistency enables the given mode. Transactional mode needs a TxRunner and
// stays relaxed without one; compare Mode with the requested mode to detect it.
func WithConsistency(mode ConsistencyMode, tx TxRunner) Option {
	return func(m *MovieManager) {
		if mode == ConsistencyTransactional && tx == nil {
			return
		}
		m.mode = mode
		m.tx = tx
	}
}

// WithPublisher routes aggregate events to p.
func WithPublisher(p Publisher) Option {
	return func(m *MovieManager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithObserver registers an Observer, typically the metrics registry.
func WithObserver(o Observer) Option {
	return func(m *MovieManager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(m *MovieManager) {
		if ids != nil {
			m.ids = ids
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *MovieManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMovieManager wires the aggregate manager.
func NewMovieManager(movies MovieRepository, comments *CommentStore, users UserFinder, opts ...Option) *MovieManager {
	m := &MovieManager{
		movies:    movies,
		comments:  comments,
		users:     users,
		ids:       UUIDGenerator{},
		mode:      ConsistencyRelaxed,
		publisher: noopPublisher{},
		observer:  noopObserver{},
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("movies")
	return m
}

// Mode reports the active consistency mode.
func (m *MovieManager) Mode() ConsistencyMode {
	return m.mode
}

// Create stores a new movie owned by ownerUsername. Client supplied id, owner,
// comment ids and average are discarded.
func (m *MovieManager) Create(ctx context.Context, ownerUsername string, draft domain.Movie) (domain.Movie, error) {
	m.logger.Info("adding movie",
		zap.String("title", draft.Title),
		zap.String("genre", draft.Genre),
		zap.Int("year", draft.Year),
		zap.String("director", draft.Director),
		zap.String("username", ownerUsername),
	)

	owner, err := m.resolveUser(ctx, ownerUsername)
	if err != nil {
		return domain.Movie{}, err
	}

	movie := draft
	movie.ID = m.ids.NewID()
	movie.UserID = owner.ID
	movie.CommentIDs = []string{}
	movie.AvgRating = 0

	stored, err := m.movies.Insert(ctx, movie)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("insert movie: %w", err)
	}

	m.emit(ctx, EventMovieCreated, stored, "")
	return stored, nil
}

// GetByID fetches a movie or fails with a NotFoundError.
func (m *MovieManager) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	movie, err := m.movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, domain.NewNotFound(entityMovie, id, err)
	}
	return movie, nil
}

// ListAll returns every movie.
func (m *MovieManager) ListAll(ctx context.Context) ([]domain.Movie, error) {
	movies, err := m.movies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// ListByOwner returns the movies added by username.
func (m *MovieManager) ListByOwner(ctx context.Context, username string) ([]domain.Movie, error) {
	owner, err := m.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	movies, err := m.movies.ListByUser(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list movies of %s: %w", username, err)
	}
	return movies, nil
}

// Details returns the movie together with whether username may still review it.
// An empty username means an anonymous caller, who can never comment.
func (m *MovieManager) Details(ctx context.Context, username, id string) (domain.MovieDetails, error) {
	movie, err := m.GetByID(ctx, id)
	if err != nil {
		return domain.MovieDetails{}, err
	}
	details := domain.MovieDetails{Movie: movie}
	if username == "" {
		return details, nil
	}

	user, err := m.resolveUser(ctx, username)
	if err != nil {
		return domain.MovieDetails{}, err
	}
	comments, err := m.resolveComments(ctx, movie)
	if err != nil {
		return domain.MovieDetails{}, err
	}

	details.CanComment = true
	for _, c := range comments {
		if c.AuthorID == user.ID {
			details.CanComment = false
			break
		}
	}
	return details, nil
}

// Update overwrites the descriptive fields of a movie. Id, owner, comment ids
// and average always keep their stored values; an update that changes nothing
// returns the stored movie without writing.
func (m *MovieManager) Update(ctx context.Context, id string, draft domain.Movie) (domain.Movie, error) {
	m.logger.Info("updating movie",
		zap.String("movie_id", id),
		zap.String("title", draft.Title),
		zap.String("genre", draft.Genre),
		zap.Int("year", draft.Year),
		zap.String("director", draft.Director),
	)

	var (
		result  domain.Movie
		written bool
	)
	err := m.atomically(ctx, func(ctx context.Context) error {
		existing, err := m.loadForMutation(ctx, id)
		if err != nil {
			return err
		}

		update := draft
		update.ID = existing.ID
		update.CommentIDs = existing.CommentIDs
		update.AvgRating = existing.AvgRating
		update.UserID = existing.UserID
		if update.Equal(existing) {
			result = existing
			return nil
		}

		saved, err := m.movies.Save(ctx, update)
		if err != nil {
			return domain.NewNotFound(entityMovie, id, err)
		}
		result, written = saved, true
		return nil
	})
	if err != nil {
		return domain.Movie{}, err
	}

	if written {
		m.emit(ctx, EventMovieUpdated, result, "")
	}
	return result, nil
}

// Delete removes every comment referenced by the movie, in list order, and then
// the movie itself. When a comment deletion fails the movie is kept; comments
// deleted before the failure stay deleted unless the mode is transactional.
func (m *MovieManager) Delete(ctx context.Context, id string) error {
	m.logger.Info("deleting movie", zap.String("movie_id", id))

	var deleted domain.Movie
	err := m.atomically(ctx, func(ctx context.Context) error {
		movie, err := m.loadForMutation(ctx, id)
		if err != nil {
			return err
		}
		for _, commentID := range movie.CommentIDs {
			if err := m.comments.Delete(ctx, commentID); err != nil {
				return m.desync(movie.ID, commentID, err)
			}
		}
		if err := m.movies.Delete(ctx, id); err != nil {
			return domain.NewNotFound(entityMovie, id, err)
		}
		deleted = movie
		return nil
	})
	if err != nil {
		m.logger.Warn("movie deletion failed", zap.String("movie_id", id), zap.Error(err))
		return err
	}

	m.emit(ctx, EventMovieDeleted, domain.Movie{ID: deleted.ID}, "")
	return nil
}

func (m *MovieManager) resolveUser(ctx context.Context, username string) (domain.User, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		return domain.User{}, domain.NewNotFound(entityUser, username, err)
	}
	return user, nil
}

func (m *MovieManager) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.mode != ConsistencyTransactional {
		return fn(ctx)
	}
	hooks := &commitHooks{}
	if err := m.tx.WithinTx(withCommitHooks(ctx, hooks), fn); err != nil {
		return err
	}
	hooks.run(ctx)
	return nil
}

// loadForMutation reads the movie from the backing store for a read-modify-write
// cycle. It never goes through a read cache; inside a transaction the row stays
// locked until commit.
func (m *MovieManager) loadForMutation(ctx context.Context, id string) (domain.Movie, error) {
	movie, err := m.movies.GetForUpdate(ctx, id)
	if err != nil {
		return domain.Movie{}, domain.NewNotFound(entityMovie, id, err)
	}
	return movie, nil
}

func (m *MovieManager) emit(ctx context.Context, kind EventKind, movie domain.Movie, commentID string) {
	m.observer.Observe(kind)
	event := Event{
		Kind:       kind,
		MovieID:    movie.ID,
		CommentID:  commentID,
		AvgRating:  movie.AvgRating,
		Comments:   len(movie.CommentIDs),
		OccurredAt: m.now().UTC(),
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.observer.PublishFailed(kind)
		m.logger.Warn("publish event failed",
			zap.String("kind", string(kind)),
			zap.String("movie_id", movie.ID),
			zap.Error(err),
		)
	}
}
