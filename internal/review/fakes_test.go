package review

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// memMovies is an in-memory MovieRepository that counts writes.
type memMovies struct {
	mu        sync.Mutex
	items     map[string]domain.Movie
	order     []string
	saves     int
	forUpdate int
}

func newMemMovies() *memMovies {
	return &memMovies{items: map[string]domain.Movie{}}
}

func (r *memMovies) Insert(_ context.Context, movie domain.Movie) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[movie.ID]; ok {
		return domain.Movie{}, domain.ErrConflict
	}
	r.items[movie.ID] = movie.Clone()
	r.order = append(r.order, movie.ID)
	return movie.Clone(), nil
}

func (r *memMovies) GetByID(_ context.Context, id string) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	movie, ok := r.items[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return movie.Clone(), nil
}

func (r *memMovies) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	r.mu.Lock()
	r.forUpdate++
	r.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *memMovies) List(_ context.Context) ([]domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Movie, 0, len(r.order))
	for _, id := range r.order {
		if movie, ok := r.items[id]; ok {
			out = append(out, movie.Clone())
		}
	}
	return out, nil
}

func (r *memMovies) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	all, _ := r.List(ctx)
	out := make([]domain.Movie, 0)
	for _, movie := range all {
		if movie.UserID == userID {
			out = append(out, movie)
		}
	}
	return out, nil
}

func (r *memMovies) Save(_ context.Context, movie domain.Movie) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[movie.ID]; !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	r.saves++
	r.items[movie.ID] = movie.Clone()
	return movie.Clone(), nil
}

func (r *memMovies) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memMovies) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// memComments is an in-memory CommentRepository that counts writes.
type memComments struct {
	mu      sync.Mutex
	items   map[string]domain.Comment
	saves   int
	deletes []string
}

func newMemComments() *memComments {
	return &memComments{items: map[string]domain.Comment{}}
}

func (r *memComments) Insert(_ context.Context, c domain.Comment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	return c, nil
}

func (r *memComments) GetByID(_ context.Context, id string) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *memComments) Save(_ context.Context, c domain.Comment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	r.saves++
	r.items[c.ID] = c
	return c, nil
}

func (r *memComments) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	r.deletes = append(r.deletes, id)
	return nil
}

// drop removes a comment behind the manager's back to simulate desync.
func (r *memComments) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

type fakeUsers map[string]domain.User

func (f fakeUsers) FindByUsername(_ context.Context, username string) (domain.User, error) {
	u, ok := f[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

// seqIDs hands out predictable ids with a prefix.
type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// countingTx records WithinTx calls and runs fn directly.
type countingTx struct {
	calls int
}

func (t *countingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type MockCommentRepository struct{ mock.Mock }

func (m *MockCommentRepository) Insert(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) Save(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMovieRepository struct{ mock.Mock }

func (m *MockMovieRepository) Insert(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	args := m.Called(ctx, movie)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) List(ctx context.Context) ([]domain.Movie, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) Save(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	args := m.Called(ctx, movie)
	return args.Get(0).(domain.Movie), args.Error(1)
}

func (m *MockMovieRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
