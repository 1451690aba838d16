package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type countingMovies struct {
	movies map[string]domain.Movie
	reads  int
}

func (c *countingMovies) Insert(_ context.Context, m domain.Movie) (domain.Movie, error) {
	c.movies[m.ID] = m
	return m, nil
}

func (c *countingMovies) GetByID(_ context.Context, id string) (domain.Movie, error) {
	c.reads++
	m, ok := c.movies[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *countingMovies) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	return c.GetByID(ctx, id)
}

func (c *countingMovies) List(context.Context) ([]domain.Movie, error) { return nil, nil }

func (c *countingMovies) ListByUser(context.Context, string) ([]domain.Movie, error) {
	return nil, nil
}

func (c *countingMovies) Save(_ context.Context, m domain.Movie) (domain.Movie, error) {
	if _, ok := c.movies[m.ID]; !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	c.movies[m.ID] = m
	return m, nil
}

func (c *countingMovies) Delete(_ context.Context, id string) error {
	delete(c.movies, id)
	return nil
}

func TestMovieRepository_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := &countingMovies{movies: map[string]domain.Movie{}}
	store := newMemStore()
	repo := NewMovieRepository(backing, store, time.Minute, nil)

	_, err := repo.Insert(ctx, domain.Movie{ID: "m1", Title: "Alien", CommentIDs: []string{}})
	require.NoError(t, err)

	first, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, backing.reads)

	updated := first.Clone()
	updated.CommentIDs = append(updated.CommentIDs, "c1")
	updated.AvgRating = 7
	_, err = repo.Save(ctx, updated)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, got.CommentIDs)
	assert.Equal(t, 2, backing.reads)

	require.NoError(t, repo.Delete(ctx, "m1"))
	_, err = repo.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMovieRepository_ForUpdateBypassesCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingMovies{movies: map[string]domain.Movie{"m1": {ID: "m1"}}}
	repo := NewMovieRepository(backing, newMemStore(), time.Minute, nil)

	_, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	_, err = repo.GetForUpdate(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.reads)
}

func TestMovieRepository_CacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	backing := &countingMovies{movies: map[string]domain.Movie{"m1": {ID: "m1", Title: "Heat"}}}
	store := newMemStore()
	store.failGet = true
	repo := NewMovieRepository(backing, store, time.Minute, nil)

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Heat", got.Title)
}

func TestMovieRepository_CorruptEntryIsReplaced(t *testing.T) {
	ctx := context.Background()
	backing := &countingMovies{movies: map[string]domain.Movie{"m1": {ID: "m1", Title: "Ran"}}}
	store := newMemStore()
	store.data[movieKey("m1")] = []byte("{not json")
	repo := NewMovieRepository(backing, store, time.Minute, nil)

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Ran", got.Title)
	assert.Contains(t, string(store.data[movieKey("m1")]), "Ran")
}
