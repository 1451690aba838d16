package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_DropsDanglingIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	movie := h.seedMovie(t)
	h.review(t, "alice", movie.ID, 4)
	movie = h.review(t, "bob", movie.ID, 8)
	h.comments.drop(movie.CommentIDs[0])

	res, err := h.manager.Reconcile(ctx, movie.ID)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, []string{movie.CommentIDs[0]}, res.Removed)
	assert.Equal(t, []string{movie.CommentIDs[1]}, res.Movie.CommentIDs)
	assert.Equal(t, 8.0, res.Movie.AvgRating)
	assert.Contains(t, h.publisher.kinds(), EventMovieReconciled)

	comments, err := h.manager.ListComments(ctx, movie.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestReconcile_ConsistentMovieIsNotWritten(t *testing.T) {
	h := newHarness(t)
	movie := h.seedMovie(t)
	h.review(t, "bob", movie.ID, 8)
	before := h.movies.saveCount()

	res, err := h.manager.Reconcile(context.Background(), movie.ID)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, res.Removed)
	assert.Equal(t, before, h.movies.saveCount())
	assert.NotContains(t, h.publisher.kinds(), EventMovieReconciled)
}

func TestReconcileAll_CountsRepairedMovies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	broken := h.review(t, "bob", h.seedMovie(t).ID, 3)
	h.review(t, "bob", h.seedMovie(t).ID, 9)
	h.seedMovie(t)
	h.comments.drop(broken.CommentIDs[0])

	repaired, err := h.manager.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	fixed, err := h.manager.GetByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Empty(t, fixed.CommentIDs)
	assert.Zero(t, fixed.AvgRating)
}

func TestReconcile_MissingMovie(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Reconcile(context.Background(), "ghost")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "movie")
}
