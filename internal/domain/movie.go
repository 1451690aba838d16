package domain

import "slices"

// Movie represents the canonical movie entity. CommentIDs and AvgRating form the
// denormalized review summary and are owned by the review layer.
type Movie struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Genre      string   `json:"genre"`
	Year       int      `json:"year"`
	Director   string   `json:"director"`
	UserID     string   `json:"userId"`
	CommentIDs []string `json:"commentIds"`
	AvgRating  float64  `json:"avgRating"`
}

// Equal reports whether both movies carry exactly the same values. A nil and an
// empty comment list are considered equal.
func (m Movie) Equal(other Movie) bool {
	return m.ID == other.ID &&
		m.Title == other.Title &&
		m.Genre == other.Genre &&
		m.Year == other.Year &&
		m.Director == other.Director &&
		m.UserID == other.UserID &&
		m.AvgRating == other.AvgRating &&
		slices.Equal(m.CommentIDs, other.CommentIDs)
}

// HasComment reports whether commentID is referenced by the movie.
func (m Movie) HasComment(commentID string) bool {
	return slices.Contains(m.CommentIDs, commentID)
}

// Clone returns a copy that does not share the comment id slice.
func (m Movie) Clone() Movie {
	out := m
	out.CommentIDs = slices.Clone(m.CommentIDs)
	if out.CommentIDs == nil {
		out.CommentIDs = []string{}
	}
	return out
}

// MovieDetails is the detail view of a movie for a given caller.
type MovieDetails struct {
	Movie
	CanComment bool `json:"canComment"`
}
