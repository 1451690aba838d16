package domain

import "time"

// Rating bounds accepted for a comment.
const (
	MinRating = 1
	MaxRating = 10
)

// Comment is a single user review attached to a movie through Movie.CommentIDs.
// ID, AuthorID and AddDate are assigned by the system and never change.
type Comment struct {
	ID       string    `json:"id"`
	Rating   int       `json:"rating"`
	Text     string    `json:"text"`
	AuthorID string    `json:"authorId"`
	AddDate  time.Time `json:"addDate"`
}

// Equal reports whether both comments carry exactly the same values.
func (c Comment) Equal(other Comment) bool {
	return c.ID == other.ID &&
		c.Rating == other.Rating &&
		c.Text == other.Text &&
		c.AuthorID == other.AuthorID &&
		c.AddDate.Equal(other.AddDate)
}
