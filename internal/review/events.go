package review

import (
	"context"
	"time"
)

// EventKind names a change to the movie aggregate.
type EventKind string

const (
	EventMovieCreated    EventKind = "movie.created"
	EventMovieUpdated    EventKind = "movie.updated"
	EventMovieDeleted    EventKind = "movie.deleted"
	EventMovieReconciled EventKind = "movie.reconciled"
	EventReviewAdded     EventKind = "review.added"
	EventReviewUpdated   EventKind = "review.updated"
	EventReviewDeleted   EventKind = "review.deleted"
)

// Event is emitted after a mutation has been persisted.
type Event struct {
	Kind       EventKind `json:"kind"`
	MovieID    string    `json:"movieId"`
	CommentID  string    `json:"commentId,omitempty"`
	AvgRating  float64   `json:"avgRating"`
	Comments   int       `json:"comments"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers aggregate events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
