package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// CommentsRepository persists review comments.
type CommentsRepository struct {
	coll *mongo.Collection
}

type commentDocument struct {
	ID        string    `bson:"_id"`
	Rating    int       `bson:"rating"`
	Text      string    `bson:"text"`
	AuthorID  string    `bson:"author_id"`
	AddDate   time.Time `bson:"add_date"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d commentDocument) toDomain() domain.Comment {
	return domain.Comment{
		ID:       d.ID,
		Rating:   d.Rating,
		Text:     d.Text,
		AuthorID: d.AuthorID,
		AddDate:  d.AddDate.UTC(),
	}
}

// Insert stores a new comment.
func (r *CommentsRepository) Insert(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	doc := commentDocument{
		ID:        c.ID,
		Rating:    c.Rating,
		Text:      c.Text,
		AuthorID:  c.AuthorID,
		AddDate:   c.AddDate,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Comment{}, fmt.Errorf("failed to create comment in mongo: %w", translate(err))
	}
	return doc.toDomain(), nil
}

// GetByID fetches a comment.
func (r *CommentsRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	var doc commentDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Comment{}, notFound(err, "get comment")
	}
	return doc.toDomain(), nil
}

// Save updates rating and text.
func (r *CommentsRepository) Save(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	update := bson.M{"$set": bson.M{
		"rating":     c.Rating,
		"text":       c.Text,
		"updated_at": time.Now().UTC(),
	}}

	var doc commentDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": c.ID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.Comment{}, notFound(err, "update comment")
	}
	return doc.toDomain(), nil
}

// Delete removes a comment.
func (r *CommentsRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete comment from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
