package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// MoviesRepository persists movies in the movies collection.
type MoviesRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

type movieDocument struct {
	ID         string    `bson:"_id"`
	Seq        int64     `bson:"seq"`
	Title      string    `bson:"title"`
	Genre      string    `bson:"genre"`
	Year       int       `bson:"year"`
	Director   string    `bson:"director"`
	UserID     string    `bson:"user_id"`
	CommentIDs []string  `bson:"comment_ids"`
	AvgRating  float64   `bson:"avg_rating"`
	Lock       int64     `bson:"lock"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d movieDocument) toDomain() domain.Movie {
	ids := d.CommentIDs
	if ids == nil {
		ids = []string{}
	}
	return domain.Movie{
		ID:         d.ID,
		Title:      d.Title,
		Genre:      d.Genre,
		Year:       d.Year,
		Director:   d.Director,
		UserID:     d.UserID,
		CommentIDs: ids,
		AvgRating:  d.AvgRating,
	}
}

// Insert stores a new movie document.
func (r *MoviesRepository) Insert(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return domain.Movie{}, err
	}

	now := time.Now().UTC()
	doc := movieDocument{
		ID:         movie.ID,
		Seq:        seq,
		Title:      movie.Title,
		Genre:      movie.Genre,
		Year:       movie.Year,
		Director:   movie.Director,
		UserID:     movie.UserID,
		CommentIDs: nonNil(movie.CommentIDs),
		AvgRating:  movie.AvgRating,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.Movie{}, fmt.Errorf("failed to insert movie in mongo: %w", translate(err))
	}
	return doc.toDomain(), nil
}

// nextSeq hands out a monotonically increasing insertion number.
func (r *MoviesRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": moviesCollection},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate movie sequence: %w", err)
	}
	return counter.Value, nil
}

// GetByID fetches a movie document.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	var doc movieDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Movie{}, notFound(err, "get movie")
	}
	return doc.toDomain(), nil
}

// GetForUpdate fetches a movie and, inside a transaction, bumps its lock field so
// that a concurrent transaction touching the same movie hits a write conflict
// and is retried by the driver.
func (r *MoviesRepository) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	if mongo.SessionFromContext(ctx) == nil {
		return r.GetByID(ctx, id)
	}

	var doc movieDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"lock": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.Movie{}, notFound(err, "lock movie")
	}
	return doc.toDomain(), nil
}

// List returns every movie in insertion order.
func (r *MoviesRepository) List(ctx context.Context) ([]domain.Movie, error) {
	return r.find(ctx, bson.M{})
}

// ListByUser returns the movies added by userID in insertion order.
func (r *MoviesRepository) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *MoviesRepository) find(ctx context.Context, filter bson.M) ([]domain.Movie, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list movies from mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []movieDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode movie list from mongo: %w", err)
	}

	movies := make([]domain.Movie, 0, len(docs))
	for _, doc := range docs {
		movies = append(movies, doc.toDomain())
	}
	return movies, nil
}

// Save overwrites every mutable field of an existing movie.
func (r *MoviesRepository) Save(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	update := bson.M{"$set": bson.M{
		"title":       movie.Title,
		"genre":       movie.Genre,
		"year":        movie.Year,
		"director":    movie.Director,
		"user_id":     movie.UserID,
		"comment_ids": nonNil(movie.CommentIDs),
		"avg_rating":  movie.AvgRating,
		"updated_at":  time.Now().UTC(),
	}}

	var doc movieDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": movie.ID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.Movie{}, notFound(err, "save movie")
	}
	return doc.toDomain(), nil
}

// Delete removes a movie document.
func (r *MoviesRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete movie from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s in mongo: %w", op, err)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
