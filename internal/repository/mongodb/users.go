package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// UsersRepository persists accounts.
type UsersRepository struct {
	coll *mongo.Collection
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	EmailKey     string    `bson:"email_key"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// Create inserts an account. Duplicate usernames or emails yield domain.ErrConflict
// once EnsureIndexes has run.
func (r *UsersRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	doc := userDocument{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		EmailKey:     strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.User{}, fmt.Errorf("failed to create user in mongo: %w", translate(err))
	}
	return doc.toDomain(), nil
}

// FindByUsername looks an account up by username.
func (r *UsersRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByEmail looks an account up by email, case-insensitively.
func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email_key": strings.ToLower(email)})
}

// FindByID looks an account up by id.
func (r *UsersRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UsersRepository) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.User{}, notFound(err, "get user")
	}
	return doc.toDomain(), nil
}
