// Package mongodb stores movies, comments and accounts in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = fmt.Errorf("mongodb: %w", domain.ErrNotFound)

const (
	moviesCollection   = "movies"
	commentsCollection = "comments"
	usersCollection    = "users"
	countersCollection = "counters"
)

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Client wraps a connected mongo client and the application database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Named("mongodb").Info("connected", zap.String("database", cfg.Database))
	return &Client{client: client, db: client.Database(cfg.Database), logger: logger.Named("mongodb")}, nil
}

// EnsureIndexes creates the unique and ordering indexes the repositories rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		moviesCollection: {
			{Keys: bson.D{{Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := c.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// WithinTx runs fn inside a multi-document transaction. Calls made while a
// session is already active in ctx join it. Transactions need a replica set.
func (c *Client) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// HealthCheck pings the primary.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from the cluster.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Repository aggregates the MongoDB-backed repositories.
type Repository struct {
	Movies   *MoviesRepository
	Comments *CommentsRepository
	Users    *UsersRepository
}

// New builds every repository on top of c.
func New(c *Client) *Repository {
	return &Repository{
		Movies:   &MoviesRepository{coll: c.db.Collection(moviesCollection), counters: c.db.Collection(countersCollection)},
		Comments: &CommentsRepository{coll: c.db.Collection(commentsCollection)},
		Users:    &UsersRepository{coll: c.db.Collection(usersCollection)},
	}
}

func translate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
