package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
	"github.com/Clark-Hu/movie-reviewer/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = fmt.Errorf("repository: %w", domain.ErrNotFound)

const uniqueViolation = "23505"

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies   *MoviesRepository
	Comments *CommentsRepository
	Users    *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:   &MoviesRepository{pool: pool},
		Comments: &CommentsRepository{pool: pool},
		Users:    &UsersRepository{pool: pool},
	}
}

// translate maps driver errors onto domain sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
