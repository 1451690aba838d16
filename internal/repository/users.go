package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
	"github.com/Clark-Hu/movie-reviewer/internal/store"
)

// UsersRepository persists accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, username, email, password_hash, role, created_at`

// Create inserts a new account. Duplicate usernames or emails yield domain.ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const query = `
        INSERT INTO users (id, username, email, password_hash, role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ` + userColumns

	stored, err := scanUser(store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.Role))
	if err != nil {
		return domain.User{}, translate(err)
	}
	return stored, nil
}

// FindByUsername looks an account up by username.
func (r *UsersRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findBy(ctx, "username", username)
}

// FindByEmail looks an account up by email, case-insensitively.
func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.get(ctx, query, email)
}

// FindByID looks an account up by id.
func (r *UsersRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *UsersRepository) findBy(ctx context.Context, column, value string) (domain.User, error) {
	// column is always one of the fixed names above.
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	return r.get(ctx, query, value)
}

func (r *UsersRepository) get(ctx context.Context, query, arg string) (domain.User, error) {
	u, err := scanUser(store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
