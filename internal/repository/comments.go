package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
	"github.com/Clark-Hu/movie-reviewer/internal/store"
)

// CommentsRepository persists review comments.
type CommentsRepository struct {
	pool *pgxpool.Pool
}

const commentColumns = `id, rating, body, author_id, added_at`

// Insert stores a new comment.
func (r *CommentsRepository) Insert(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	const query = `
        INSERT INTO comments (id, rating, body, author_id, added_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ` + commentColumns

	row := store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, c.ID, c.Rating, c.Text, c.AuthorID, c.AddDate)
	stored, err := scanComment(row)
	if err != nil {
		return domain.Comment{}, translate(err)
	}
	return stored, nil
}

// GetByID fetches a comment by its identifier.
func (r *CommentsRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	c, err := scanComment(store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}
	return c, nil
}

// Save updates rating and text. Author and creation date are never rewritten.
func (r *CommentsRepository) Save(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	const query = `
        UPDATE comments
        SET rating = $2,
            body = $3,
            updated_at = now()
        WHERE id = $1
        RETURNING ` + commentColumns

	saved, err := scanComment(store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, c.ID, c.Rating, c.Text))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}
	return saved, nil
}

// Delete removes a comment row.
func (r *CommentsRepository) Delete(ctx context.Context, id string) error {
	tag, err := store.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.Rating, &c.Text, &c.AuthorID, &c.AddDate); err != nil {
		return domain.Comment{}, err
	}
	c.AddDate = c.AddDate.UTC()
	return c, nil
}
