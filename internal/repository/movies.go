package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
	"github.com/Clark-Hu/movie-reviewer/internal/store"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    title,
    genre,
    release_year,
    director,
    user_id,
    comment_ids,
    avg_rating
`

// Insert stores a new movie row and returns the stored entity.
func (r *MoviesRepository) Insert(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (id, title, genre, release_year, director, user_id, comment_ids, avg_rating)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING %s
    `, movieColumns)

	row := store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		movie.ID, movie.Title, movie.Genre, movie.Year, movie.Director, movie.UserID,
		commentIDs(movie.CommentIDs), movie.AvgRating,
	)
	stored, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, translate(err)
	}
	return stored, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	return r.getOne(ctx, query, id)
}

// GetForUpdate fetches a movie and locks its row until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *MoviesRepository) GetForUpdate(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 FOR UPDATE`, movieColumns)
	return r.getOne(ctx, query, id)
}

func (r *MoviesRepository) getOne(ctx context.Context, query, id string) (domain.Movie, error) {
	movie, err := scanMovie(store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// List returns every movie in insertion order.
func (r *MoviesRepository) List(ctx context.Context) ([]domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies ORDER BY seq`, movieColumns)
	return r.query(ctx, query)
}

// ListByUser returns the movies added by userID in insertion order.
func (r *MoviesRepository) ListByUser(ctx context.Context, userID string) ([]domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE user_id = $1 ORDER BY seq`, movieColumns)
	return r.query(ctx, query, userID)
}

func (r *MoviesRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Movie, error) {
	rows, err := store.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Save overwrites every mutable column of an existing movie.
func (r *MoviesRepository) Save(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET title = $2,
            genre = $3,
            release_year = $4,
            director = $5,
            user_id = $6,
            comment_ids = $7,
            avg_rating = $8,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	row := store.QuerierFrom(ctx, r.pool).QueryRow(ctx, query,
		movie.ID, movie.Title, movie.Genre, movie.Year, movie.Director, movie.UserID,
		commentIDs(movie.CommentIDs), movie.AvgRating,
	)
	saved, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return saved, nil
}

// Delete removes a movie row.
func (r *MoviesRepository) Delete(ctx context.Context, id string) error {
	tag, err := store.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Genre,
		&movie.Year,
		&movie.Director,
		&movie.UserID,
		&movie.CommentIDs,
		&movie.AvgRating,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	movie.CommentIDs = commentIDs(movie.CommentIDs)
	return movie, nil
}

// commentIDs keeps the column NOT NULL and the JSON shape an array.
func commentIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
