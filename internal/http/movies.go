package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// movieRequest is the body of create and update. Server owned fields are
// accepted so clients may send back a movie they read, but they are ignored.
type movieRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Genre    string `json:"genre" validate:"max=100"`
	Year     int    `json:"year" validate:"omitempty,min=1888,max=2100"`
	Director string `json:"director" validate:"max=200"`

	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	CommentIDs []string `json:"commentIds"`
	AvgRating  float64  `json:"avgRating"`
}

func (req movieRequest) toDomain() domain.Movie {
	return domain.Movie{
		Title:    strings.TrimSpace(req.Title),
		Genre:    strings.TrimSpace(req.Genre),
		Year:     req.Year,
		Director: strings.TrimSpace(req.Director),
	}
}

type reconcileResponse struct {
	Movie             domain.Movie `json:"movie"`
	RemovedCommentIDs []string     `json:"removedCommentIds"`
	Changed           bool         `json:"changed"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.movies.ListAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movies)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	movie, err := s.movies.Create(r.Context(), auth.UsernameFrom(r.Context()), req.toDomain())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%s", url.PathEscape(movie.ID)))
	s.respondJSON(w, http.StatusCreated, movie)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	details, err := s.movies.Details(r.Context(), auth.UsernameFrom(r.Context()), chi.URLParam(r, "movieId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, details)
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	movie, err := s.movies.Update(r.Context(), chi.URLParam(r, "movieId"), req.toDomain())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movie)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "movieId")
	if err := s.movies.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("movie %s deleted", id)})
}

func (s *Server) handleReconcileMovie(w http.ResponseWriter, r *http.Request) {
	result, err := s.movies.Reconcile(r.Context(), chi.URLParam(r, "movieId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	s.respondJSON(w, http.StatusOK, reconcileResponse{
		Movie:             result.Movie,
		RemovedCommentIDs: removed,
		Changed:           result.Changed,
	})
}
