package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

// commentRequest is the body of add and update. Id, author and date belong to
// the server and are ignored when sent.
type commentRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=10"`
	Text   string `json:"text" validate:"max=5000"`

	ID       string     `json:"id"`
	AuthorID string     `json:"authorId"`
	AddDate  *time.Time `json:"addDate"`
}

func (req commentRequest) toDomain() domain.Comment {
	return domain.Comment{Rating: req.Rating, Text: strings.TrimSpace(req.Text)}
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.movies.ListComments(r.Context(), chi.URLParam(r, "movieId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	movieID := chi.URLParam(r, "movieId")
	movie, err := s.movies.AddComment(r.Context(), auth.UsernameFrom(r.Context()), movieID, req.toDomain())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%s/comments", url.PathEscape(movie.ID)))
	s.respondJSON(w, http.StatusCreated, movie)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := s.movies.UpdateComment(r.Context(), chi.URLParam(r, "movieId"), chi.URLParam(r, "commentId"), req.toDomain())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	movie, err := s.movies.DeleteComment(r.Context(), chi.URLParam(r, "movieId"), chi.URLParam(r, "commentId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movie)
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.comments.GetByID(r.Context(), chi.URLParam(r, "commentId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, comment)
}
