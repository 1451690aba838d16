package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/movie-reviewer/internal/auth"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        userResponse `json:"user"`
}

type currentUserResponse struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	MoviesAdded int    `json:"moviesAdded"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), auth.RegisterParams{
		Username:        strings.TrimSpace(req.Username),
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	token, err := s.auth.Login(r.Context(), strings.TrimSpace(req.Login), req.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt.UTC(),
		User: userResponse{
			ID:       token.User.ID,
			Username: token.User.Username,
			Email:    token.User.Email,
			Role:     token.User.Role,
		},
	})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	movies, err := s.movies.ListByOwner(r.Context(), principal.Username)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, currentUserResponse{
		Username:    principal.Username,
		Email:       principal.Email,
		MoviesAdded: len(movies),
	})
}

func (s *Server) handleCurrentUserMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.movies.ListByOwner(r.Context(), auth.UsernameFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movies)
}
