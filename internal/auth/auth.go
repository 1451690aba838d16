// Package auth registers accounts, checks passwords and issues and verifies
// HS256 access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/movie-reviewer/internal/domain"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned by ParseToken for anything but a valid, unexpired token.
	ErrInvalidToken = errors.New("invalid token")
)

// UserStore persists accounts. Missing records yield domain.ErrNotFound and
// duplicates domain.ErrConflict.
type UserStore interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// Config controls token issuance and password hashing.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
}

// Service implements registration, login and token verification.
type Service struct {
	users  UserStore
	cfg    Config
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewService builds a Service. A zero TokenTTL defaults to one hour.
func NewService(users UserStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.Named("auth"),
	}
}

// RegisterParams is the input of Register.
type RegisterParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates an enabled account with the USER role.
func (s *Service) Register(ctx context.Context, p RegisterParams) (domain.User, error) {
	if p.Password != p.ConfirmPassword {
		return domain.User{}, fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	if _, err := s.users.FindByUsername(ctx, p.Username); err == nil {
		return domain.User{}, fmt.Errorf("%w: username %q is taken", domain.ErrConflict, p.Username)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.User{}, fmt.Errorf("%w: email %q is already registered", domain.ErrConflict, email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.cfg.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:           s.newID(),
		Username:     p.Username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	User        domain.User
}

// Login authenticates by username or email and issues a token.
func (s *Service) Login(ctx context.Context, login, password string) (Token, error) {
	var (
		user domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.users.FindByEmail(ctx, login)
	} else {
		user, err = s.users.FindByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}
	return s.IssueToken(user)
}

// Claims is the JWT payload. The subject is the username.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for user.
func (s *Service) IssueToken(user domain.User) (Token, error) {
	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: expires, User: user}, nil
}

// ParseToken verifies signature, algorithm and expiry and returns the caller.
func (s *Service) ParseToken(raw string) (Principal, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		UserID:   claims.UserID,
		Username: claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}
