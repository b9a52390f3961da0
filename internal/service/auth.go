package service

import (
	"context"
	"log/slog"

	"github.com/stacksapp/stacks-server/internal/auth"
	"github.com/stacksapp/stacks-server/internal/domain"
	"github.com/stacksapp/stacks-server/internal/errors"
	"github.com/stacksapp/stacks-server/internal/id"
	"github.com/stacksapp/stacks-server/internal/ratelimit"
	"github.com/stacksapp/stacks-server/internal/store"
)

// defaultPassword is the fixed course password assigned to accounts at
// registration: the public contract keeps createUser without a password
// argument. The hash is stored and verified like any real credential.
const defaultPassword = "secret"

// wrongCredentials is the single error returned for every login
// failure mode. Unknown username and wrong password are
// indistinguishable by response shape, preventing username enumeration.
var wrongCredentials = errors.BadUserInput("wrong credentials")

// AuthService handles registration, login and token verification.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	loginLimiter *ratelimit.KeyedLimiter
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, loginLimiter *ratelimit.KeyedLimiter, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		loginLimiter: loginLimiter,
		logger:       logger,
	}
}

// CreateUserRequest contains user registration data.
type CreateUserRequest struct {
	Username      string `json:"username" validate:"required,min=3"`
	FavoriteGenre string `json:"favoriteGenre" validate:"required"`
}

// CreateUser registers a new account. No authentication required.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, errors.BadUserInput("creating new user failed").WithCause(err).WithInvalidArgs(req)
	}

	passwordHash, err := auth.HashPassword(defaultPassword)
	if err != nil {
		return nil, errors.Internal("hashing password failed").WithCause(err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, errors.Internal("generating user id failed").WithCause(err)
	}

	user := &domain.User{
		ID:            userID,
		Username:      req.Username,
		FavoriteGenre: req.FavoriteGenre,
		PasswordHash:  passwordHash,
	}

	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, errors.BadUserInput("creating new user failed").WithCause(err).WithInvalidArgs(req)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and issues a signed access token embedding
// the user's id and username.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if !s.loginLimiter.Allow(username) {
		s.logger.Warn("login throttled", slog.String("username", username))
		return "", errors.BadUserInput("too many login attempts")
	}

	user, err := s.store.Users.GetByUnique(ctx, "username", username)
	if err != nil {
		// Identical failure shape for unknown usernames and bad passwords.
		return "", wrongCredentials
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return "", wrongCredentials
	}

	token, err := s.tokenService.Issue(user)
	if err != nil {
		return "", errors.Internal("issuing token failed").WithCause(err)
	}

	s.logger.Info("user logged in", slog.String("username", username))
	return token, nil
}

// UserFromToken resolves a bearer token to its user. Any failure -
// malformed token, expired token, deleted user - yields nil: invalid
// credentials are treated as absent authentication, and protected
// operations downstream report UNAUTHENTICATED themselves.
func (s *AuthService) UserFromToken(ctx context.Context, token string) *domain.User {
	if token == "" {
		return nil
	}

	claims, err := s.tokenService.Verify(token)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil
	}

	user, err := s.store.Users.Get(ctx, claims.UserID)
	if err != nil {
		s.logger.Debug("token user not found", slog.String("user_id", claims.UserID))
		return nil
	}
	return user
}
