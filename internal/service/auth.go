package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

const (
	MaxUsernameLength = 150
	MinPasswordLength = 8

	// FormField marks errors that belong to the whole form rather than one
	// input, e.g. a failed login.
	FormField = "form"
)

// validUsername accepts letters and digits of any script plus @ . + - _.
var validUsername = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// errBadCredentials never says whether the username exists.
var errBadCredentials = apperror.ValidationFailed(FormField, "invalid username or password")

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never sets cookies or reads requests; that stays in the handler.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup creates a local account with a bcrypt-hashed password.
// It does not sign the user in; the signup page redirects to login.
func (s *AuthService) Signup(ctx context.Context, username, password, confirm string) (*model.User, error) {
	username = strings.TrimSpace(username)

	switch {
	case username == "":
		return nil, apperror.ValidationFailed("username", "username is required")
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	case !validUsername.MatchString(username):
		return nil, apperror.ValidationFailed("username",
			"username may contain only letters, digits and @/./+/-/_")
	}

	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if password != confirm {
		return nil, apperror.ValidationFailed("confirm", "the two password fields didn't match")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", "a user with that username already exists")
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks a username/password pair and issues a session token.
//
// Unknown user, wrong password and GitHub-only account all return the same
// validation error on FormField.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", username, err)
	}
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("failed login", slog.String("username", user.Username))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
//  1. Upsert the user by github_id (create on first login)
//  2. Generate a JWT for the internal user ID
//
// If the GitHub login is already taken by a local account, the new user gets
// "<login>-gh<id>" instead.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{GitHubID: ghUser.ID, Username: ghUser.Login}
	err := s.users.UpsertGitHubUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user = &model.User{
			GitHubID: ghUser.ID,
			Username: fmt.Sprintf("%s-gh%d", ghUser.Login, ghUser.ID),
		}
		err = s.users.UpsertGitHubUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID a session token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
