// Package service holds the business rules of the board. Handlers call it
// with plain values; it talks to storage only through repository interfaces.
//
//	Handler (HTTP) → Service (rules) → Repository (SQLite)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/auth"
	"github.com/sakif/secrets-board/internal/model"
	"github.com/sakif/secrets-board/internal/repository"
)

const MaxUsernameLength = 100

// GoogleExchanger completes a Google authorization code exchange.
// *auth.GoogleProvider implements it.
type GoogleExchanger interface {
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// AuthService registers and authenticates users.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	google    GoogleExchanger // nil when Google sign-in is not configured
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	google GoogleExchanger,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		google:    google,
		logger:    logger,
	}
}

// AuthResult is what a successful authentication hands back to the handler,
// which turns it into a session.
type AuthResult struct {
	User *model.User
	// Name is a display name from the identity provider. It is kept in the
	// session only and never stored on the user.
	Name string
	// Created is true when this authentication created the account.
	Created bool
}

// Register creates a local account.
//
// Errors: ErrValidation for a blank username or an unusable password,
// ErrDuplicateUser when the username is taken, ErrStoreUnavailable when
// the database fails.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Created: true}, nil
}

// Login checks a username/password pair.
//
// An unknown username, an OAuth-only account and a wrong password all yield
// the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}
	if !user.HasLocalCredential() {
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user}, nil
}

// LoginWithGoogle exchanges an authorization code and finds or creates the
// user linked to the Google account.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code string) (*AuthResult, error) {
	if s.google == nil {
		return nil, apperror.Provider("google sign-in is not configured", nil)
	}
	if code == "" {
		return nil, apperror.Provider("callback carried no authorization code", nil)
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Provider("google code exchange failed", err)
	}

	user, created, err := s.users.FindOrCreateByGoogleID(ctx, profile.Subject)
	if err != nil {
		return nil, fmt.Errorf("service/auth: find or create google user: %w", err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
		slog.Bool("created", created),
	)
	return &AuthResult{User: user, Name: profile.Name, Created: created}, nil
}

func validateCredentials(username, password string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or fewer", MaxUsernameLength))
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}
