package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/model"
	"github.com/sakif/secrets-board/internal/repository"
)

// MaxSecretLength caps a secret, in characters.
const MaxSecretLength = 10000

// SecretService appends and lists secrets.
type SecretService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewSecretService(users repository.UserRepository, logger *slog.Logger) *SecretService {
	return &SecretService{users: users, logger: logger}
}

// Submit appends body to the user's secrets. Surrounding whitespace is
// trimmed; an empty result is rejected.
func (s *SecretService) Submit(ctx context.Context, userID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return apperror.ValidationFailed("secret", "secret must not be empty")
	}
	if utf8.RuneCountInString(body) > MaxSecretLength {
		return apperror.ValidationFailed("secret",
			fmt.Sprintf("secret must be %d characters or fewer", MaxSecretLength))
	}

	if err := s.users.AppendSecret(ctx, userID, body); err != nil {
		return fmt.Errorf("service/secret: appending for %s: %w", userID, err)
	}

	s.logger.Info("secret submitted", slog.String("userID", userID))
	return nil
}

// ListAll returns every user with at least one secret. The board is
// communal: the result is the same no matter who asks.
func (s *SecretService) ListAll(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListWithSecrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/secret: listing: %w", err)
	}
	return users, nil
}
