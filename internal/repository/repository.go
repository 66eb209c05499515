// Package repository declares the storage contracts the services depend on.
package repository

import (
	"context"

	"github.com/sakif/secrets-board/internal/model"
)

// UserRepository is the credential store.
//
// Implementations wrap driver failures in apperror.StoreUnavailable and
// report missing rows as apperror.ErrNotFound.
type UserRepository interface {
	// Create inserts a local account. A taken username yields
	// apperror.ErrDuplicateUser and leaves the existing row untouched.
	Create(ctx context.Context, user *model.User) error

	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// FindOrCreateByGoogleID returns the user linked to googleID, creating it
	// on first sight. created reports whether a new row was inserted.
	FindOrCreateByGoogleID(ctx context.Context, googleID string) (user *model.User, created bool, err error)

	// AppendSecret adds body to the end of the user's secrets.
	AppendSecret(ctx context.Context, userID, body string) error

	// ListWithSecrets returns every user that has at least one secret, with
	// Secrets populated in submission order.
	ListWithSecrets(ctx context.Context) ([]model.User, error)
}
