package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/secrets-board/internal/apperror"
)

// seeOther redirects after a form POST so a browser refresh does not resubmit.
func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// logFailure logs err at a level matching its class. Expected user-facing
// failures (bad input, wrong password, taken name, provider refusal) are
// warnings; store outages and anything unclassified are errors.
func logFailure(logger *slog.Logger, r *http.Request, msg string, err error) {
	level := slog.LevelError
	kind := "internal"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		level, kind = slog.LevelWarn, "validation"
	case errors.Is(err, apperror.ErrDuplicateUser):
		level, kind = slog.LevelWarn, "duplicate_user"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		level, kind = slog.LevelWarn, "invalid_credentials"
	case errors.Is(err, apperror.ErrProvider):
		level, kind = slog.LevelWarn, "provider"
	case errors.Is(err, apperror.ErrNotFound):
		level, kind = slog.LevelWarn, "not_found"
	case errors.Is(err, apperror.ErrStoreUnavailable):
		kind = "store_unavailable"
	}

	logger.Log(r.Context(), level, msg,
		slog.String("kind", kind),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
