package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/model"
	"github.com/sakif/secrets-board/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, google_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		username sql.NullString
		googleID sql.NullString
	)
	if err := row.Scan(&u.ID, &username, &u.PasswordHash, &googleID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Username = username.String
	if googleID.Valid {
		g := googleID.String
		u.GoogleID = &g
	}
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a local account.
//
// ON CONFLICT DO NOTHING turns a taken username into zero affected rows, which
// we report as DuplicateUser without touching the existing account.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	id := xid.New().String()

	var googleID sql.NullString
	if user.GoogleID != nil {
		googleID = nullable(*user.GoogleID)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, google_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		id,
		nullable(user.Username),
		user.PasswordHash,
		googleID,
		now,
		now,
	)
	if err != nil {
		return apperror.StoreUnavailable("insert user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.StoreUnavailable("insert user", err)
	}
	if n == 0 {
		return apperror.DuplicateUser(user.Username)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Secrets = nil
	return nil
}

// GetByID retrieves a user and their secrets by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return db.getOne(ctx, row, "user", id)
}

// GetByUsername retrieves a local account by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return db.getOne(ctx, row, "user", username)
}

func (db *DB) getOne(ctx context.Context, row *sql.Row, resource, key string) (*model.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, apperror.StoreUnavailable("get user", err)
	}

	secrets, err := db.secretsFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Secrets = secrets
	return u, nil
}

// FindOrCreateByGoogleID links a Google account to exactly one row.
//
// The insert and the lookup are two statements, but the UNIQUE constraint on
// google_id means a concurrent first login for the same identity can only
// ever produce one row; the loser of the race reads the winner's row.
func (db *DB) FindOrCreateByGoogleID(ctx context.Context, googleID string) (*model.User, bool, error) {
	if googleID == "" {
		return nil, false, apperror.ValidationFailed("googleId", "google id must not be empty")
	}

	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, google_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(google_id) DO NOTHING`,
		xid.New().String(), googleID, now, now,
	)
	if err != nil {
		return nil, false, apperror.StoreUnavailable("find or create google user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, apperror.StoreUnavailable("find or create google user", err)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
	u, err := db.getOne(ctx, row, "google user", googleID)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: reading google user after insert: %w", err)
	}
	return u, n == 1, nil
}

// AppendSecret adds body at position MAX(position)+1 for the user.
//
// The position is computed inside the INSERT and the pool holds a single
// connection, so concurrent appends for one user are applied one after the
// other and never share a slot.
func (db *DB) AppendSecret(ctx context.Context, userID, body string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.StoreUnavailable("append secret", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists)
	if err != nil {
		return apperror.StoreUnavailable("append secret", err)
	}
	if exists == 0 {
		return apperror.NotFound("user", userID)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO secrets (user_id, position, body, created_at)
		 SELECT ?, COALESCE(MAX(position), 0) + 1, ?, ?
		 FROM secrets WHERE user_id = ?`,
		userID, body, now, userID,
	)
	if err != nil {
		return apperror.StoreUnavailable("append secret", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET updated_at = ? WHERE id = ?`, now, userID); err != nil {
		return apperror.StoreUnavailable("append secret", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.StoreUnavailable("append secret", err)
	}
	return nil
}

// ListWithSecrets returns users that have at least one secret, oldest
// account first, each with Secrets in submission order.
func (db *DB) ListWithSecrets(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.google_id, u.created_at, u.updated_at, s.body
		 FROM users u
		 JOIN secrets s ON s.user_id = u.id
		 ORDER BY u.created_at, u.id, s.position`)
	if err != nil {
		return nil, apperror.StoreUnavailable("list secrets", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u        model.User
			username sql.NullString
			googleID sql.NullString
			body     string
		)
		if err := rows.Scan(&u.ID, &username, &u.PasswordHash, &googleID, &u.CreatedAt, &u.UpdatedAt, &body); err != nil {
			return nil, apperror.StoreUnavailable("list secrets", err)
		}

		if n := len(users); n > 0 && users[n-1].ID == u.ID {
			users[n-1].Secrets = append(users[n-1].Secrets, body)
			continue
		}

		u.Username = username.String
		if googleID.Valid {
			g := googleID.String
			u.GoogleID = &g
		}
		u.Secrets = []string{body}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.StoreUnavailable("list secrets", err)
	}

	return users, nil
}

func (db *DB) secretsFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT body FROM secrets WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, apperror.StoreUnavailable("list user secrets", err)
	}
	defer rows.Close()

	var secrets []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperror.StoreUnavailable("list user secrets", err)
		}
		secrets = append(secrets, body)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.StoreUnavailable("list user secrets", err)
	}
	return secrets, nil
}
