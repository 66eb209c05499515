package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a local account and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		PasswordHash: "$2a$04$not-a-real-hash-" + username,
	}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func countUsers(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("counting users: %v", err)
	}
	return n
}

// =========================================================================
// MIGRATION TESTS
// =========================================================================

func TestNew_RecordsSchemaVersion(t *testing.T) {
	db := newTestDB(t)

	v, err := db.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion() = %d, want %d", v, len(migrations))
	}
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("New() first open: %v", err)
	}
	createTestUser(t, first, "persisted")
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen: %v", err)
	}
	defer second.Close()

	if _, err := second.GetByUsername(context.Background(), "persisted"); err != nil {
		t.Errorf("GetByUsername() after reopen: %v", err)
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "alice", PasswordHash: "hash"}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	original := createTestUser(t, db, "alice")

	duplicate := &model.User{Username: "alice", PasswordHash: "other-hash"}
	err := db.Create(context.Background(), duplicate)

	if !errors.Is(err, apperror.ErrDuplicateUser) {
		t.Fatalf("Create() error = %v, want ErrDuplicateUser", err)
	}
	if duplicate.ID != "" {
		t.Errorf("Create() set ID %q on a rejected user", duplicate.ID)
	}
	if n := countUsers(t, db); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}

	// The original credential must be untouched.
	found, err := db.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != original.ID || found.PasswordHash != original.PasswordHash {
		t.Errorf("existing user was modified: got %+v", found)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "getbyid_user")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "getbyid_user" {
		t.Errorf("Username = %q, want %q", found.Username, "getbyid_user")
	}
	if found.GoogleID != nil {
		t.Errorf("GoogleID = %v, want nil for a local account", *found.GoogleID)
	}
	if len(found.Secrets) != 0 {
		t.Errorf("Secrets = %v, want empty", found.Secrets)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername() error = %v, want ErrNotFound", err)
	}
}

func TestClosedDB_ReportsStoreUnavailable(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	db.Close()

	_, err = db.GetByUsername(context.Background(), "alice")
	if !errors.Is(err, apperror.ErrStoreUnavailable) {
		t.Errorf("GetByUsername() on closed DB error = %v, want ErrStoreUnavailable", err)
	}
}

// =========================================================================
// GOOGLE FIND-OR-CREATE TESTS
// =========================================================================

func TestFindOrCreateByGoogleID_CreatesOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, created, err := db.FindOrCreateByGoogleID(ctx, "google-123")
	if err != nil {
		t.Fatalf("FindOrCreateByGoogleID() first: %v", err)
	}
	if !created {
		t.Error("first call: created = false, want true")
	}
	if first.GoogleID == nil || *first.GoogleID != "google-123" {
		t.Errorf("GoogleID = %v, want google-123", first.GoogleID)
	}

	second, created, err := db.FindOrCreateByGoogleID(ctx, "google-123")
	if err != nil {
		t.Fatalf("FindOrCreateByGoogleID() second: %v", err)
	}
	if created {
		t.Error("second call: created = true, want false")
	}
	if second.ID != first.ID {
		t.Errorf("second login ID = %q, want %q", second.ID, first.ID)
	}
	if n := countUsers(t, db); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestFindOrCreateByGoogleID_DistinctIdentities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, _, err := db.FindOrCreateByGoogleID(ctx, "g-a")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := db.FindOrCreateByGoogleID(ctx, "g-b")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("distinct Google identities mapped to the same user")
	}
}

func TestFindOrCreateByGoogleID_Concurrent(t *testing.T) {
	db := newTestDB(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := db.FindOrCreateByGoogleID(context.Background(), "racy")
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[0] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], ids[0])
		}
	}
	if n := countUsers(t, db); n != 1 {
		t.Errorf("user count = %d, want 1", n)
	}
}

func TestFindOrCreateByGoogleID_Empty(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.FindOrCreateByGoogleID(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// SECRET TESTS
// =========================================================================

func TestAppendSecret_StrictlyAppends(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "writer")

	for _, s := range []string{"first", "second"} {
		if err := db.AppendSecret(ctx, user.ID, s); err != nil {
			t.Fatalf("AppendSecret(%q): %v", s, err)
		}
	}
	before, _ := db.GetByID(ctx, user.ID)

	if err := db.AppendSecret(ctx, user.ID, "third"); err != nil {
		t.Fatalf("AppendSecret(third): %v", err)
	}
	after, err := db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if len(after.Secrets) != len(before.Secrets)+1 {
		t.Fatalf("len(Secrets) = %d, want %d", len(after.Secrets), len(before.Secrets)+1)
	}
	for i, s := range before.Secrets {
		if after.Secrets[i] != s {
			t.Errorf("Secrets[%d] = %q, want %q", i, after.Secrets[i], s)
		}
	}
	if last := after.Secrets[len(after.Secrets)-1]; last != "third" {
		t.Errorf("last secret = %q, want %q", last, "third")
	}
}

func TestAppendSecret_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.AppendSecret(context.Background(), "ghost", "boo")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AppendSecret() error = %v, want ErrNotFound", err)
	}
}

func TestAppendSecret_ConcurrentSameUser(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "busy")

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := db.AppendSecret(context.Background(), user.ID, fmt.Sprintf("s%d", i)); err != nil {
				t.Errorf("AppendSecret(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	found, err := db.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(found.Secrets) != n {
		t.Errorf("len(Secrets) = %d, want %d", len(found.Secrets), n)
	}
}

func TestListWithSecrets_AllUsersWithAnySecret(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	createTestUser(t, db, "silent") // no secrets, must be excluded
	google, _, err := db.FindOrCreateByGoogleID(ctx, "g-1")
	if err != nil {
		t.Fatal(err)
	}

	mustAppend := func(id, body string) {
		t.Helper()
		if err := db.AppendSecret(ctx, id, body); err != nil {
			t.Fatalf("AppendSecret: %v", err)
		}
	}
	mustAppend(alice.ID, "a1")
	mustAppend(google.ID, "g1")
	mustAppend(alice.ID, "a2")

	users, err := db.ListWithSecrets(ctx)
	if err != nil {
		t.Fatalf("ListWithSecrets() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}

	byID := map[string][]string{}
	for _, u := range users {
		byID[u.ID] = u.Secrets
	}
	if got := byID[alice.ID]; len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Errorf("alice secrets = %v, want [a1 a2]", got)
	}
	if got := byID[google.ID]; len(got) != 1 || got[0] != "g1" {
		t.Errorf("google user secrets = %v, want [g1]", got)
	}
}

func TestListWithSecrets_Empty(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "nobody-writes")

	users, err := db.ListWithSecrets(context.Background())
	if err != nil {
		t.Fatalf("ListWithSecrets() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("len(users) = %d, want 0", len(users))
	}
}
