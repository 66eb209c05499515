package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/auth"
	"github.com/sakif/secrets-board/internal/model"
)

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	order    []string
	nextID   int
	storeErr error // when set, every method fails with it
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) insert(u *model.User) {
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	f.order = append(f.order, u.ID)
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	for _, u := range f.users {
		if u.Username != "" && u.Username == user.Username {
			return apperror.DuplicateUser(user.Username)
		}
	}
	f.insert(user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	cp.Secrets = append([]string(nil), u.Secrets...)
	return &cp, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) FindOrCreateByGoogleID(_ context.Context, googleID string) (*model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, false, f.storeErr
	}
	for _, u := range f.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			cp := *u
			return &cp, false, nil
		}
	}
	g := googleID
	u := &model.User{GoogleID: &g}
	f.insert(u)
	return u, true, nil
}

func (f *fakeUserRepo) AppendSecret(_ context.Context, userID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.Secrets = append(u.Secrets, body)
	return nil
}

func (f *fakeUserRepo) ListWithSecrets(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	var out []model.User
	for _, id := range f.order {
		u := f.users[id]
		if len(u.Secrets) > 0 {
			cp := *u
			cp.Secrets = append([]string(nil), u.Secrets...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeGoogle returns a fixed profile, or err when set.
type fakeGoogle struct {
	profile *auth.GoogleUser
	err     error
	codes   []string
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*auth.GoogleUser, error) {
	g.codes = append(g.codes, code)
	if g.err != nil {
		return nil, g.err
	}
	return g.profile, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
