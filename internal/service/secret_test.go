package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/secrets-board/internal/apperror"
	"github.com/sakif/secrets-board/internal/model"
)

func seedUser(t *testing.T, repo *fakeUserRepo, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestSubmit_AppendsExactlyOne(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewSecretService(repo, testLogger())
	ctx := context.Background()
	u := seedUser(t, repo, "alice")

	require.NoError(t, svc.Submit(ctx, u.ID, "first"))
	before, _ := repo.GetByID(ctx, u.ID)

	require.NoError(t, svc.Submit(ctx, u.ID, "  second  "))
	after, _ := repo.GetByID(ctx, u.ID)

	require.Len(t, after.Secrets, len(before.Secrets)+1)
	assert.Equal(t, before.Secrets, after.Secrets[:len(before.Secrets)])
	assert.Equal(t, "second", after.Secrets[len(after.Secrets)-1])
}

func TestSubmit_Validation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewSecretService(repo, testLogger())
	u := seedUser(t, repo, "alice")

	for _, body := range []string{"", "   \n\t", strings.Repeat("s", MaxSecretLength+1)} {
		err := svc.Submit(context.Background(), u.ID, body)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}

	got, _ := repo.GetByID(context.Background(), u.ID)
	assert.Empty(t, got.Secrets)
}

func TestSubmit_LengthCountsCharacters(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewSecretService(repo, testLogger())
	u := seedUser(t, repo, "alice")

	// 3 bytes per rune, so this is well over MaxSecretLength bytes
	atLimit := strings.Repeat("秘", MaxSecretLength)
	require.NoError(t, svc.Submit(context.Background(), u.ID, atLimit))

	err := svc.Submit(context.Background(), u.ID, atLimit+"密")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, _ := repo.GetByID(context.Background(), u.ID)
	assert.Len(t, got.Secrets, 1)
}

func TestSubmit_UnknownUser(t *testing.T) {
	svc := NewSecretService(newFakeUserRepo(), testLogger())

	err := svc.Submit(context.Background(), "ghost", "boo")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListAll_IsUnfilteredUnion(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewSecretService(repo, testLogger())
	ctx := context.Background()

	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")
	seedUser(t, repo, "carol") // no secrets

	require.NoError(t, svc.Submit(ctx, alice.ID, "a"))
	require.NoError(t, svc.Submit(ctx, bob.ID, "b"))

	users, err := svc.ListAll(ctx)
	require.NoError(t, err)

	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, ids)
}
