package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/migrations"
	"memberhub-backend-go/internal/models"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store := db.New(db.Config{Path: db.MemoryPath})
	t.Cleanup(func() { _ = store.Shutdown() })
	_, err := migrations.Apply(context.Background(), store)
	require.NoError(t, err)
	return store
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	svcErr, ok := AsServiceError(err)
	require.True(t, ok, "expected a service error, got %v", err)
	assert.Equal(t, status, svcErr.Status)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()

	t.Run("Should register a user with the default role", func(t *testing.T) {
		store := newTestStore(t)
		user, err := RegisterUser(ctx, store, tokens, " Alice@Example.org ", "Secret123!", "Alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.org", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.Equal(t, models.AccountRegistered, user.AccountKind)
		assert.Equal(t, models.ApprovalPending, user.ApprovalStatus)
		require.NotNil(t, user.PasswordHash)

		logged, err := AuthenticateUser(ctx, store, tokens, "alice@example.org", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, user.ID, logged.ID)
	})

	t.Run("Should refuse a duplicate email", func(t *testing.T) {
		store := newTestStore(t)
		_, err := RegisterUser(ctx, store, tokens, "alice@example.org", "Secret123!", "Alice")
		require.NoError(t, err)
		_, err = RegisterUser(ctx, store, tokens, "ALICE@example.org", "Other123!", "Alice 2")
		requireStatus(t, err, 409)
	})

	t.Run("Should reject wrong and unknown credentials alike", func(t *testing.T) {
		store := newTestStore(t)
		_, err := RegisterUser(ctx, store, tokens, "alice@example.org", "Secret123!", "Alice")
		require.NoError(t, err)

		_, err = AuthenticateUser(ctx, store, tokens, "alice@example.org", "wrong")
		requireStatus(t, err, 401)
		assert.Equal(t, "Invalid credentials", err.Error())
		_, err = AuthenticateUser(ctx, store, tokens, "nobody@example.org", "Secret123!")
		requireStatus(t, err, 401)
	})

	t.Run("Should block banned users after a correct password", func(t *testing.T) {
		store := newTestStore(t)
		user, err := RegisterUser(ctx, store, tokens, "bob@example.org", "Secret123!", "Bob")
		require.NoError(t, err)
		_, err = SetBanned(ctx, store, user.ID, true)
		require.NoError(t, err)

		_, err = AuthenticateUser(ctx, store, tokens, "bob@example.org", "Secret123!")
		requireStatus(t, err, 403)
		_, err = AuthenticateUser(ctx, store, tokens, "bob@example.org", "wrong")
		requireStatus(t, err, 401)
	})
}

func TestGuestAccounts(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()

	t.Run("Should create a guest that can never log in", func(t *testing.T) {
		store := newTestStore(t)
		guest, err := FindOrCreateGuest(ctx, store, "Guest@Example.org", "Gus")
		require.NoError(t, err)
		assert.True(t, guest.IsGuest())
		assert.Nil(t, guest.PasswordHash)

		_, err = AuthenticateUser(ctx, store, tokens, "guest@example.org", "")
		requireStatus(t, err, 401)
	})

	t.Run("Should reuse an existing guest", func(t *testing.T) {
		store := newTestStore(t)
		first, err := FindOrCreateGuest(ctx, store, "guest@example.org", "Gus")
		require.NoError(t, err)
		second, err := FindOrCreateGuest(ctx, store, "GUEST@example.org", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("Should refuse the email of a registered account", func(t *testing.T) {
		store := newTestStore(t)
		_, err := RegisterUser(ctx, store, tokens, "member@example.org", "Secret123!", "Mia")
		require.NoError(t, err)

		_, err = FindOrCreateGuest(ctx, store, "Member@Example.org", "Someone else")
		requireStatus(t, err, 401)
		svcErr, _ := AsServiceError(err)
		assert.Equal(t, "Please sign in to post with this email", svcErr.Message)
	})

	t.Run("Should upgrade a guest on registration and keep the id", func(t *testing.T) {
		store := newTestStore(t)
		guest, err := FindOrCreateGuest(ctx, store, "guest@example.org", "Gus")
		require.NoError(t, err)

		user, err := RegisterUser(ctx, store, tokens, "guest@example.org", "Secret123!", "")
		require.NoError(t, err)
		assert.Equal(t, guest.ID, user.ID)
		assert.Equal(t, "Gus", user.Name)
		assert.Equal(t, models.AccountRegistered, user.AccountKind)

		_, err = AuthenticateUser(ctx, store, tokens, "guest@example.org", "Secret123!")
		require.NoError(t, err)
	})
}

func TestAdminUserChanges(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()
	store := newTestStore(t)
	user, err := RegisterUser(ctx, store, tokens, "carol@example.org", "Secret123!", "Carol")
	require.NoError(t, err)

	t.Run("Should change role and approval", func(t *testing.T) {
		updated, err := SetUserRole(ctx, store, user.ID, models.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, updated.Role)

		updated, err = SetApprovalStatus(ctx, store, user.ID, models.ApprovalApproved)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalApproved, updated.ApprovalStatus)
	})

	t.Run("Should reject unknown values and missing users", func(t *testing.T) {
		_, err := SetUserRole(ctx, store, user.ID, models.Role("overlord"))
		requireStatus(t, err, 400)
		_, err = SetApprovalStatus(ctx, store, user.ID, models.ApprovalStatus("maybe"))
		requireStatus(t, err, 400)
		_, err = SetUserRole(ctx, store, 999, models.RoleMember)
		requireStatus(t, err, 404)
	})

	t.Run("Should list with search and paging", func(t *testing.T) {
		_, err := RegisterUser(ctx, store, tokens, "dave@example.org", "Secret123!", "Dave")
		require.NoError(t, err)

		users, total, err := ListUsers(ctx, store, UserFilter{Search: "dave"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, users, 1)
		assert.Equal(t, "dave@example.org", users[0].Email)

		users, total, err = ListUsers(ctx, store, UserFilter{Page: 1, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, users, 1)
	})

	t.Run("Should delete and report missing users", func(t *testing.T) {
		require.NoError(t, DeleteUser(ctx, store, user.ID))
		requireStatus(t, DeleteUser(ctx, store, user.ID), 404)
	})
}

func TestProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()
	store := newTestStore(t)
	user, err := RegisterUser(ctx, store, tokens, "erin@example.org", "Secret123!", "Erin")
	require.NoError(t, err)

	t.Run("Should update only supplied fields", func(t *testing.T) {
		bio := "  Builds things  "
		updated, err := UpdateProfile(ctx, store, user.ID, ProfileUpdate{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "Erin", updated.Name)
		require.NotNil(t, updated.Bio)
		assert.Equal(t, "Builds things", *updated.Bio)

		blank := " "
		updated, err = UpdateProfile(ctx, store, user.ID, ProfileUpdate{Bio: &blank})
		require.NoError(t, err)
		assert.Nil(t, updated.Bio)
	})

	t.Run("Should require the current password", func(t *testing.T) {
		requireStatus(t, ChangePassword(ctx, store, tokens, user.ID, "wrong", "NewSecret1!"), 400)
		require.NoError(t, ChangePassword(ctx, store, tokens, user.ID, "Secret123!", "NewSecret1!"))
		_, err := AuthenticateUser(ctx, store, tokens, "erin@example.org", "NewSecret1!")
		require.NoError(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens()

	t.Run("Should reset with a fresh token exactly once", func(t *testing.T) {
		store := newTestStore(t)
		_, err := RegisterUser(ctx, store, tokens, "frank@example.org", "Secret123!", "Frank")
		require.NoError(t, err)

		token, user, ok, err := IssuePasswordReset(ctx, store, "FRANK@example.org")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "frank@example.org", user.Email)

		require.NoError(t, ResetPassword(ctx, store, tokens, token, "Changed123!"))
		_, err = AuthenticateUser(ctx, store, tokens, "frank@example.org", "Changed123!")
		require.NoError(t, err)
		requireStatus(t, ResetPassword(ctx, store, tokens, token, "Again123!"), 400)
	})

	t.Run("Should reject an expired token", func(t *testing.T) {
		store := newTestStore(t)
		user, err := RegisterUser(ctx, store, tokens, "gina@example.org", "Secret123!", "Gina")
		require.NoError(t, err)
		_, err = store.Exec(ctx, `UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?`,
			"stale", time.Now().UTC().Add(-time.Minute), user.ID)
		require.NoError(t, err)

		requireStatus(t, ResetPassword(ctx, store, tokens, "stale", "Changed123!"), 400)
	})

	t.Run("Should stay silent for unknown emails and guests", func(t *testing.T) {
		store := newTestStore(t)
		_, _, ok, err := IssuePasswordReset(ctx, store, "nobody@example.org")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = FindOrCreateGuest(ctx, store, "guest@example.org", "")
		require.NoError(t, err)
		_, _, ok, err = IssuePasswordReset(ctx, store, "guest@example.org")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
