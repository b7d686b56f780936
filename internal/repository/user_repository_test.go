package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"coinlecture/internal/model"
	"coinlecture/internal/testutil"
)

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	gdb := testutil.OpenInMemoryDB(t)
	repo := NewUserRepository(gdb)
	ctx := context.Background()

	token := "abc123"
	u := &model.User{Email: "alice@example.com", PasswordHash: "h", LastName: "Martin", FirstName: "Alice",
		Roles: []string{model.RoleUser, model.RoleAdmin}, VerificationToken: &token}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	byToken, err := repo.FindByVerificationToken(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)
	assert.Equal(t, []string{model.RoleUser, model.RoleAdmin}, byToken.Roles)
	assert.False(t, byToken.Verified)

	byToken.Verified = true
	byToken.VerificationToken = nil
	require.NoError(t, repo.Update(ctx, byToken))
	_, err = repo.FindByVerificationToken(ctx, "abc123")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, byEmail.Verified)

	dup := &model.User{Email: "alice@example.com", PasswordHash: "h", LastName: "X", FirstName: "Y"}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey, "email is unique")

	testutil.CreateUser(t, gdb, "bob@example.com")
	users, total, err := repo.List(ctx, UserFilter{Query: "MARTIN"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "alice@example.com", users[0].Email)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
