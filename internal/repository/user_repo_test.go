package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-dashboard/internal/model"
	"github.com/iliyamo/inventory-dashboard/internal/utils"
)

// low bcrypt cost keeps the suite fast
const testBcryptCost = 4

func newTestUser(orgID uint64, username string) *model.User {
	return &model.User{
		Email:          username + "@acme.test",
		Username:       username,
		FullName:       "Test " + username,
		PhoneNumber:    "555-0100",
		OrganizationID: orgID,
		Role:           "member",
	}
}

func TestUserCreateAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)
	o := newTestOrg(t, db, "Acme")

	u := newTestUser(o.ID, "pat")
	require.NoError(t, repo.Create(ctx, u, "s3cret-pw", testBcryptCost))
	require.NotZero(t, u.ID)

	got, err := repo.GetByUsername(ctx, "pat")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, o.ID, got.OrganizationID)
	assert.True(t, utils.VerifyPassword(got.PasswordHash, "s3cret-pw"))
	assert.False(t, utils.VerifyPassword(got.PasswordHash, "wrong"))

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreateRequiredFields(t *testing.T) {
	db := newTestDB(t)
	err := NewUserRepo(db).Create(context.Background(), &model.User{}, "", testBcryptCost)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	for _, f := range []string{"email", "username", "password", "full_name", "phone_number", "organization_id", "role"} {
		assert.Contains(t, ve.Fields, f)
	}
}

func TestUserCreateRoleMustBeInOrgSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)
	o := newTestOrg(t, db, "Acme")

	u := newTestUser(o.ID, "pat")
	u.Role = "warlord"
	err := repo.Create(ctx, u, "s3cret-pw", testBcryptCost)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "role")

	// Unknown organization surfaces on the organization field, not as a
	// bare SQL error.
	u2 := newTestUser(999, "sam")
	err = repo.Create(ctx, u2, "s3cret-pw", testBcryptCost)
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "organization_id")
}

func TestUserCreateDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)
	o := newTestOrg(t, db, "Acme")

	require.NoError(t, repo.Create(ctx, newTestUser(o.ID, "pat"), "s3cret-pw", testBcryptCost))

	dup := newTestUser(o.ID, "pat2")
	dup.Email = "pat@acme.test"
	err := repo.Create(ctx, dup, "s3cret-pw", testBcryptCost)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "email")

	dup2 := newTestUser(o.ID, "pat")
	err = repo.Create(ctx, dup2, "s3cret-pw", testBcryptCost)
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "username")
}

func TestUserUpdateRevalidatesRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepo(db)
	o := newTestOrg(t, db, "Acme")

	u := newTestUser(o.ID, "pat")
	require.NoError(t, repo.Create(ctx, u, "s3cret-pw", testBcryptCost))

	u.Role = "admin"
	u.FullName = "Pat Q."
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "Pat Q.", got.FullName)

	u.Role = "warlord"
	err = repo.Update(ctx, u)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "role")
}
