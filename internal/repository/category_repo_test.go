package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db)
	o := newTestOrg(t, db, "Acme")

	created, err := repo.Create(ctx, o.ID, "Hardware")
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, o.ID, created.OrganizationID)

	renamed, err := repo.Update(ctx, o.ID, created.ID, "Tools")
	require.NoError(t, err)
	assert.Equal(t, "Tools", renamed.Name)

	all, err := repo.List(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Tools", all[0].Name)

	require.NoError(t, repo.Delete(ctx, o.ID, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, o.ID, created.ID), ErrNotFound)
}

func TestCategoryNameUniquePerOrganization(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db)
	a := newTestOrg(t, db, "Acme")
	b := newTestOrg(t, db, "Globex")

	_, err := repo.Create(ctx, a.ID, "Hardware")
	require.NoError(t, err)

	_, err = repo.Create(ctx, a.ID, "Hardware")
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "name")

	// The same name in another organization is a different row entirely.
	_, err = repo.Create(ctx, b.ID, "Hardware")
	assert.NoError(t, err)
}

func TestCategoryDeleteBlockedWhileReferenced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db)
	o := newTestOrg(t, db, "Acme")
	cat, sub := newTestCatalog(t, db, o.ID)

	// The subcategory still points at the category; the foreign key blocks
	// the delete and the caller gets a field-level error, not a fault.
	err := repo.Delete(ctx, o.ID, cat.ID)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "category")

	got, err := repo.GetByID(ctx, o.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hardware", got.Name)

	require.NoError(t, NewSubCategoryRepo(db).Delete(ctx, o.ID, sub.ID))
	assert.NoError(t, repo.Delete(ctx, o.ID, cat.ID))
}

func TestCategoryCrossTenantIsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db)
	a := newTestOrg(t, db, "Acme")
	b := newTestOrg(t, db, "Globex")

	cat, err := repo.Create(ctx, a.ID, "Hardware")
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, b.ID, cat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Update(ctx, b.ID, cat.ID, "Stolen")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, b.ID, cat.ID), ErrNotFound)

	// The owner still sees the untouched row.
	got, err := repo.GetByID(ctx, a.ID, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hardware", got.Name)
}
