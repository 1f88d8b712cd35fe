package handler_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

func listCategories(t *testing.T, ts *testServer, token string) []model.ItemCategory {
	t.Helper()
	rec := ts.do(t, "GET", "/v1/item-categories", token, nil)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	var out []model.ItemCategory
	decodeBody(t, rec, &out)
	return out
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	org := createOrg(t, ts, "Acme")
	s := register(t, ts, org, "pat", "member")

	rec := ts.do(t, "POST", "/v1/item-categories", s.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var created model.ItemCategory
	decodeBody(t, rec, &created)
	assert.Equal(t, "Doors", created.Name)

	got := listCategories(t, ts, s.Access.Token)
	require.Len(t, got, 1)
	assert.Equal(t, "Doors", got[0].Name)

	rec = ts.do(t, "PUT", fmt.Sprintf("/v1/item-categories/%d", created.ID), s.Access.Token,
		map[string]any{"name": "Windows"})
	require.Equal(t, 200, rec.Code)

	got = listCategories(t, ts, s.Access.Token)
	require.Len(t, got, 1)
	assert.Equal(t, "Windows", got[0].Name)

	rec = ts.do(t, "DELETE", fmt.Sprintf("/v1/item-categories/%d", created.ID), s.Access.Token, nil)
	require.Equal(t, 204, rec.Code)
	assert.Empty(t, listCategories(t, ts, s.Access.Token))
}

// TestCategoryCacheReadThrough proves both halves of the cache contract:
// repeated reads are served from the cache (a write that bypasses the
// handlers stays invisible), and a write through the handlers invalidates
// before responding.
func TestCategoryCacheReadThrough(t *testing.T) {
	ts := newTestServer(t)
	org := createOrg(t, ts, "Acme")
	s := register(t, ts, org, "pat", "member")

	rec := ts.do(t, "POST", "/v1/item-categories", s.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code)

	require.Len(t, listCategories(t, ts, s.Access.Token), 1)
	require.NotZero(t, ts.Store.Len())

	// Sneak a row in behind the handlers: the cached list must not see it.
	_, err := ts.DB.Exec(
		"INSERT INTO item_categories (organization_id, name) VALUES (?,?)", org, "Sneaky")
	require.NoError(t, err)
	assert.Len(t, listCategories(t, ts, s.Access.Token), 1)

	// A mutation through the API invalidates; the next read recomputes and
	// now also sees the sneaked row.
	rec = ts.do(t, "POST", "/v1/item-categories", s.Access.Token, map[string]any{"name": "Windows"})
	require.Equal(t, 201, rec.Code)
	assert.Len(t, listCategories(t, ts, s.Access.Token), 3)
}

func TestCategoryCacheIsPerOrganization(t *testing.T) {
	ts := newTestServer(t)
	orgA := createOrg(t, ts, "Acme")
	orgB := createOrg(t, ts, "Globex")
	a := register(t, ts, orgA, "pat", "member")
	b := register(t, ts, orgB, "sam", "member")

	rec := ts.do(t, "POST", "/v1/item-categories", a.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code)

	// Both tenants list; each sees only its own data even with warm caches.
	assert.Len(t, listCategories(t, ts, a.Access.Token), 1)
	assert.Empty(t, listCategories(t, ts, b.Access.Token))

	rec = ts.do(t, "POST", "/v1/item-categories", b.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code)
	assert.Len(t, listCategories(t, ts, a.Access.Token), 1)
	assert.Len(t, listCategories(t, ts, b.Access.Token), 1)
}

func TestSubCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	org := createOrg(t, ts, "Acme")
	s := register(t, ts, org, "pat", "member")

	rec := ts.do(t, "POST", "/v1/item-categories", s.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code)
	var cat model.ItemCategory
	decodeBody(t, rec, &cat)

	rec = ts.do(t, "POST", "/v1/item-subcategories", s.Access.Token,
		map[string]any{"name": "Hinges", "category": cat.ID})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var sub model.ItemSubCategory
	decodeBody(t, rec, &sub)
	assert.Equal(t, cat.ID, sub.CategoryID)

	// Filtered and unfiltered lists are distinct cache entries.
	rec = ts.do(t, "GET", fmt.Sprintf("/v1/item-subcategories?category=%d", cat.ID), s.Access.Token, nil)
	require.Equal(t, 200, rec.Code)
	var filtered []model.ItemSubCategory
	decodeBody(t, rec, &filtered)
	assert.Len(t, filtered, 1)

	rec = ts.do(t, "GET", "/v1/item-subcategories?category=999999", s.Access.Token, nil)
	require.Equal(t, 200, rec.Code)
	var none []model.ItemSubCategory
	decodeBody(t, rec, &none)
	assert.Empty(t, none)

	// Unknown parent is a field error, not a 500.
	rec = ts.do(t, "POST", "/v1/item-subcategories", s.Access.Token,
		map[string]any{"name": "Orphan", "category": 999999})
	assert.Equal(t, 400, rec.Code)
}

// A category that subcategories still point at must answer with a field
// error, not a server fault, and the row must survive.
func TestCategoryDeleteInUseIsFieldError(t *testing.T) {
	ts := newTestServer(t)
	org := createOrg(t, ts, "Acme")
	s := register(t, ts, org, "pat", "member")

	rec := ts.do(t, "POST", "/v1/item-categories", s.Access.Token, map[string]any{"name": "Doors"})
	require.Equal(t, 201, rec.Code)
	var cat model.ItemCategory
	decodeBody(t, rec, &cat)

	rec = ts.do(t, "POST", "/v1/item-subcategories", s.Access.Token,
		map[string]any{"name": "Hinges", "category": cat.ID})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var sub model.ItemSubCategory
	decodeBody(t, rec, &sub)

	rec = ts.do(t, "DELETE", fmt.Sprintf("/v1/item-categories/%d", cat.ID), s.Access.Token, nil)
	require.Equal(t, 400, rec.Code, rec.Body.String())
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Errors, "category")
	require.Len(t, listCategories(t, ts, s.Access.Token), 1)

	rec = ts.do(t, "DELETE", fmt.Sprintf("/v1/item-subcategories/%d", sub.ID), s.Access.Token, nil)
	require.Equal(t, 204, rec.Code)
	rec = ts.do(t, "DELETE", fmt.Sprintf("/v1/item-categories/%d", cat.ID), s.Access.Token, nil)
	require.Equal(t, 204, rec.Code)
	assert.Empty(t, listCategories(t, ts, s.Access.Token))
}
