package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// testSchema mirrors schema.sql in SQLite dialect.  The repositories stick
// to portable SQL (? placeholders, time arguments instead of NOW()), so
// the whole suite runs against an in-memory database.
const testSchema = `
CREATE TABLE organizations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	roles           TEXT NOT NULL,
	item_tags       TEXT NOT NULL,
	item_usage_tags TEXT NOT NULL,
	created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	email           TEXT NOT NULL UNIQUE,
	username        TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	full_name       TEXT NOT NULL,
	phone_number    TEXT NOT NULL DEFAULT '',
	organization_id INTEGER NOT NULL REFERENCES organizations (id),
	role            TEXT NOT NULL,
	created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE refresh_tokens (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users (id),
	token_hash TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	revoked_at TEXT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE item_categories (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL REFERENCES organizations (id),
	name            TEXT NOT NULL,
	created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (organization_id, name)
);
CREATE TABLE item_subcategories (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL REFERENCES organizations (id),
	category_id     INTEGER NOT NULL REFERENCES item_categories (id),
	name            TEXT NOT NULL,
	created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (organization_id, category_id, name)
);
CREATE TABLE items (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id     INTEGER NOT NULL REFERENCES organizations (id),
	category_id         INTEGER NOT NULL REFERENCES item_categories (id),
	sub_category_id     INTEGER NOT NULL REFERENCES item_subcategories (id),
	name                TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	stock_keeping_unit  TEXT NOT NULL UNIQUE,
	stock_status        TEXT NOT NULL DEFAULT '',
	allocated_to_sales  INTEGER NOT NULL DEFAULT 0,
	allocated_to_builds INTEGER NOT NULL DEFAULT 0,
	available_stock     INTEGER NOT NULL DEFAULT 0,
	incoming_stock      INTEGER NOT NULL DEFAULT 0,
	minimum_stock       INTEGER NOT NULL DEFAULT 0,
	desired_stock       INTEGER NOT NULL DEFAULT 0,
	on_build_order      INTEGER NOT NULL DEFAULT 0,
	can_build           INTEGER NOT NULL DEFAULT 0,
	cost_cents          INTEGER NOT NULL DEFAULT 0,
	tags                TEXT NOT NULL DEFAULT '[]',
	usage_tags          TEXT NOT NULL DEFAULT '[]',
	created_at          TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at          TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (organization_id, category_id, sub_category_id, name)
);
`

// newTestDB opens a fresh in-memory database.  A single connection keeps
// every query on the same in-memory instance.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	// SQLite leaves foreign keys off unless asked; the single connection
	// keeps the pragma in force for the whole test.
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestOrg creates an organization with a typical role set and tag
// vocabularies and returns it.
func newTestOrg(t *testing.T, db *sql.DB, name string) *model.Organization {
	t.Helper()
	o := &model.Organization{
		Name:          name,
		Roles:         []string{"admin", "member"},
		ItemTags:      []string{"fragile", "bulk", "bolt"},
		ItemUsageTags: []string{"assembly", "retail"},
	}
	require.NoError(t, NewOrganizationRepo(db).Create(context.Background(), o))
	return o
}

// newTestCatalog creates one category and one subcategory under it.
func newTestCatalog(t *testing.T, db *sql.DB, orgID uint64) (*model.ItemCategory, *model.ItemSubCategory) {
	t.Helper()
	ctx := context.Background()
	cat, err := NewCategoryRepo(db).Create(ctx, orgID, "Hardware")
	require.NoError(t, err)
	sub, err := NewSubCategoryRepo(db).Create(ctx, orgID, cat.ID, "Fasteners")
	require.NoError(t, err)
	return cat, sub
}
