package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/config"
	"github.com/iliyamo/inventory-dashboard/internal/handler"
	"github.com/iliyamo/inventory-dashboard/internal/queue"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
	"github.com/iliyamo/inventory-dashboard/internal/router"
)

// handlerSchema is the repository test schema in SQLite dialect, repeated
// here because these tests run in an external package.
const handlerSchema = `
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

// testServer wires the full HTTP surface against an in-memory database and
// in-process cache.  Published inventory events are captured in Events
// instead of going to a broker.
type testServer struct {
	E      *echo.Echo
	DB     *sql.DB
	Store  *cache.MemoryStore
	Events []queue.InventoryChangedEvent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	// SQLite leaves foreign keys off unless asked; the single connection
	// keeps the pragma in force for the whole test.
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec(handlerSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}
	store := cache.NewMemoryStore()
	rs := handler.Resources{Store: store, Prefix: "inv", TTL: time.Minute}

	ts := &testServer{DB: db, Store: store}

	authHandler := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	orgHandler := handler.NewOrganizationHandler(rs, repository.NewOrganizationRepo(db))
	catHandler := handler.NewCategoryHandler(rs, repository.NewCategoryRepo(db))
	subHandler := handler.NewSubCategoryHandler(rs, repository.NewSubCategoryRepo(db))
	itemHandler := handler.NewItemHandler(rs, repository.NewItemRepo(db))
	itemHandler.Publish = func(_ context.Context, ev queue.InventoryChangedEvent) error {
		ts.Events = append(ts.Events, ev)
		return nil
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterOrganizations(e, orgHandler, cfg.JWTSecret)
	router.RegisterResources(e, cfg.JWTSecret, catHandler, subHandler, itemHandler)
	ts.E = e
	return ts
}

// do performs one request against the test server.  token may be empty for
// unauthenticated calls; a non-nil body is sent as JSON.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.E.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals a response body into out.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// session is what the auth endpoints hand back, trimmed to the parts the
// tests use.
type session struct {
	UserID  uint64 `json:"user_id"`
	Access  struct{ Token string }
	Refresh struct{ Token string }
}

// createOrg provisions a tenant through the API and returns its id.
func createOrg(t *testing.T, ts *testServer, name string) uint64 {
	t.Helper()
	rec := ts.do(t, "POST", "/v1/organizations", "", map[string]any{
		"name":            name,
		"roles":           []string{"admin", "member"},
		"item_tags":       []string{"fragile", "bulk", "bolt"},
		"item_usage_tags": []string{"assembly", "retail"},
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var out struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, rec, &out)
	return out.ID
}

// register creates a user through the API and returns the issued session.
func register(t *testing.T, ts *testServer, orgID uint64, username, role string) session {
	t.Helper()
	rec := ts.do(t, "POST", "/v1/auth/register", "", map[string]any{
		"email":           username + "@test.local",
		"username":        username,
		"password":        "s3cret-pw",
		"full_name":       "Test " + username,
		"phone_number":    "555-0100",
		"organization_id": orgID,
		"role":            role,
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var s session
	decodeBody(t, rec, &s)
	return s
}
