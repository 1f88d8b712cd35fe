// Package handler defines HTTP handlers.  This file holds the pieces
// shared by every resource handler: identity extraction from the request
// context, the read-through cache helper and the error-to-status mapping.
// Each resource kind (category, subcategory, item) implements the same five
// operations on top of these helpers instead of repeating the plumbing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// Resources bundles the cache configuration every resource handler embeds.
type Resources struct {
	Store  cache.Store
	Prefix string
	TTL    time.Duration
}

// orgID extracts the caller's organization from the context populated by
// the JWT middleware.  Handlers never accept an organization from the
// request itself.
func orgID(c echo.Context) (uint64, error) {
	if v, ok := c.Get("org_id").(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("missing org_id in context")
}

// userID extracts the authenticated user's id from the context.
func userID(c echo.Context) (uint64, error) {
	if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("missing user_id in context")
}

// idParam parses the :id path parameter.
func idParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// serveCached renders a read through the cache: on a hit the cached JSON
// body is replayed verbatim; on a miss fetch runs against the repository
// and the marshaled result is stored before being returned.  Cache store
// failures are already absorbed by the Store implementations, so the only
// errors surfacing here come from the source of truth.
func (rs Resources) serveCached(c echo.Context, key string, fetch func(ctx context.Context) (any, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if body, ok := rs.Store.Get(ctx, key); ok {
		return c.JSONBlob(http.StatusOK, body)
	}

	out, err := fetch(ctx)
	if err != nil {
		return respondError(c, err)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return respondError(c, err)
	}
	rs.Store.Set(ctx, key, body, rs.TTL)
	return c.JSONBlob(http.StatusOK, body)
}

// invalidate removes every cache entry the organization holds for the
// resource kind.  It runs synchronously on every mutation, before the
// response is written, so the next read recomputes from the repositories.
func (rs Resources) invalidate(ctx context.Context, org uint64, kind string) {
	rs.Store.DeletePrefix(ctx, cache.KindPrefix(rs.Prefix, org, kind))
}

// respondError maps repository failures onto the HTTP error taxonomy:
// field-level violations become 400 with the offending fields, missing or
// cross-tenant ids become 404, anything else is a 500 without internals.
func respondError(c echo.Context, err error) error {
	if ve, ok := repository.AsValidation(err); ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": ve.Fields})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
