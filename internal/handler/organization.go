package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/model"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// OrganizationHandler exposes tenant onboarding and settings management.
// Create is the only unauthenticated endpoint: a new tenant must exist
// before its first user can register.  Reads and updates are restricted to
// admins of the organization itself; any other id answers 404 so tenants
// cannot probe each other.
type OrganizationHandler struct {
	Resources
	Repo *repository.OrganizationRepo
}

func NewOrganizationHandler(rs Resources, repo *repository.OrganizationRepo) *OrganizationHandler {
	return &OrganizationHandler{Resources: rs, Repo: repo}
}

type organizationReq struct {
	Name          string   `json:"name"`
	Roles         []string `json:"roles"`
	ItemTags      []string `json:"item_tags"`
	ItemUsageTags []string `json:"item_usage_tags"`
}

// Post handles POST /v1/organizations.
func (h *OrganizationHandler) Post(c echo.Context) error {
	var req organizationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o := &model.Organization{
		Name:          req.Name,
		Roles:         req.Roles,
		ItemTags:      req.ItemTags,
		ItemUsageTags: req.ItemUsageTags,
	}
	if err := h.Repo.Create(ctx, o); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Get handles GET /v1/organizations/:id.  Only the caller's own
// organization is visible.
func (h *OrganizationHandler) Get(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id != org {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	key := cache.SingleKey(h.Prefix, org, cache.KindOrganization, id, url.Values{})
	return h.serveCached(c, key, func(ctx context.Context) (any, error) {
		return h.Repo.GetByID(ctx, id)
	})
}

// Put handles PUT /v1/organizations/:id.  Role removals that would orphan
// an existing user are rejected by the repository.
func (h *OrganizationHandler) Put(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id != org {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	var req organizationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	o := &model.Organization{
		ID:            id,
		Name:          req.Name,
		Roles:         req.Roles,
		ItemTags:      req.ItemTags,
		ItemUsageTags: req.ItemUsageTags,
	}
	if err := h.Repo.Update(ctx, o); err != nil {
		return respondError(c, err)
	}
	// Vocabulary changes affect what cached item payloads may legally
	// contain going forward, but existing items are untouched, so only
	// the organization entry itself is dropped.
	h.invalidate(ctx, org, cache.KindOrganization)

	out, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
