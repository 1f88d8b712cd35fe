package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// CategoryHandler exposes the five CRUD operations for item categories.
// Reads go through the cache; every mutation writes through the repository
// and then invalidates the organization's category entries before
// responding.
type CategoryHandler struct {
	Resources
	Repo *repository.CategoryRepo
}

func NewCategoryHandler(rs Resources, repo *repository.CategoryRepo) *CategoryHandler {
	return &CategoryHandler{Resources: rs, Repo: repo}
}

type categoryReq struct {
	Name string `json:"name"`
}

// Get handles GET /v1/item-categories and GET /v1/item-categories/:id.
func (h *CategoryHandler) Get(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	if c.Param("id") != "" {
		id, err := idParam(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		key := cache.SingleKey(h.Prefix, org, cache.KindItemCategory, id, url.Values{})
		return h.serveCached(c, key, func(ctx context.Context) (any, error) {
			return h.Repo.GetByID(ctx, org, id)
		})
	}

	key := cache.ListKey(h.Prefix, org, cache.KindItemCategory, url.Values{})
	return h.serveCached(c, key, func(ctx context.Context) (any, error) {
		return h.Repo.List(ctx, org)
	})
}

// Post handles POST /v1/item-categories.
func (h *CategoryHandler) Post(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cat, err := h.Repo.Create(ctx, org, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItemCategory)
	return c.JSON(http.StatusCreated, cat)
}

// Put handles PUT /v1/item-categories/:id.
func (h *CategoryHandler) Put(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cat, err := h.Repo.Update(ctx, org, id, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItemCategory)
	return c.JSON(http.StatusOK, cat)
}

// Delete handles DELETE /v1/item-categories/:id.
func (h *CategoryHandler) Delete(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Repo.Delete(ctx, org, id); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItemCategory)
	return c.NoContent(http.StatusNoContent)
}
