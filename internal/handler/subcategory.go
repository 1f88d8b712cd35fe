package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// SubCategoryHandler exposes CRUD for item subcategories.  The list
// endpoint accepts ?category=<id>; the query shape is part of the cache
// key so filtered and unfiltered lists do not collide.
type SubCategoryHandler struct {
	Resources
	Repo *repository.SubCategoryRepo
}

func NewSubCategoryHandler(rs Resources, repo *repository.SubCategoryRepo) *SubCategoryHandler {
	return &SubCategoryHandler{Resources: rs, Repo: repo}
}

type subCategoryReq struct {
	Name       string `json:"name"`
	CategoryID uint64 `json:"category"`
}

// Get handles GET /v1/item-subcategories[?category=<id>] and
// GET /v1/item-subcategories/:id.
func (h *SubCategoryHandler) Get(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	params := c.QueryParams()

	if c.Param("id") != "" {
		id, err := idParam(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		key := cache.SingleKey(h.Prefix, org, cache.KindItemSubCategory, id, params)
		return h.serveCached(c, key, func(ctx context.Context) (any, error) {
			return h.Repo.GetByID(ctx, org, id)
		})
	}

	var categoryID uint64
	if raw := c.QueryParam("category"); raw != "" {
		categoryID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"category": "must be an id"}})
		}
	}

	key := cache.ListKey(h.Prefix, org, cache.KindItemSubCategory, params)
	return h.serveCached(c, key, func(ctx context.Context) (any, error) {
		return h.Repo.List(ctx, org, categoryID)
	})
}

// Post handles POST /v1/item-subcategories.
func (h *SubCategoryHandler) Post(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req subCategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sub, err := h.Repo.Create(ctx, org, req.CategoryID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItemSubCategory)
	return c.JSON(http.StatusCreated, sub)
}

// Put handles PUT /v1/item-subcategories/:id.
func (h *SubCategoryHandler) Put(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req subCategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sub, err := h.Repo.Update(ctx, org, id, req.CategoryID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItemSubCategory)
	return c.JSON(http.StatusOK, sub)
}

// Delete handles DELETE /v1/item-subcategories/:id.
func (h *SubCategoryHandler) Delete(c echo.Context) error {
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
	h.invalidate(ctx, org, cache.KindItemSubCategory)
	return c.NoContent(http.StatusNoContent)
}
