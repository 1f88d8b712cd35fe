package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/model"
	"github.com/iliyamo/inventory-dashboard/internal/queue"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
)

// ItemHandler exposes CRUD for items.  The list endpoint understands the
// direct/contains/range filter parameters; the full query shape feeds the
// cache key.  After a mutation commits and the cache is invalidated, an
// inventory.changed event is published best-effort when a publisher is
// configured.
type ItemHandler struct {
	Resources
	Repo *repository.ItemRepo
	// Publish sends a domain event after a successful mutation.  A nil
	// Publish disables events; a returned error is ignored because the
	// broker is not part of the request's correctness.
	Publish func(ctx context.Context, ev queue.InventoryChangedEvent) error
}

func NewItemHandler(rs Resources, repo *repository.ItemRepo) *ItemHandler {
	return &ItemHandler{Resources: rs, Repo: repo}
}

type itemReq struct {
	Name              string   `json:"name"`
	CategoryID        uint64   `json:"category"`
	SubCategoryID     uint64   `json:"subcategory"`
	Description       string   `json:"description"`
	StockKeepingUnit  string   `json:"stock_keeping_unit"`
	StockStatus       string   `json:"stock_status"`
	AllocatedToSales  int64    `json:"allocated_to_sales"`
	AllocatedToBuilds int64    `json:"allocated_to_builds"`
	AvailableStock    int64    `json:"available_stock"`
	IncomingStock     int64    `json:"incoming_stock"`
	MinimumStock      int64    `json:"minimum_stock"`
	DesiredStock      int64    `json:"desired_stock"`
	OnBuildOrder      int64    `json:"on_build_order"`
	CanBuild          int64    `json:"can_build"`
	Cost              float64  `json:"cost"`
	Tags              []string `json:"tags"`
	UsageTags         []string `json:"usage_tags"`
}

// toModel maps the request body onto an item owned by org.  The decimal
// cost is carried into cents only when non-negative; the repository
// rejects negative values before the cents are ever used.
func (req itemReq) toModel(org uint64) *model.Item {
	it := &model.Item{
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		SubCategoryID:     req.SubCategoryID,
		OrganizationID:    org,
		Description:       req.Description,
		StockKeepingUnit:  req.StockKeepingUnit,
		StockStatus:       req.StockStatus,
		AllocatedToSales:  req.AllocatedToSales,
		AllocatedToBuilds: req.AllocatedToBuilds,
		AvailableStock:    req.AvailableStock,
		IncomingStock:     req.IncomingStock,
		MinimumStock:      req.MinimumStock,
		DesiredStock:      req.DesiredStock,
		OnBuildOrder:      req.OnBuildOrder,
		CanBuild:          req.CanBuild,
		Cost:              req.Cost,
		Tags:              req.Tags,
		UsageTags:         req.UsageTags,
	}
	if req.Cost >= 0 {
		it.CostCents = uint64(math.Round(req.Cost * 100))
	}
	return it
}

// Get handles GET /v1/items (with filter parameters) and GET /v1/items/:id.
func (h *ItemHandler) Get(c echo.Context) error {
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
		key := cache.SingleKey(h.Prefix, org, cache.KindItem, id, params)
		return h.serveCached(c, key, func(ctx context.Context) (any, error) {
			return h.Repo.GetByID(ctx, org, id)
		})
	}

	q, err := repository.ParseItemQuery(params)
	if err != nil {
		return respondError(c, err)
	}
	key := cache.ListKey(h.Prefix, org, cache.KindItem, params)
	return h.serveCached(c, key, func(ctx context.Context) (any, error) {
		return h.Repo.List(ctx, org, q)
	})
}

// Post handles POST /v1/items.
func (h *ItemHandler) Post(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	it := req.toModel(org)
	if err := h.Repo.Create(ctx, it); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItem)
	h.publishChange(ctx, it, "created")
	return c.JSON(http.StatusCreated, it)
}

// Put handles PUT /v1/items/:id.
func (h *ItemHandler) Put(c echo.Context) error {
	org, err := orgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	it := req.toModel(org)
	it.ID = id
	if err := h.Repo.Update(ctx, it); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItem)
	h.publishChange(ctx, it, "updated")
	return c.JSON(http.StatusOK, it)
}

// Delete handles DELETE /v1/items/:id.
func (h *ItemHandler) Delete(c echo.Context) error {
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

	it, err := h.Repo.GetByID(ctx, org, id)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Repo.Delete(ctx, org, id); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx, org, cache.KindItem)
	h.publishChange(ctx, it, "deleted")
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) publishChange(ctx context.Context, it *model.Item, action string) {
	if h.Publish == nil {
		return
	}
	_ = h.Publish(ctx, queue.InventoryChangedEvent{
		OrganizationID:   it.OrganizationID,
		ItemID:           it.ID,
		StockKeepingUnit: it.StockKeepingUnit,
		Name:             it.Name,
		Action:           action,
		AvailableStock:   it.AvailableStock,
		MinimumStock:     it.MinimumStock,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	})
}
