package model

// ItemCategory groups items inside one organization. The pair
// (organization_id, name) is unique.
type ItemCategory struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	OrganizationID uint64 `json:"organization"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// ItemSubCategory refines a category. Its parent category must belong to
// the same organization and (organization_id, category_id, name) is unique.
type ItemSubCategory struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	CategoryID     uint64 `json:"category"`
	OrganizationID uint64 `json:"organization"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// Item is a catalog entry owned by an organization. The SKU is globally
// unique, (organization_id, category_id, sub_category_id, name) is unique,
// all stock counters are non-negative, cost is stored in cents, and every
// tag / usage tag must be a member of the owning organization's vocabulary
// at the time of each write.
//
// The JSON field names intentionally match the query-parameter names the
// item filter understands (category, subcategory, stock_status, the stock
// counters and cost).
type Item struct {
	ID                uint64   `json:"id"`
	Name              string   `json:"name"`
	CategoryID        uint64   `json:"category"`
	SubCategoryID     uint64   `json:"subcategory"`
	OrganizationID    uint64   `json:"organization"`
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
	CostCents         uint64   `json:"-"`
	Cost              float64  `json:"cost"`
	Tags              []string `json:"tags"`
	UsageTags         []string `json:"usage_tags"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}
