// Package queue defines message payloads exchanged over the message broker.
package queue

// InventoryChangedEvent is published after an item mutation commits.  It
// carries enough information for downstream consumers (stock dashboards,
// reorder alerts, analytics) to react without querying the primary
// database.  Action is one of "created", "updated" or "deleted".
type InventoryChangedEvent struct {
	OrganizationID   uint64 `json:"organization_id"`
	ItemID           uint64 `json:"item_id"`
	StockKeepingUnit string `json:"stock_keeping_unit"`
	Name             string `json:"name"`
	Action           string `json:"action"`
	AvailableStock   int64  `json:"available_stock"`
	MinimumStock     int64  `json:"minimum_stock"`
	OccurredAt       string `json:"occurred_at"`
}
