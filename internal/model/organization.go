// Package model defines the entity types shared by the repository and
// handler layers. Each struct mirrors a database table; set-valued columns
// (roles, tag vocabularies, item tags) are stored as JSON text and decoded
// into string slices by the repositories.
package model

// Organization is the tenant boundary. Every user and every catalog
// resource belongs to exactly one organization, and all queries are
// pre-scoped by its ID before any other predicate applies.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – human-friendly tenant name.
//  Roles         – allowed role names for the tenant's users; must be
//                  non-empty and always contain "admin".
//  ItemTags      – allow-list of tags an item may carry.
//  ItemUsageTags – allow-list of usage tags an item may carry.
type Organization struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	Roles         []string `json:"roles"`
	ItemTags      []string `json:"item_tags"`
	ItemUsageTags []string `json:"item_usage_tags"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}
