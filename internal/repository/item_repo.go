package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// ItemRepo persists catalog items.  Create and Update re-run every entity
// invariant inside one transaction against the organization's current
// state: referential consistency of category and subcategory, tag and
// usage-tag membership in the live vocabulary, non-negative stock counters
// and the two uniqueness rules.  On any violation the transaction rolls
// back and a ValidationError naming the offending fields is returned.
type ItemRepo struct {
	db *sql.DB
}

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

const itemColumns = `id, organization_id, category_id, sub_category_id, name, description,
	stock_keeping_unit, stock_status, allocated_to_sales, allocated_to_builds,
	available_stock, incoming_stock, minimum_stock, desired_stock, on_build_order,
	can_build, cost_cents, tags, usage_tags, created_at, updated_at`

// scanItem reads one items row, decoding the JSON tag sets and deriving the
// decimal cost from the stored cents.
func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	var (
		it          model.Item
		tags, usage string
	)
	err := row.Scan(&it.ID, &it.OrganizationID, &it.CategoryID, &it.SubCategoryID,
		&it.Name, &it.Description, &it.StockKeepingUnit, &it.StockStatus,
		&it.AllocatedToSales, &it.AllocatedToBuilds, &it.AvailableStock,
		&it.IncomingStock, &it.MinimumStock, &it.DesiredStock, &it.OnBuildOrder,
		&it.CanBuild, &it.CostCents, &tags, &usage, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if it.Tags, err = decodeSet(tags); err != nil {
		return nil, err
	}
	if it.UsageTags, err = decodeSet(usage); err != nil {
		return nil, err
	}
	it.Cost = float64(it.CostCents) / 100.0
	return &it, nil
}

// List returns the organization's items matching the compiled query, in id
// order.  Direct and range predicates run in SQL; contains predicates are
// applied against the decoded tag sets after scanning.
func (r *ItemRepo) List(ctx context.Context, orgID uint64, q *ItemQuery) ([]*model.Item, error) {
	if q == nil {
		q = &ItemQuery{}
	}
	where, args := q.whereSQL()
	query := "SELECT " + itemColumns + " FROM items WHERE organization_id = ?" + where + " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, append([]any{orgID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if q.matches(it) {
			out = append(out, it)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches an item within the organization; cross-tenant ids yield
// ErrNotFound.
func (r *ItemRepo) GetByID(ctx context.Context, orgID, id uint64) (*model.Item, error) {
	const q = "SELECT " + itemColumns + " FROM items WHERE id = ? AND organization_id = ?"
	it, err := scanItem(r.db.QueryRowContext(ctx, q, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

// Create validates and inserts a new item.  it.OrganizationID must already
// carry the caller's organization.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	if err := validateItemFields(it); err != nil {
		return err
	}
	tags, err := encodeSet(it.Tags)
	if err != nil {
		return err
	}
	usage, err := encodeSet(it.UsageTags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := checkItemInvariantsTx(ctx, tx, it); err != nil {
		_ = tx.Rollback()
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (organization_id, category_id, sub_category_id, name, description,
		 stock_keeping_unit, stock_status, allocated_to_sales, allocated_to_builds,
		 available_stock, incoming_stock, minimum_stock, desired_stock, on_build_order,
		 can_build, cost_cents, tags, usage_tags)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.OrganizationID, it.CategoryID, it.SubCategoryID, it.Name, it.Description,
		it.StockKeepingUnit, it.StockStatus, it.AllocatedToSales, it.AllocatedToBuilds,
		it.AvailableStock, it.IncomingStock, it.MinimumStock, it.DesiredStock,
		it.OnBuildOrder, it.CanBuild, it.CostCents, tags, usage)
	if err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return duplicateItemError(err)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	// Read the stored row back before committing: a failed re-read rolls
	// the insert back, so the caller never misses a persisted write.
	fresh, err := scanItem(tx.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ? AND organization_id = ?",
		id, it.OrganizationID))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*it = *fresh
	return nil
}

// Update validates and rewrites an existing item within the organization.
func (r *ItemRepo) Update(ctx context.Context, it *model.Item) error {
	if err := validateItemFields(it); err != nil {
		return err
	}
	tags, err := encodeSet(it.Tags)
	if err != nil {
		return err
	}
	usage, err := encodeSet(it.UsageTags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var exists uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM items WHERE id = ? AND organization_id = ?",
		it.ID, it.OrganizationID).Scan(&exists); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := checkItemInvariantsTx(ctx, tx, it); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET category_id = ?, sub_category_id = ?, name = ?, description = ?,
		 stock_keeping_unit = ?, stock_status = ?, allocated_to_sales = ?, allocated_to_builds = ?,
		 available_stock = ?, incoming_stock = ?, minimum_stock = ?, desired_stock = ?,
		 on_build_order = ?, can_build = ?, cost_cents = ?, tags = ?, usage_tags = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND organization_id = ?`,
		it.CategoryID, it.SubCategoryID, it.Name, it.Description,
		it.StockKeepingUnit, it.StockStatus, it.AllocatedToSales, it.AllocatedToBuilds,
		it.AvailableStock, it.IncomingStock, it.MinimumStock, it.DesiredStock,
		it.OnBuildOrder, it.CanBuild, it.CostCents, tags, usage,
		it.ID, it.OrganizationID); err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return duplicateItemError(err)
		}
		return err
	}
	fresh, err := scanItem(tx.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ? AND organization_id = ?",
		it.ID, it.OrganizationID))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*it = *fresh
	return nil
}

// Delete removes an item within the organization.
func (r *ItemRepo) Delete(ctx context.Context, orgID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM items WHERE id = ? AND organization_id = ?", id, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// validateItemFields covers the checks that need no database state:
// required fields and non-negative counters.
func validateItemFields(it *model.Item) error {
	ve := &ValidationError{Fields: map[string]string{}}
	it.Name = strings.TrimSpace(it.Name)
	it.StockKeepingUnit = strings.TrimSpace(it.StockKeepingUnit)
	if it.Name == "" {
		ve.Add("name", "is required")
	}
	if it.StockKeepingUnit == "" {
		ve.Add("stock_keeping_unit", "is required")
	}
	if it.CategoryID == 0 {
		ve.Add("category", "is required")
	}
	if it.SubCategoryID == 0 {
		ve.Add("subcategory", "is required")
	}
	counters := map[string]int64{
		"allocated_to_sales":  it.AllocatedToSales,
		"allocated_to_builds": it.AllocatedToBuilds,
		"available_stock":     it.AvailableStock,
		"incoming_stock":      it.IncomingStock,
		"minimum_stock":       it.MinimumStock,
		"desired_stock":       it.DesiredStock,
		"on_build_order":      it.OnBuildOrder,
		"can_build":           it.CanBuild,
	}
	for field, v := range counters {
		if v < 0 {
			ve.Add(field, "must be non-negative")
		}
	}
	if it.Cost < 0 {
		ve.Add("cost", "must be non-negative")
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// checkItemInvariantsTx re-validates the item's references against current
// organization state inside the write transaction: the vocabulary check
// re-fetches the organization row on every save, never a cached copy.
func checkItemInvariantsTx(ctx context.Context, tx *sql.Tx, it *model.Item) error {
	var rawTags, rawUsage string
	if err := tx.QueryRowContext(ctx,
		"SELECT item_tags, item_usage_tags FROM organizations WHERE id = ?",
		it.OrganizationID).Scan(&rawTags, &rawUsage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewValidationError("organization", "does not exist")
		}
		return err
	}
	vocabTags, err := decodeSet(rawTags)
	if err != nil {
		return err
	}
	vocabUsage, err := decodeSet(rawUsage)
	if err != nil {
		return err
	}

	ve := &ValidationError{Fields: map[string]string{}}
	if off := missingFromVocabulary(it.Tags, vocabTags); len(off) > 0 {
		ve.Add("tags", "not in organization vocabulary: "+strings.Join(off, ", "))
	}
	if off := missingFromVocabulary(it.UsageTags, vocabUsage); len(off) > 0 {
		ve.Add("usage_tags", "not in organization vocabulary: "+strings.Join(off, ", "))
	}
	if len(ve.Fields) > 0 {
		return ve
	}

	if err := checkCategoryTx(ctx, tx, it.OrganizationID, it.CategoryID); err != nil {
		return err
	}
	var parentCategory uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT category_id FROM item_subcategories WHERE id = ? AND organization_id = ?",
		it.SubCategoryID, it.OrganizationID).Scan(&parentCategory); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewValidationError("subcategory", "does not exist in this organization")
		}
		return err
	}
	if parentCategory != it.CategoryID {
		return NewValidationError("subcategory",
			fmt.Sprintf("belongs to category %d, not %d", parentCategory, it.CategoryID))
	}
	return nil
}

// missingFromVocabulary returns the entries of tags absent from vocab, in
// input order.
func missingFromVocabulary(tags, vocab []string) []string {
	allowed := make(map[string]bool, len(vocab))
	for _, v := range vocab {
		allowed[v] = true
	}
	var off []string
	for _, t := range tags {
		if !allowed[t] {
			off = append(off, t)
		}
	}
	return off
}

// duplicateItemError maps a unique-key violation onto the field the key
// protects: the global SKU key or the per-organization name key.
func duplicateItemError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "sku") || strings.Contains(msg, "stock_keeping_unit") {
		return NewValidationError("stock_keeping_unit", "already exists")
	}
	return NewValidationError("name", "already exists in this category")
}
