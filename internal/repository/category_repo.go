package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// CategoryRepo provides organization-scoped CRUD for item categories.
// (organization_id, name) is unique; the same name may exist in two
// different organizations.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories of an organization in id order.
func (r *CategoryRepo) List(ctx context.Context, orgID uint64) ([]*model.ItemCategory, error) {
	const q = `SELECT id, name, organization_id, created_at, updated_at
	           FROM item_categories WHERE organization_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.ItemCategory, 0)
	for rows.Next() {
		c := new(model.ItemCategory)
		if err := rows.Scan(&c.ID, &c.Name, &c.OrganizationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a category by id within the organization.  A category
// owned by another organization yields ErrNotFound.
func (r *CategoryRepo) GetByID(ctx context.Context, orgID, id uint64) (*model.ItemCategory, error) {
	const q = `SELECT id, name, organization_id, created_at, updated_at
	           FROM item_categories WHERE id = ? AND organization_id = ?`
	var c model.ItemCategory
	if err := r.db.QueryRowContext(ctx, q, id, orgID).Scan(
		&c.ID, &c.Name, &c.OrganizationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new category for the organization.  A duplicate name
// within the same organization is rejected with a ValidationError.
func (r *CategoryRepo) Create(ctx context.Context, orgID uint64, name string) (*model.ItemCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO item_categories (organization_id, name) VALUES (?,?)", orgID, name)
	if err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return nil, NewValidationError("name", "already exists in this organization")
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	c, err := getCategoryTx(ctx, tx, orgID, uint64(id))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// getCategoryTx reads the row back inside the write transaction so a
// failed re-read rolls the write back with it.
func getCategoryTx(ctx context.Context, tx *sql.Tx, orgID, id uint64) (*model.ItemCategory, error) {
	const q = `SELECT id, name, organization_id, created_at, updated_at
	           FROM item_categories WHERE id = ? AND organization_id = ?`
	var c model.ItemCategory
	if err := tx.QueryRowContext(ctx, q, id, orgID).Scan(
		&c.ID, &c.Name, &c.OrganizationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update renames a category.  The row is fetched inside the transaction so
// not-found and cross-tenant access are reported before the uniqueness
// check runs.
func (r *CategoryRepo) Update(ctx context.Context, orgID, id uint64, name string) (*model.ItemCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var exists uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM item_categories WHERE id = ? AND organization_id = ?",
		id, orgID).Scan(&exists); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE item_categories SET name = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND organization_id = ?`, name, id, orgID); err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return nil, NewValidationError("name", "already exists in this organization")
		}
		return nil, err
	}
	c, err := getCategoryTx(ctx, tx, orgID, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category within the organization.  ErrNotFound covers
// both a missing id and a cross-tenant id.  A category that subcategories
// or items still point at is protected by the foreign keys; the violation
// surfaces as a field-level validation error, not a server fault.
func (r *CategoryRepo) Delete(ctx context.Context, orgID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM item_categories WHERE id = ? AND organization_id = ?", id, orgID)
	if err != nil {
		if isReferenced(err) {
			return NewValidationError("category", "is still referenced by subcategories or items")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
