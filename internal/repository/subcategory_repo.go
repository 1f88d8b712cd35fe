package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// SubCategoryRepo provides organization-scoped CRUD for item subcategories.
// A subcategory's parent category must belong to the same organization and
// (organization_id, category_id, name) is unique.
type SubCategoryRepo struct {
	db *sql.DB
}

func NewSubCategoryRepo(db *sql.DB) *SubCategoryRepo { return &SubCategoryRepo{db: db} }

// List returns the organization's subcategories in id order.  categoryID
// narrows the result to one parent category when non-zero.
func (r *SubCategoryRepo) List(ctx context.Context, orgID, categoryID uint64) ([]*model.ItemSubCategory, error) {
	q := `SELECT id, name, category_id, organization_id, created_at, updated_at
	      FROM item_subcategories WHERE organization_id = ?`
	args := []any{orgID}
	if categoryID != 0 {
		q += " AND category_id = ?"
		args = append(args, categoryID)
	}
	q += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.ItemSubCategory, 0)
	for rows.Next() {
		s := new(model.ItemSubCategory)
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID, &s.OrganizationID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a subcategory within the organization; cross-tenant ids
// yield ErrNotFound.
func (r *SubCategoryRepo) GetByID(ctx context.Context, orgID, id uint64) (*model.ItemSubCategory, error) {
	const q = `SELECT id, name, category_id, organization_id, created_at, updated_at
	           FROM item_subcategories WHERE id = ? AND organization_id = ?`
	var s model.ItemSubCategory
	if err := r.db.QueryRowContext(ctx, q, id, orgID).Scan(
		&s.ID, &s.Name, &s.CategoryID, &s.OrganizationID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new subcategory.  The parent category is verified to
// belong to the same organization inside the insert transaction.
func (r *SubCategoryRepo) Create(ctx context.Context, orgID, categoryID uint64, name string) (*model.ItemSubCategory, error) {
	name = strings.TrimSpace(name)
	ve := &ValidationError{Fields: map[string]string{}}
	if name == "" {
		ve.Add("name", "is required")
	}
	if categoryID == 0 {
		ve.Add("category", "is required")
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := checkCategoryTx(ctx, tx, orgID, categoryID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO item_subcategories (organization_id, category_id, name) VALUES (?,?,?)",
		orgID, categoryID, name)
	if err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return nil, NewValidationError("name", "already exists in this category")
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	s, err := getSubCategoryTx(ctx, tx, orgID, uint64(id))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// getSubCategoryTx reads the row back inside the write transaction so a
// failed re-read rolls the write back with it.
func getSubCategoryTx(ctx context.Context, tx *sql.Tx, orgID, id uint64) (*model.ItemSubCategory, error) {
	const q = `SELECT id, name, category_id, organization_id, created_at, updated_at
	           FROM item_subcategories WHERE id = ? AND organization_id = ?`
	var s model.ItemSubCategory
	if err := tx.QueryRowContext(ctx, q, id, orgID).Scan(
		&s.ID, &s.Name, &s.CategoryID, &s.OrganizationID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update rewrites a subcategory's name and parent category, re-running the
// same checks as Create against current organization state.
func (r *SubCategoryRepo) Update(ctx context.Context, orgID, id, categoryID uint64, name string) (*model.ItemSubCategory, error) {
	name = strings.TrimSpace(name)
	ve := &ValidationError{Fields: map[string]string{}}
	if name == "" {
		ve.Add("name", "is required")
	}
	if categoryID == 0 {
		ve.Add("category", "is required")
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var exists uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM item_subcategories WHERE id = ? AND organization_id = ?",
		id, orgID).Scan(&exists); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := checkCategoryTx(ctx, tx, orgID, categoryID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE item_subcategories SET name = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND organization_id = ?`, name, categoryID, id, orgID); err != nil {
		_ = tx.Rollback()
		if isDuplicate(err) {
			return nil, NewValidationError("name", "already exists in this category")
		}
		return nil, err
	}
	s, err := getSubCategoryTx(ctx, tx, orgID, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a subcategory within the organization.  One that items
// still point at is protected by the foreign key and rejected with a
// field-level validation error.
func (r *SubCategoryRepo) Delete(ctx context.Context, orgID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM item_subcategories WHERE id = ? AND organization_id = ?", id, orgID)
	if err != nil {
		if isReferenced(err) {
			return NewValidationError("subcategory", "is still referenced by items")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// checkCategoryTx verifies that the category exists inside the caller's
// organization.  The check runs in the write transaction so a concurrent
// category delete cannot produce a dangling reference.
func checkCategoryTx(ctx context.Context, tx *sql.Tx, orgID, categoryID uint64) error {
	var exists uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM item_categories WHERE id = ? AND organization_id = ?",
		categoryID, orgID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return NewValidationError("category", "does not exist in this organization")
	}
	return err
}
