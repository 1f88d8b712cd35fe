// This file defines the OrganizationRepo.  Organizations are the tenant
// boundary: they own the role set their users may carry and the tag
// vocabularies their items may reference.  Both are stored as JSON string
// sets and validated on every write.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
)

// AdminRole is the role every organization must keep in its role set.
const AdminRole = "admin"

// OrganizationRepo encapsulates all database access for organizations.
type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo constructs an OrganizationRepo with the provided DB
// handle, allowing dependency injection in tests and at startup.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

// ValidateRoles checks that roles is a well-formed, non-empty string set
// containing the admin role.  It returns a ValidationError describing the
// problem, or nil when the set is acceptable.
func ValidateRoles(roles []string) error {
	if len(roles) == 0 {
		return NewValidationError("roles", "must be a non-empty list")
	}
	if err := ValidateVocabulary(roles, "roles"); err != nil {
		return err
	}
	for _, r := range roles {
		if r == AdminRole {
			return nil
		}
	}
	return NewValidationError("roles", `must contain an "admin" role`)
}

// ValidateVocabulary checks that tags is a well-formed string set: no blank
// entries and no duplicates.  field names the offending column in the
// returned ValidationError.
func ValidateVocabulary(tags []string, field string) error {
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return NewValidationError(field, "must not contain blank entries")
		}
		if seen[t] {
			return NewValidationError(field, fmt.Sprintf("duplicate entry %q", t))
		}
		seen[t] = true
	}
	return nil
}

// encodeSet serializes a string set column.  A nil slice is stored as an
// empty JSON array rather than SQL NULL.
func encodeSet(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeSet parses a string set column.
func decodeSet(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var s []string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new organization after validating its role set and tag
// vocabularies.  On success the ID and timestamp fields are populated.
func (r *OrganizationRepo) Create(ctx context.Context, o *model.Organization) error {
	if strings.TrimSpace(o.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if err := ValidateRoles(o.Roles); err != nil {
		return err
	}
	if err := ValidateVocabulary(o.ItemTags, "item_tags"); err != nil {
		return err
	}
	if err := ValidateVocabulary(o.ItemUsageTags, "item_usage_tags"); err != nil {
		return err
	}

	roles, err := encodeSet(o.Roles)
	if err != nil {
		return err
	}
	tags, err := encodeSet(o.ItemTags)
	if err != nil {
		return err
	}
	usage, err := encodeSet(o.ItemUsageTags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO organizations (name, roles, item_tags, item_usage_tags) VALUES (?,?,?,?)",
		o.Name, roles, tags, usage)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	const q = "SELECT created_at, updated_at FROM organizations WHERE id = ?"
	return r.db.QueryRowContext(ctx, q, o.ID).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// GetByID fetches an organization by its ID.  ErrNotFound is returned when
// no row exists.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (*model.Organization, error) {
	const q = `SELECT id, name, roles, item_tags, item_usage_tags, created_at, updated_at
	           FROM organizations WHERE id = ?`
	var (
		o                  model.Organization
		roles, tags, usage string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.Name, &roles, &tags, &usage, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.Roles, err = decodeSet(roles); err != nil {
		return nil, err
	}
	if o.ItemTags, err = decodeSet(tags); err != nil {
		return nil, err
	}
	if o.ItemUsageTags, err = decodeSet(usage); err != nil {
		return nil, err
	}
	return &o, nil
}

// Update rewrites an organization's name, role set and tag vocabularies.
// The new role set must still be valid, and shrinking it is rejected when
// any existing user carries a role that would fall outside the new set: the
// user/role invariant is enforced atomically from whichever side mutates.
func (r *OrganizationRepo) Update(ctx context.Context, o *model.Organization) error {
	if strings.TrimSpace(o.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if err := ValidateRoles(o.Roles); err != nil {
		return err
	}
	if err := ValidateVocabulary(o.ItemTags, "item_tags"); err != nil {
		return err
	}
	if err := ValidateVocabulary(o.ItemUsageTags, "item_usage_tags"); err != nil {
		return err
	}

	roles, err := encodeSet(o.Roles)
	if err != nil {
		return err
	}
	tags, err := encodeSet(o.ItemTags)
	if err != nil {
		return err
	}
	usage, err := encodeSet(o.ItemUsageTags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT id FROM organizations WHERE id = ?", o.ID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}

	// Reject the update if any user's current role would no longer be a
	// member of the new role set.
	allowed := make(map[string]bool, len(o.Roles))
	for _, role := range o.Roles {
		allowed[role] = true
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT role FROM users WHERE organization_id = ?", o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		if err = rows.Scan(&role); err != nil {
			return err
		}
		if !allowed[role] {
			err = NewValidationError("roles",
				fmt.Sprintf("role %q is still assigned to users", role))
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE organizations SET name = ?, roles = ?, item_tags = ?, item_usage_tags = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		o.Name, roles, tags, usage, o.ID)
	return err
}
