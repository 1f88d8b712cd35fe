package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/inventory-dashboard/internal/model"
	"github.com/iliyamo/inventory-dashboard/internal/utils"
)

// UserRepo persists users.  Role membership is checked against the owning
// organization's live role set inside the same transaction as the write, so
// a concurrent vocabulary change cannot slip an invalid role through.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create validates and inserts a new user, hashing the supplied password
// before persistence.  Failures are reported as a ValidationError naming
// the offending fields: blank required fields, an unknown organization, a
// role outside the organization's role set, or a duplicate email/username.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)

	ve := &ValidationError{Fields: map[string]string{}}
	if u.Email == "" {
		ve.Add("email", "is required")
	}
	if u.Username == "" {
		ve.Add("username", "is required")
	}
	if password == "" {
		ve.Add("password", "is required")
	}
	if strings.TrimSpace(u.FullName) == "" {
		ve.Add("full_name", "is required")
	}
	if strings.TrimSpace(u.PhoneNumber) == "" {
		ve.Add("phone_number", "is required")
	}
	if u.OrganizationID == 0 {
		ve.Add("organization_id", "is required")
	}
	if strings.TrimSpace(u.Role) == "" {
		ve.Add("role", "is required")
	}
	if len(ve.Fields) > 0 {
		return ve
	}

	hash, err := utils.HashPassword(password, cost)
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

	if err = checkRoleTx(ctx, tx, u.OrganizationID, u.Role); err != nil {
		return err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, full_name, phone_number, organization_id, role)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Email, u.Username, hash, u.FullName, u.PhoneNumber, u.OrganizationID, u.Role)
	if err != nil {
		if isDuplicate(err) {
			err = duplicateUserError(err)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return nil
}

// checkRoleTx loads the organization's role set inside tx and verifies that
// role is a member.  The read happens in the write transaction on purpose:
// validation always runs against the current organization state.
func checkRoleTx(ctx context.Context, tx *sql.Tx, orgID uint64, role string) error {
	var raw string
	if err := tx.QueryRowContext(ctx,
		"SELECT roles FROM organizations WHERE id = ?", orgID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewValidationError("organization_id", "organization does not exist")
		}
		return err
	}
	roles, err := decodeSet(raw)
	if err != nil {
		return err
	}
	for _, allowed := range roles {
		if allowed == role {
			return nil
		}
	}
	return NewValidationError("role", "is not in the organization's role set")
}

// duplicateUserError maps a unique-key violation onto the offending column.
// Both MySQL ("for key 'users.email'") and SQLite ("users.email") include
// the column name in the error message.
func duplicateUserError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "email") {
		return NewValidationError("email", "already exists")
	}
	if strings.Contains(msg, "username") {
		return NewValidationError("username", "already exists")
	}
	return NewValidationError("user", "already exists")
}

// GetByUsername fetches a user by username for authentication.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT id, email, username, password_hash, full_name, phone_number, organization_id, role
	           FROM users WHERE username = ? LIMIT 1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(username)).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName,
		&u.PhoneNumber, &u.OrganizationID, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, email, username, password_hash, full_name, phone_number, organization_id, role
	           FROM users WHERE id = ? LIMIT 1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName,
		&u.PhoneNumber, &u.OrganizationID, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update rewrites a user's profile fields and role.  The organization a
// user belongs to is immutable; the role is re-validated against the
// organization's current role set in the same transaction.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	ve := &ValidationError{Fields: map[string]string{}}
	if strings.TrimSpace(u.FullName) == "" {
		ve.Add("full_name", "is required")
	}
	if strings.TrimSpace(u.Role) == "" {
		ve.Add("role", "is required")
	}
	if len(ve.Fields) > 0 {
		return ve
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

	var orgID uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT organization_id FROM users WHERE id = ?", u.ID).Scan(&orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if err = checkRoleTx(ctx, tx, orgID, u.Role); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone_number = ?, role = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.FullName, u.PhoneNumber, u.Role, u.ID)
	return err
}
