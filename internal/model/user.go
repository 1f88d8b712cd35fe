package model

// User represents an application user record as stored in the `users`
// table. Email and username are globally unique; the password is kept only
// as a bcrypt hash and never serialized. A user belongs to exactly one
// organization and carries one role drawn from that organization's role
// set; the membership is re-validated against the live organization row on
// every write.
type User struct {
	ID             uint64 `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	PasswordHash   string `json:"-"`
	FullName       string `json:"full_name"`
	PhoneNumber    string `json:"phone_number"`
	OrganizationID uint64 `json:"organization"`
	Role           string `json:"role"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}
