package domain

import "time"

// Account is a billable/organizational unit. Every account has exactly one
// owner, who always also holds a membership on it. The Personal flag is the
// account's shape; the single-membership invariant for personal accounts is
// enforced at conversion time, not continuously.
type Account struct {
	ID       string
	Name     string
	OwnerID  string // Foreign key to users; ownership is distinct from the admin role
	Personal bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether userID is the account owner. Membership role flags
// never factor into this: an admin member is not the owner.
func (a Account) OwnedBy(userID string) bool {
	return a.OwnerID == userID
}
