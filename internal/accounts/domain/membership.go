package domain

import "time"

// Membership joins a User to an Account with explicit role flags. Admin and
// Member are independent booleans on purpose; neither implies ownership and
// ownership implies neither.
type Membership struct {
	ID        string
	UserID    string
	AccountID string
	Admin     bool
	Member    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
