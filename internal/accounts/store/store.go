package store

import (
	"context"
	"errors"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional update that matched no row because a
	// concurrent mutation got there first (e.g. a recovery code consumed
	// twice, or an account shape that changed under a conversion).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to keep transactions from nesting by accident.
type Store interface {
	Users() Users
	Accounts() Accounts
	Memberships() Memberships
	Sessions() Sessions
	RecoveryCodes() RecoveryCodes
	Challenges() Challenges
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Drivers may
	// retry fn on transient lock contention, so fn must be idempotent.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password sign-in.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetStaff grants or revokes the cross-account staff privilege.
	SetStaff(ctx context.Context, userID string, staff bool) error

	// SetPendingTOTPSecret stores an unconfirmed secret with its issue time.
	// Any previous unconfirmed secret is replaced.
	SetPendingTOTPSecret(ctx context.Context, userID, secret string, at time.Time) error

	// ConfirmTOTPSecret marks the pending secret as confirmed at the given
	// time and flips the user's two-factor-required flag on. Fails with
	// ErrConflict if no unconfirmed secret exists.
	ConfirmTOTPSecret(ctx context.Context, userID string, at time.Time) error

	// DisableTwoFactor clears the secret, confirmation and required flag.
	DisableTwoFactor(ctx context.Context, userID string) error

	// ClearStaleTOTPSecrets removes unconfirmed secrets issued before the
	// cutoff (housekeeping for abandoned enrollments).
	ClearStaleTOTPSecrets(ctx context.Context, before time.Time) error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountForMember resolves accountID restricted to the accounts
	// userID holds a membership on. A miss is ErrNotFound regardless of
	// whether the account exists, so callers cannot leak existence.
	GetAccountForMember(ctx context.Context, userID, accountID string) (domain.Account, error)

	// ListAccountsForUser returns every account the user is a member of,
	// ordered by creation.
	ListAccountsForUser(ctx context.Context, userID string) ([]domain.Account, error)

	// CreateAccount inserts a new account.
	CreateAccount(ctx context.Context, a domain.Account) error

	// SetShape flips the personal flag from fromPersonal to toPersonal as a
	// conditional update. Returns ErrConflict when the account was not in
	// fromPersonal shape at update time.
	SetShape(ctx context.Context, accountID string, fromPersonal, toPersonal bool) error

	// DeleteAccount cascades to memberships (per schema).
	DeleteAccount(ctx context.Context, accountID string) error
}

type Memberships interface {
	// GetMembership returns the membership linking userID to accountID.
	GetMembership(ctx context.Context, userID, accountID string) (domain.Membership, error)

	// CreateMembership inserts a new membership.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// CountAccountMemberships returns the number of memberships on an account.
	CountAccountMemberships(ctx context.Context, accountID string) (int, error)

	// DeleteMembership removes a membership row.
	DeleteMembership(ctx context.Context, membershipID string) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session by its token fingerprint.
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)

	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// SetSessionAccount repoints the session's acting account and bumps
	// updated_at. All other fields are untouched.
	SetSessionAccount(ctx context.Context, sessionID, accountID string) error

	// RotateSessionToken replaces the session's token fingerprint. The old
	// token stops resolving immediately.
	RotateSessionToken(ctx context.Context, sessionID, tokenHash string) error

	// DeleteSession removes a session (sign-out, impersonation stop, expiry).
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type RecoveryCodes interface {
	// CreateRecoveryCode stores a recovery code fingerprint for a user.
	CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error

	// ConsumeRecoveryCode marks the matching unused code as used at the
	// given time. Returns false when no unused code matches; a code already
	// consumed never matches again, even under concurrent requests.
	ConsumeRecoveryCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error)

	// DeleteAllRecoveryCodes removes every code for a user, used or not.
	DeleteAllRecoveryCodes(ctx context.Context, userID string) error

	// CountUnusedRecoveryCodes returns how many codes remain usable.
	CountUnusedRecoveryCodes(ctx context.Context, userID string) (int, error)
}

type Challenges interface {
	// CreateChallenge creates a pending two-factor sign-in challenge.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge retrieves a challenge by id.
	GetChallenge(ctx context.Context, id string) (domain.Challenge, error)

	// GetChallengeByTokenHash retrieves a challenge by its token fingerprint.
	GetChallengeByTokenHash(ctx context.Context, tokenHash string) (domain.Challenge, error)

	// IncrementChallengeAttempts bumps the failed attempt counter and
	// returns the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, id string) (domain.Challenge, error)

	// DeleteChallenge removes a challenge (satisfied or abandoned).
	DeleteChallenge(ctx context.Context, id string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) error
}

type AuditEvents interface {
	// CreateAuditEvent appends an audit record.
	CreateAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEventsForActor returns an actor's events, newest first.
	ListAuditEventsForActor(ctx context.Context, actorID string) ([]domain.AuditEvent, error)
}
