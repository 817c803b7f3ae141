package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, password_hash, verified, staff,
	totp_secret, totp_pending_since, totp_confirmed_at, two_factor_required,
	created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := fmtTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, verified, staff,
			totp_secret, totp_pending_since, totp_confirmed_at, two_factor_required,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Verified, u.Staff,
		mapOptionalString(u.TOTPSecret), fmtOptionalTime(u.TOTPPendingSince),
		fmtOptionalTime(u.TOTPConfirmedAt), u.TwoFactorRequired,
		now, now,
	)
	return mapAlreadyExists(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, fmtTime(time.Now()), userID)
	return err
}

func (r *usersRepo) SetStaff(ctx context.Context, userID string, staff bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET staff = ?, updated_at = ? WHERE id = ?`,
		staff, fmtTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetPendingTOTPSecret(ctx context.Context, userID, secret string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET totp_secret = ?, totp_pending_since = ?, totp_confirmed_at = NULL, updated_at = ?
		 WHERE id = ?`,
		secret, fmtTime(at), fmtTime(at), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ConfirmTOTPSecret(ctx context.Context, userID string, at time.Time) error {
	// Conditional: only an unconfirmed secret can be confirmed.
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET totp_confirmed_at = ?, totp_pending_since = NULL, two_factor_required = 1, updated_at = ?
		 WHERE id = ? AND totp_secret IS NOT NULL AND totp_confirmed_at IS NULL`,
		fmtTime(at), fmtTime(at), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *usersRepo) DisableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET totp_secret = NULL, totp_pending_since = NULL, totp_confirmed_at = NULL,
		     two_factor_required = 0, updated_at = ?
		 WHERE id = ?`,
		fmtTime(time.Now()), userID)
	return err
}

func (r *usersRepo) ClearStaleTOTPSecrets(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET totp_secret = NULL, totp_pending_since = NULL, updated_at = ?
		 WHERE totp_confirmed_at IS NULL
		   AND totp_pending_since IS NOT NULL
		   AND totp_pending_since < ?`,
		fmtTime(time.Now()), fmtTime(before))
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u            domain.User
		secret       sql.NullString
		pendingSince sql.NullString
		confirmedAt  sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Verified, &u.Staff,
		&secret, &pendingSince, &confirmedAt, &u.TwoFactorRequired,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.TOTPSecret = mapNullStringPtr(secret)
	if u.TOTPPendingSince, err = parseOptionalTime(pendingSince); err != nil {
		return domain.User{}, err
	}
	if u.TOTPConfirmedAt, err = parseOptionalTime(confirmedAt); err != nil {
		return domain.User{}, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.User{}, err
	}

	return u, nil
}
