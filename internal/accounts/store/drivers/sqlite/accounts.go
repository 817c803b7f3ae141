package sqlite

import (
	"context"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
)

type accountsRepo struct {
	db dbtx
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, personal, created_at, updated_at
		 FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountForMember joins through memberships so a non-member's lookup is
// indistinguishable from a missing account.
func (r *accountsRepo) GetAccountForMember(ctx context.Context, userID, accountID string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.name, a.owner_id, a.personal, a.created_at, a.updated_at
		 FROM accounts a
		 JOIN memberships m ON m.account_id = a.id
		 WHERE a.id = ? AND m.user_id = ? AND m.member = 1`,
		accountID, userID)
	return scanAccount(row)
}

func (r *accountsRepo) ListAccountsForUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.name, a.owner_id, a.personal, a.created_at, a.updated_at
		 FROM accounts a
		 JOIN memberships m ON m.account_id = a.id
		 WHERE m.user_id = ? AND m.member = 1
		 ORDER BY a.created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := fmtTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, owner_id, personal, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.OwnerID, a.Personal, now, now)
	return err
}

// SetShape is the conditional half of a conversion: it only flips the flag
// when the account is still in the expected shape, so racing conversions
// cannot both win.
func (r *accountsRepo) SetShape(ctx context.Context, accountID string, fromPersonal, toPersonal bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET personal = ?, updated_at = ? WHERE id = ? AND personal = ?`,
		toPersonal, fmtTime(time.Now()), accountID, fromPersonal)
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

func (r *accountsRepo) DeleteAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	return err
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a         domain.Account
		createdAt string
		updatedAt string
	)

	err := row.Scan(&a.ID, &a.Name, &a.OwnerID, &a.Personal, &createdAt, &updatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
