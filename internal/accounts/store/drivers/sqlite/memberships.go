package sqlite

import (
	"context"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) GetMembership(ctx context.Context, userID, accountID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, account_id, admin, member, created_at, updated_at
		 FROM memberships WHERE user_id = ? AND account_id = ?`,
		userID, accountID)
	return scanMembership(row)
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	now := fmtTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, account_id, admin, member, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.AccountID, m.Admin, m.Member, now, now)
	return mapAlreadyExists(err)
}

func (r *membershipsRepo) CountAccountMemberships(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}

func (r *membershipsRepo) DeleteMembership(ctx context.Context, membershipID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = ?`, membershipID)
	return err
}

func scanMembership(row rowScanner) (domain.Membership, error) {
	var (
		m         domain.Membership
		createdAt string
		updatedAt string
	)

	err := row.Scan(&m.ID, &m.UserID, &m.AccountID, &m.Admin, &m.Member, &createdAt, &updatedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}

	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Membership{}, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Membership{}, err
	}
	return m, nil
}
