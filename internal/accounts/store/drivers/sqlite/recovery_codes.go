package sqlite

import (
	"context"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

type recoveryCodesRepo struct {
	db dbtx
}

func (r *recoveryCodesRepo) CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recovery_codes (id, user_id, code_hash, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash, fmtOptionalTime(c.UsedAt), fmtTime(time.Now()))
	return err
}

// ConsumeRecoveryCode relies on the conditional WHERE used_at IS NULL so two
// concurrent consumers of the same code cannot both succeed.
func (r *recoveryCodesRepo) ConsumeRecoveryCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recovery_codes SET used_at = ?
		 WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		fmtTime(at), userID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *recoveryCodesRepo) DeleteAllRecoveryCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = ?`, userID)
	return err
}

func (r *recoveryCodesRepo) CountUnusedRecoveryCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE user_id = ? AND used_at IS NULL`,
		userID).Scan(&count)
	return count, err
}
