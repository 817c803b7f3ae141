package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, token_hash, user_id, account_id, impersonator_id,
	parent_session_id, expires_at, created_at, updated_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	now := fmtTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_hash, user_id, account_id, impersonator_id,
			parent_session_id, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TokenHash, s.UserID,
		mapOptionalString(s.AccountID), mapOptionalString(s.ImpersonatorID),
		mapOptionalString(s.ParentSessionID), fmtTime(s.ExpiresAt),
		now, now)
	return err
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, tokenHash)
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) SetSessionAccount(ctx context.Context, sessionID, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET account_id = ?, updated_at = ? WHERE id = ?`,
		accountID, fmtTime(time.Now()), sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RotateSessionToken(ctx context.Context, sessionID, tokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET token_hash = ?, updated_at = ? WHERE id = ?`,
		tokenHash, fmtTime(time.Now()), sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, fmtTime(now))
	return err
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s              domain.Session
		accountID      sql.NullString
		impersonatorID sql.NullString
		parentID       sql.NullString
		expiresAt      string
		createdAt      string
		updatedAt      string
	)

	err := row.Scan(&s.ID, &s.TokenHash, &s.UserID, &accountID, &impersonatorID,
		&parentID, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.AccountID = mapNullStringPtr(accountID)
	s.ImpersonatorID = mapNullStringPtr(impersonatorID)
	s.ParentSessionID = mapNullStringPtr(parentID)

	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.Session{}, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Session{}, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}
