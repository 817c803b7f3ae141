package sqlite

import (
	"context"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO challenges (id, token_hash, user_id, attempts, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TokenHash, c.UserID, c.Attempts, fmtTime(c.ExpiresAt), fmtTime(time.Now()))
	return err
}

func (r *challengesRepo) GetChallenge(ctx context.Context, id string) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, attempts, expires_at, created_at
		 FROM challenges WHERE id = ?`, id)
	return scanChallenge(row)
}

func (r *challengesRepo) GetChallengeByTokenHash(ctx context.Context, tokenHash string) (domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, attempts, expires_at, created_at
		 FROM challenges WHERE token_hash = ?`, tokenHash)
	return scanChallenge(row)
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (domain.Challenge, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE challenges SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Challenge{}, err
	}
	if err := requireRow(res); err != nil {
		return domain.Challenge{}, err
	}
	return r.GetChallenge(ctx, id)
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at < ?`, fmtTime(now))
	return err
}

func scanChallenge(row rowScanner) (domain.Challenge, error) {
	var (
		c         domain.Challenge
		expiresAt string
		createdAt string
	)

	err := row.Scan(&c.ID, &c.TokenHash, &c.UserID, &c.Attempts, &expiresAt, &createdAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}

	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.Challenge{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Challenge{}, err
	}
	return c, nil
}
