package sqlite

import (
	"context"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
)

type auditEventsRepo struct {
	db dbtx
}

func (r *auditEventsRepo) CreateAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, actor_id, subject_id, action, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.SubjectID, e.Action, fmtTime(time.Now()))
	return err
}

func (r *auditEventsRepo) ListAuditEventsForActor(ctx context.Context, actorID string) ([]domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, subject_id, action, created_at
		 FROM audit_events WHERE actor_id = ?
		 ORDER BY created_at DESC, id DESC`,
		actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e         domain.AuditEvent
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.SubjectID, &e.Action, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
