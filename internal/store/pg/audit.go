package pg

import (
	"context"
	"database/sql"

	"memberhub.org/internal/audit"
	"memberhub.org/internal/ids"
)

// RoleTrail implements audit.Trail over the role_audit table. The table is
// append-only; no update or delete statement exists in this package.
type RoleTrail struct {
	db *sql.DB
}

var _ audit.Trail = (*RoleTrail)(nil)

// RoleTrail returns the role audit view.
func (s *Store) RoleTrail() *RoleTrail { return &RoleTrail{db: s.db} }

func (t *RoleTrail) Append(ctx context.Context, e *audit.Entry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	_, err := t.db.ExecContext(ctx, `
		insert into role_audit (id, target_user_id, changed_by, changed_by_email, old_role, new_role, note, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.TargetUserID, e.ChangedBy, e.ChangedByEmail, e.OldRole, e.NewRole, e.Note, e.OccurredAt)
	return err
}

func (t *RoleTrail) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.db.QueryContext(ctx, `
		select id, target_user_id, changed_by, changed_by_email, old_role, new_role, note, occurred_at
		from role_audit order by occurred_at desc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.TargetUserID, &e.ChangedBy, &e.ChangedByEmail,
			&e.OldRole, &e.NewRole, &e.Note, &e.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SystemLog implements audit.EventSink over the system_logs table.
type SystemLog struct {
	db *sql.DB
}

var _ audit.EventSink = (*SystemLog)(nil)

// SystemLog returns the system event view.
func (s *Store) SystemLog() *SystemLog { return &SystemLog{db: s.db} }

func (l *SystemLog) Append(ctx context.Context, e *audit.Event) error {
	_, err := l.db.ExecContext(ctx, `
		insert into system_logs (id, type, actor_id, actor_email, target_user_id, description, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Type, e.ActorID, e.ActorEmail, e.TargetUserID, e.Description, e.OccurredAt)
	return err
}

func (l *SystemLog) List(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx, `
		select id, type, actor_id, actor_email, target_user_id, description, occurred_at
		from system_logs order by occurred_at desc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.ActorID, &e.ActorEmail,
			&e.TargetUserID, &e.Description, &e.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
