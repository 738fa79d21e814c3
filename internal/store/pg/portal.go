package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"memberhub.org/internal/announce"
	"memberhub.org/internal/project"
)

// Announcements implements announce.Store.
type Announcements struct {
	db *sql.DB
}

var _ announce.Store = (*Announcements)(nil)

// Announcements returns the announcement store view.
func (s *Store) Announcements() *Announcements { return &Announcements{db: s.db} }

func (a *Announcements) Create(ctx context.Context, ann *announce.Announcement) error {
	_, err := a.db.ExecContext(ctx, `
		insert into announcements (id, title, content, created_by, created_by_name, author_role, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, ann.ID, ann.Title, ann.Content, ann.CreatedBy, ann.CreatedByName, ann.AuthorRole, ann.CreatedAt)
	return err
}

func (a *Announcements) List(ctx context.Context, limit int) ([]*announce.Announcement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.QueryContext(ctx, `
		select id, title, content, created_by, created_by_name, author_role, created_at
		from announcements order by created_at desc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*announce.Announcement
	for rows.Next() {
		var ann announce.Announcement
		if err := rows.Scan(&ann.ID, &ann.Title, &ann.Content, &ann.CreatedBy,
			&ann.CreatedByName, &ann.AuthorRole, &ann.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &ann)
	}
	return result, rows.Err()
}

func (a *Announcements) Delete(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `delete from announcements where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return announce.ErrNotFound
	}
	return nil
}

// Notifications implements announce.NotificationStore.
type Notifications struct {
	db *sql.DB
}

var _ announce.NotificationStore = (*Notifications)(nil)

// Notifications returns the notification store view.
func (s *Store) Notifications() *Notifications { return &Notifications{db: s.db} }

func (n *Notifications) Create(ctx context.Context, note *announce.Notification) error {
	_, err := n.db.ExecContext(ctx, `
		insert into notifications (id, user_id, title, content, type, read, created_by, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, note.ID, note.UserID, note.Title, note.Content, note.Type, note.Read, note.CreatedBy, note.CreatedAt)
	return err
}

func (n *Notifications) ListByUser(ctx context.Context, userID string, limit int) ([]*announce.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := n.db.QueryContext(ctx, `
		select id, user_id, title, content, type, read, created_by, created_at
		from notifications where user_id = $1 order by created_at desc limit $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*announce.Notification
	for rows.Next() {
		var note announce.Notification
		if err := rows.Scan(&note.ID, &note.UserID, &note.Title, &note.Content,
			&note.Type, &note.Read, &note.CreatedBy, &note.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &note)
	}
	return result, rows.Err()
}

func (n *Notifications) MarkRead(ctx context.Context, id, userID string) error {
	res, err := n.db.ExecContext(ctx,
		`update notifications set read = true where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return announce.ErrNotFound
	}
	return nil
}

// Projects implements project.Store.
type Projects struct {
	db *sql.DB
}

var _ project.Store = (*Projects)(nil)

// Projects returns the project store view.
func (s *Store) Projects() *Projects { return &Projects{db: s.db} }

const projectColumns = `id, name, description, status, department, progress, created_by, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Department,
		&p.Progress, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *Projects) Create(ctx context.Context, p *project.Project) error {
	_, err := ps.db.ExecContext(ctx, `
		insert into projects (id, name, description, status, department, progress, created_by, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Name, p.Description, p.Status, p.Department, p.Progress, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	return err
}

func (ps *Projects) Get(ctx context.Context, id string) (*project.Project, error) {
	p, err := scanProject(ps.db.QueryRowContext(ctx,
		`select `+projectColumns+` from projects where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (ps *Projects) Update(ctx context.Context, id string, u project.Update, at time.Time) (*project.Project, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Department != nil {
		add("department", *u.Department)
	}
	if u.Progress != nil {
		add("progress", *u.Progress)
	}
	add("updated_at", at)
	args = append(args, id)

	query := fmt.Sprintf(`update projects set %s where id = $%d returning `+projectColumns,
		strings.Join(sets, ", "), len(args))
	p, err := scanProject(ps.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (ps *Projects) Delete(ctx context.Context, id string) error {
	res, err := ps.db.ExecContext(ctx, `delete from projects where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (ps *Projects) List(ctx context.Context) ([]*project.Project, error) {
	rows, err := ps.db.QueryContext(ctx,
		`select `+projectColumns+` from projects order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
