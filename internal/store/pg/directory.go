package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"memberhub.org/internal/directory"
)

// Directory implements directory.Store over the users table.
type Directory struct {
	db *sql.DB
}

var _ directory.Store = (*Directory)(nil)

// Directory returns the profile store view.
func (s *Store) Directory() *Directory { return &Directory{db: s.db} }

const profileColumns = `uid, email, first_name, last_name, role, department, photo_url, is_active, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (directory.Profile, error) {
	var p directory.Profile
	err := row.Scan(&p.UID, &p.Email, &p.FirstName, &p.LastName, &p.Role,
		&p.Department, &p.PhotoURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (d *Directory) Get(ctx context.Context, uid string) (directory.Profile, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+profileColumns+` from users where uid = $1`, uid)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Profile{}, err
	}
	return p, nil
}

// Put merge-upserts the profile: blank incoming fields keep the stored value,
// is_active is always taken from the incoming record, created_at is kept.
func (d *Directory) Put(ctx context.Context, p directory.Profile) error {
	_, err := d.db.ExecContext(ctx, `
		insert into users (uid, email, first_name, last_name, role, department, photo_url, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		on conflict (uid) do update set
			email      = coalesce(nullif(excluded.email, ''), users.email),
			first_name = coalesce(nullif(excluded.first_name, ''), users.first_name),
			last_name  = coalesce(nullif(excluded.last_name, ''), users.last_name),
			role       = coalesce(nullif(excluded.role, ''), users.role),
			department = coalesce(nullif(excluded.department, ''), users.department),
			photo_url  = coalesce(nullif(excluded.photo_url, ''), users.photo_url),
			is_active  = excluded.is_active,
			updated_at = now()
	`, p.UID, p.Email, p.FirstName, p.LastName, p.Role, p.Department, p.PhotoURL, p.IsActive)
	return err
}

func (d *Directory) SetRole(ctx context.Context, uid, role string) error {
	res, err := d.db.ExecContext(ctx,
		`update users set role = $2, updated_at = now() where uid = $1`, uid, role)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (d *Directory) Update(ctx context.Context, uid string, upd directory.ProfileUpdate) (directory.Profile, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Department != nil {
		add("department", *upd.Department)
	}
	if upd.PhotoURL != nil {
		add("photo_url", *upd.PhotoURL)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if len(sets) == 0 {
		return d.Get(ctx, uid)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, uid)

	query := fmt.Sprintf(`update users set %s where uid = $%d returning `+profileColumns,
		strings.Join(sets, ", "), len(args))
	p, err := scanProfile(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Profile{}, err
	}
	return p, nil
}

// Delete removes the profile; deleting an absent uid is not an error.
func (d *Directory) Delete(ctx context.Context, uid string) error {
	_, err := d.db.ExecContext(ctx, `delete from users where uid = $1`, uid)
	return err
}

func (d *Directory) List(ctx context.Context) ([]directory.Profile, error) {
	rows, err := d.db.QueryContext(ctx,
		`select `+profileColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []directory.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
