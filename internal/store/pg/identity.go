package pg

import (
	"context"
	"database/sql"
	"errors"

	"memberhub.org/internal/identity"
	"memberhub.org/internal/ids"
)

// Identities implements identity.Provider over the identities table.
type Identities struct {
	db *sql.DB
}

var _ identity.Provider = (*Identities)(nil)

// Identities returns the account store view.
func (s *Store) Identities() *Identities { return &Identities{db: s.db} }

const accountColumns = `id, email, display_name, password_hash, role_claim, disabled, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (identity.Account, error) {
	var acct identity.Account
	err := row.Scan(&acct.ID, &acct.Email, &acct.DisplayName, &acct.PasswordHash,
		&acct.RoleClaim, &acct.Disabled, &acct.CreatedAt, &acct.UpdatedAt)
	return acct, err
}

func (p *Identities) Create(ctx context.Context, acct identity.NewAccount) (identity.Account, error) {
	row := p.db.QueryRowContext(ctx, `
		insert into identities (id, email, display_name, password_hash, role_claim, created_at, updated_at)
		values ($1, $2, $3, $4, $5, now(), now())
		returning `+accountColumns,
		ids.New(), acct.Email, acct.DisplayName, acct.PasswordHash, acct.RoleClaim)
	created, err := scanAccount(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return identity.Account{}, identity.ErrEmailTaken
		}
		return identity.Account{}, err
	}
	return created, nil
}

func (p *Identities) Get(ctx context.Context, id string) (identity.Account, error) {
	row := p.db.QueryRowContext(ctx,
		`select `+accountColumns+` from identities where id = $1`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Account{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Account{}, err
	}
	return acct, nil
}

func (p *Identities) FindByEmail(ctx context.Context, email string) (identity.Account, error) {
	row := p.db.QueryRowContext(ctx,
		`select `+accountColumns+` from identities where email = $1`, email)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Account{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Account{}, err
	}
	return acct, nil
}

func (p *Identities) SetRoleClaim(ctx context.Context, id, role string) error {
	res, err := p.db.ExecContext(ctx,
		`update identities set role_claim = $2, updated_at = now() where id = $1`, id, role)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (p *Identities) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `delete from identities where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return identity.ErrNotFound
	}
	return nil
}

// RefreshTokens implements identity.RefreshTokenStore.
type RefreshTokens struct {
	db *sql.DB
}

var _ identity.RefreshTokenStore = (*RefreshTokens)(nil)

// RefreshTokens returns the refresh token store view.
func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{db: s.db} }

func (r *RefreshTokens) Create(ctx context.Context, tok *identity.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		values ($1, $2, $3, $4, $5, $6)
	`, tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt, tok.Revoked)
	return err
}

func (r *RefreshTokens) Find(ctx context.Context, id string) (*identity.RefreshToken, error) {
	var tok identity.RefreshToken
	err := r.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, expires_at, created_at, revoked
		from refresh_tokens where id = $1
	`, id).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *RefreshTokens) MarkRevoked(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true where id = $1`, id)
	return err
}

func (r *RefreshTokens) MarkRevokedByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true where user_id = $1`, userID)
	return err
}
