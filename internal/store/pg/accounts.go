package pg

import (
	"context"
	"database/sql"
	"errors"

	"rmis.udsm.ac.tz/internal/accounts"
)

// AccountStore implements accounts.Store on Postgres. Email uniqueness is
// enforced by a unique index on lower(email) that spans deactivated rows.
type AccountStore struct {
	db *sql.DB
}

var _ accounts.Store = (*AccountStore)(nil)

func (s *AccountStore) Create(ctx context.Context, acc *accounts.Account, secretHash string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name, role, unit_id, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, acc.ID, acc.Email, secretHash, acc.FirstName, acc.LastName, string(acc.Role), acc.UnitID, acc.Active, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return accounts.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (accounts.Account, error) {
	if s.db == nil {
		return accounts.Account{}, errors.New("database connection unavailable")
	}
	var acc accounts.Account
	err := s.db.QueryRowContext(ctx, `
		select id, email, first_name, last_name, role, unit_id, is_active, created_at, updated_at
		from users
		where id = $1 and is_active
	`, id).Scan(&acc.ID, &acc.Email, &acc.FirstName, &acc.LastName, &acc.Role, &acc.UnitID, &acc.Active, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Account{}, accounts.ErrNotFound
	}
	if err != nil {
		return accounts.Account{}, err
	}
	return acc, nil
}

func (s *AccountStore) FindByEmailWithSecret(ctx context.Context, email string) (accounts.Account, string, error) {
	if s.db == nil {
		return accounts.Account{}, "", errors.New("database connection unavailable")
	}
	var (
		acc  accounts.Account
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, first_name, last_name, role, unit_id, is_active, created_at, updated_at
		from users
		where lower(email) = lower($1) and is_active
	`, email).Scan(&acc.ID, &acc.Email, &hash, &acc.FirstName, &acc.LastName, &acc.Role, &acc.UnitID, &acc.Active, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Account{}, "", accounts.ErrNotFound
	}
	if err != nil {
		return accounts.Account{}, "", err
	}
	return acc, hash, nil
}

func (s *AccountStore) UpdateRole(ctx context.Context, id string, role accounts.Role) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users set role = $2, updated_at = now()
		where id = $1 and is_active
	`, id, string(role))
	if err != nil {
		return err
	}
	return oneRowOr(res, accounts.ErrNotFound)
}

func (s *AccountStore) Deactivate(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users set is_active = false, updated_at = now()
		where id = $1 and is_active
	`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, accounts.ErrNotFound)
}

func oneRowOr(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
