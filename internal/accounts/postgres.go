package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"accountsplus.org/internal/ids"
)

const (
	pgErrUniqueViolation = "23505"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context.Context) UserStore { return &pgUserStore{db: s.db} }

func (s *PGStore) Companies(context.Context) CompanyStore { return &pgCompanyStore{db: s.db} }

func (s *PGStore) Grants(context.Context) GrantStore { return &pgGrantStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// User store ---------------------------------------------------------------

type pgUserStore struct{ db *sql.DB }

const userColumns = `id, company_id, email, first_name, last_name,
	is_active, is_staff, is_superuser, timezone, language, password_hash,
	created_at, updated_at`

func (s *pgUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, company_id, email, first_name, last_name,
			is_active, is_staff, is_superuser, timezone, language, password_hash)
		values ($1, nullif($2,''), $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.CompanyID, u.Email, u.FirstName, u.LastName,
		u.IsActive, u.IsStaff, u.IsSuperuser, u.Timezone, u.Language, u.PasswordHash)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrConflict
	}
	return err
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		companyID sql.NullString
	)
	err := row.Scan(&u.ID, &companyID, &u.Email, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.Timezone, &u.Language,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CompanyID = companyID.String
	return &u, nil
}

func (s *pgUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1)`,
		NormalizeEmail(email))
	return scanUser(row)
}

func (s *pgUserStore) ListByCompany(ctx context.Context, companyID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where company_id = $1 order by created_at asc`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *pgUserStore) Update(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	result, err := s.db.ExecContext(ctx, `
		update users set company_id = nullif($2,''), email = $3, first_name = $4,
			last_name = $5, is_active = $6, is_staff = $7, is_superuser = $8,
			timezone = $9, language = $10, updated_at = now()
		where id = $1
	`, u.ID, u.CompanyID, u.Email, u.FirstName, u.LastName,
		u.IsActive, u.IsStaff, u.IsSuperuser, u.Timezone, u.Language)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Company store ------------------------------------------------------------

type pgCompanyStore struct{ db *sql.DB }

const companyColumns = `id, name, street_address, street_address_2, city,
	state, postal_code, created_at, updated_at`

func (s *pgCompanyStore) Create(ctx context.Context, c *Company) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into companies (id, name, street_address, street_address_2, city, state, postal_code)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, c.StreetAddress, c.StreetAddress2, c.City, c.State, c.PostalCode)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrConflict
	}
	return err
}

func scanCompany(row interface{ Scan(...any) error }) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.StreetAddress, &c.StreetAddress2,
		&c.City, &c.State, &c.PostalCode, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *pgCompanyStore) Find(ctx context.Context, id string) (*Company, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+companyColumns+` from companies where id = $1`, id)
	return scanCompany(row)
}

func (s *pgCompanyStore) List(ctx context.Context) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+companyColumns+` from companies order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *pgCompanyStore) Update(ctx context.Context, c *Company) error {
	result, err := s.db.ExecContext(ctx, `
		update companies set name = $2, street_address = $3, street_address_2 = $4,
			city = $5, state = $6, postal_code = $7, updated_at = now()
		where id = $1
	`, c.ID, c.Name, c.StreetAddress, c.StreetAddress2, c.City, c.State, c.PostalCode)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Grant store ---------------------------------------------------------------

type pgGrantStore struct{ db *sql.DB }

func (s *pgGrantStore) Grant(ctx context.Context, userID, capability string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into capability_grants (user_id, capability)
		values ($1, $2)
		on conflict (user_id, capability) do nothing
	`, userID, capability)
	return err
}

func (s *pgGrantStore) Revoke(ctx context.Context, userID, capability string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from capability_grants where user_id = $1 and capability = $2`,
		userID, capability)
	return err
}

func (s *pgGrantStore) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select capability from capability_grants where user_id = $1 order by capability asc`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, err
		}
		res = append(res, capability)
	}
	return res, rows.Err()
}
