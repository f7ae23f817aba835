package accounts

import "context"

// Store describes persistence operations required by the accounts subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Companies(ctx context.Context) CompanyStore
	Grants(ctx context.Context) GrantStore
}

// UserStore manages user records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListByCompany(ctx context.Context, companyID string) ([]*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// CompanyStore manages companies.
type CompanyStore interface {
	Create(ctx context.Context, c *Company) error
	Find(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context) ([]*Company, error)
	Update(ctx context.Context, c *Company) error
}

// GrantStore manages explicit capability grants per user. Superusers hold
// every capability implicitly and never appear here.
type GrantStore interface {
	Grant(ctx context.Context, userID, capability string) error
	Revoke(ctx context.Context, userID, capability string) error
	List(ctx context.Context, userID string) ([]string, error)
}
