package accounts

import (
	"fmt"
	"strings"
	"time"
)

// Company groups users and is denormalized onto audit events.
type Company struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	StreetAddress  string    `json:"street_address,omitempty"`
	StreetAddress2 string    `json:"street_address_2,omitempty"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	PostalCode     string    `json:"postal_code,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Address returns the mailing address lines, skipping blanks.
func (c Company) Address() []string {
	address := []string{c.Name}
	if c.StreetAddress != "" {
		address = append(address, c.StreetAddress)
	}
	if c.StreetAddress2 != "" {
		address = append(address, c.StreetAddress2)
	}
	if c.City != "" {
		address = append(address, fmt.Sprintf("%s, %s %s", c.City, c.State, c.PostalCode))
	} else {
		address = append(address, fmt.Sprintf("%s %s", c.State, c.PostalCode))
	}
	return address
}

// User is an authenticable principal. Email is the login identifier and is
// compared case-insensitively at authentication time.
type User struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id,omitempty"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	Timezone     string    `json:"timezone,omitempty"`
	Language     string    `json:"language,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns first and last name joined, falling back to the email when
// both are empty.
func (u User) FullName() string {
	names := make([]string, 0, 2)
	for _, n := range []string{u.FirstName, u.LastName} {
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return u.Email
	}
	return strings.Join(names, " ")
}

// ShortName returns the user's first name.
func (u User) ShortName() string {
	return u.FirstName
}

// NormalizeEmail lower-cases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
