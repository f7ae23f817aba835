package accounts

import "errors"

var (
	ErrNotFound     = errors.New("accounts: not found")
	ErrConflict     = errors.New("accounts: already exists")
	ErrInvalidInput = errors.New("accounts: invalid input")
)
