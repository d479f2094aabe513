package repository

import "errors"

var (
	// ErrDuplicateUser means the username or email is already taken.
	ErrDuplicateUser = errors.New("username or email already exists")
)
