package model

import "time"

// Roles known to the system. Role checks go through core/access.
const (
	RoleUser      = "user"
	RoleBeatmaker = "beatmaker"
	RoleAdmin     = "admin"
)

// User represents an account in the system.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
