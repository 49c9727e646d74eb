package models

import (
	"time"

	"github.com/lib/pq"
)

// RoleType represents a capability variant an actor may hold.
type RoleType string

const (
	RoleStudent  RoleType = "STUDENT"
	RoleGuardian RoleType = "GUARDIAN"
	RoleTeacher  RoleType = "TEACHER"
)

// UserRole is one capability attached to a user. A user may hold several
// at once; operations declare which variant they require.
type UserRole struct {
	UserID    string   `db:"user_id" json:"-"`
	Role      RoleType `db:"role" json:"role"`
	Active    bool     `db:"active" json:"active"`
	IsPrimary bool     `db:"is_primary" json:"is_primary"`
}

// User represents an application user stored in the users table.
// Children and Guardians are denormalized mirrors of accepted link rows;
// they are mutated only inside link transition transactions.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	Handle       string         `db:"handle" json:"handle"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"full_name"`
	Active       bool           `db:"active" json:"active"`
	Children     pq.StringArray `db:"children" json:"children,omitempty"`
	Guardians    pq.StringArray `db:"guardians" json:"guardians,omitempty"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`

	Roles []UserRole `db:"-" json:"roles,omitempty"`
}

// HasActiveRole reports whether the user currently holds the given capability.
func (u *User) HasActiveRole(role RoleType) bool {
	if u == nil || !u.Active {
		return false
	}
	for _, r := range u.Roles {
		if r.Role == role && r.Active {
			return true
		}
	}
	return false
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
