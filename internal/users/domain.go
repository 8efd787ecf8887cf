package users

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
)

// User represents a user account for management.
type User struct {
	ID         int64
	Login      string
	FirstName  string
	MiddleName *string
	LastName   string
	RoleID     int64
	RoleName   string
	CreatedAt  time.Time
}

// FullName joins the non-empty name parts in "last first middle" order.
func (u User) FullName() string {
	parts := []string{u.LastName, u.FirstName}
	if u.MiddleName != nil {
		parts = append(parts, *u.MiddleName)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Identity returns the authorization view of the user.
func (u User) Identity() rbac.Identity {
	return rbac.Identity{ID: u.ID, Login: u.Login, RoleID: u.RoleID}
}

// CreateInput carries the fields of the user creation form.
type CreateInput struct {
	Login      string `form:"login" validate:"required,min=5,alphanum"`
	Password   string `form:"password" validate:"required,password"`
	FirstName  string `form:"first_name" validate:"required,alphaunicode"`
	MiddleName string `form:"middle_name" validate:"omitempty,alphaunicode"`
	LastName   string `form:"last_name" validate:"required,alphaunicode"`
	RoleID     int64  `form:"role_id" validate:"gt=0"`
}

// UpdateInput carries the fields of the user edit form. RoleID is nil when
// the role must stay unchanged.
type UpdateInput struct {
	FirstName  string `form:"first_name" validate:"required,alphaunicode"`
	MiddleName string `form:"middle_name" validate:"omitempty,alphaunicode"`
	LastName   string `form:"last_name" validate:"required,alphaunicode"`
	RoleID     *int64 `form:"role_id" validate:"omitempty,gt=0"`
}

// NewUser is the row written by Repository.Create.
type NewUser struct {
	Login        string
	PasswordHash string
	FirstName    string
	MiddleName   *string
	LastName     string
	RoleID       int64
}

// Changes is the row update applied by Repository.Update.
type Changes struct {
	FirstName  string
	MiddleName *string
	LastName   string
	RoleID     *int64
}

// ValidationError reports form fields rejected before any write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "users: invalid input"
}
