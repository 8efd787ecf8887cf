package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
)

// User is the credential view of an account.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	RoleID       int64
}

// Identity returns the authorization view of the user.
func (u User) Identity() rbac.Identity {
	return rbac.Identity{ID: u.ID, Login: u.Login, RoleID: u.RoleID}
}

// LoginSession is the audit row written for every successful login.
type LoginSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
