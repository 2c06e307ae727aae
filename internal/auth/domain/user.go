package domain

import "time"

type UserStatus string

const (
	UserRegistered       UserStatus = "REGISTERED"
	UserIdentityVerified UserStatus = "IDENTITY_VERIFIED"
	UserLocked           UserStatus = "LOCKED"
	UserDisabled         UserStatus = "DISABLED"
	UserSuspended        UserStatus = "SUSPENDED"
	UserDeactivated      UserStatus = "DEACTIVATED"
	UserDeletedPending   UserStatus = "DELETED_PENDING"
	UserDeleted          UserStatus = "DELETED"
)

// IsActive reports whether a user in this status may hold live tokens.
func (s UserStatus) IsActive() bool {
	switch s {
	case UserLocked, UserDisabled, UserSuspended, UserDeactivated, UserDeletedPending, UserDeleted:
		return false
	}
	return true
}

type User struct {
	ID            string
	TenantID      string
	Username      string
	PreferredName string
	Email         string
	PasswordHash  string // argon2id PHC string
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) IsActive() bool { return u.Status.IsActive() }
