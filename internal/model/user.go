package model

import "time"

// UserStatus mirrors the `usr.status` column. Only ACTIVE accounts may log in
// or redeem refresh tokens. SUSPENDED is set by an admin or by the token
// service when invalidation detects an ownership mismatch.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// ParseUserStatus validates a status string coming from a request body.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case UserStatusActive:
		return UserStatusActive, true
	case UserStatusSuspended:
		return UserStatusSuspended, true
	}
	return "", false
}

// User represents a row in the `usr` table together with the authority tags
// joined in from `user_authority`.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name, also the `sub` claim of issued tokens.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Status       – account status (ACTIVE or SUSPENDED).
//  Authorities  – capability tags propagated into access-token claims.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64      // usr.id
	Username     string      // usr.username
	PasswordHash string      // usr.password
	Name         string      // usr.name
	Status       UserStatus  // usr.status
	Authorities  []Authority // user_authority.authority
	CreatedAt    time.Time   // usr.created_at
}
