package user

import (
	"time"
)

type User struct {
	UserID       string     `json:"user_id" bson:"user_id" validate:"required"`
	Username     string     `json:"username" bson:"username" validate:"required"`
	Email        string     `json:"email" bson:"email" validate:"required,email"`
	Role         string     `json:"role" bson:"role" validate:"required,oneof=admin moderator user"`
	LastLogin    *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	IsOnline     bool       `json:"is_online" bson:"is_online"`
	PasswordHash string     `json:"-" bson:"password_hash,omitempty"`
	Active       bool       `json:"active" bson:"active"`
	CreatedAt    time.Time  `json:"-" bson:"created_at"`
	UpdatedAt    time.Time  `json:"-" bson:"updated_at"`
}

// Profile is the public view of a roster user
type Profile struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsOnline  bool       `json:"is_online"`
	Active    bool       `json:"active"`
}

// Role constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ToProfile converts User to Profile. The online flag comes from the
// presence tracker, the stored is_online value is only a projection.
func (u *User) ToProfile(online bool) *Profile {
	return &Profile{
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		LastLogin: u.LastLogin,
		IsOnline:  online,
		Active:    u.Active,
	}
}
