package models

import (
	"slices"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered customer of the store.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string    `json:"name" gorm:"type:varchar(100);not null"`
	Username   string    `json:"username" gorm:"uniqueIndex:idx_users_username;type:varchar(100);not null"`
	Email      string    `json:"email" gorm:"uniqueIndex:idx_users_email;type:varchar(255);not null"`
	Password   string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	Role       Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	Wishlist   []string  `json:"wishlist" gorm:"serializer:json;type:text"` // product IDs in insertion order
	ProfilePic string    `json:"profilPic,omitempty" gorm:"type:varchar(255)"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// InWishlist reports whether productID is already on the user's wishlist.
func (u *User) InWishlist(productID string) bool {
	return slices.Contains(u.Wishlist, productID)
}

// Snapshot returns the identity fields carried by sessions and page renders.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		ProfilePic: u.ProfilePic,
	}
}

// UserSnapshot is the authenticated user as seen by the request pipeline.
type UserSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	ProfilePic string `json:"profilPic,omitempty"`
}

func (s UserSnapshot) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// UserUpdate carries the profile fields to change; nil fields are left as is.
type UserUpdate struct {
	Name       *string
	Username   *string
	Email      *string
	Password   *string // already hashed
	ProfilePic *string
}

// Apply copies the non-nil fields of the update onto user.
func (up UserUpdate) Apply(user *User) {
	if up.Name != nil {
		user.Name = *up.Name
	}
	if up.Username != nil {
		user.Username = *up.Username
	}
	if up.Email != nil {
		user.Email = *up.Email
	}
	if up.Password != nil {
		user.Password = *up.Password
	}
	if up.ProfilePic != nil {
		user.ProfilePic = *up.ProfilePic
	}
}
