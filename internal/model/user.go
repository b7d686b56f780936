package model

import "time"

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User represents a reader or an administrator.
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Email             string    `json:"email" gorm:"uniqueIndex;size:180;not null"`
	PasswordHash      string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	LastName          string    `json:"last_name" gorm:"size:255;not null"`
	FirstName         string    `json:"first_name" gorm:"size:255;not null"`
	Phone             *string   `json:"phone,omitempty" gorm:"size:20"`
	Roles             []string  `json:"roles" gorm:"serializer:json;type:text"`
	Verified          bool      `json:"verified" gorm:"not null;default:false"`
	VerificationToken *string   `json:"-" gorm:"size:64;uniqueIndex"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// EffectiveRoles returns the stored roles plus ROLE_USER, which every account has.
func (u *User) EffectiveRoles() []string {
	roles := []string{RoleUser}
	for _, r := range u.Roles {
		if r != RoleUser && r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.EffectiveRoles() {
		if r == role {
			return true
		}
	}
	return false
}
