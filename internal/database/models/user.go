package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the user domain entity
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	IsSuperuser    bool       `gorm:"not null" json:"is_superuser"`
	HashedPassword string     `gorm:"size:255;not null" json:"-"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// UserCreate carries a validated creation request into the service layer.
type UserCreate struct {
	Email       string
	Name        string
	Password    string
	IsActive    bool
	IsSuperuser bool
}

// UserUpdate is a partial update: nil fields are left untouched.
type UserUpdate struct {
	Email    *string
	Name     *string
	Password *string
	IsActive *bool
}

// IsEmpty reports whether the update carries no fields.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Name == nil && u.Password == nil && u.IsActive == nil
}

// UserRead is the public projection of a User; it never carries the password hash.
type UserRead struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// ToRead projects the user into its public shape.
func (u *User) ToRead() UserRead {
	return UserRead{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// CanAuthenticate reports whether the account may log in.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}
