package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Roles        []Role    `gorm:"many2many:user_roles"     json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string       `gorm:"unique;not null"             json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions"  json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles"        json:"-"`
}

type Permission struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"    json:"id"`
	Key   string `gorm:"unique;not null"             json:"key"`
	Roles []Role `gorm:"many2many:role_permissions"  json:"-"`
}

// RefreshToken stores the sha256 hex of an opaque refresh token,
// never the raw value.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	TokenHash string    `gorm:"unique;not null"     json:"-"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

type About struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"not null"                 json:"title"`
	Body      string    `gorm:"not null"                 json:"body"`
	Published bool      `gorm:"default:false;index"      json:"published"`
	CreatedBy uint      `json:"created_by"`
	UpdatedBy uint      `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null"                 json:"title"`
	Slug        string    `gorm:"unique;not null"          json:"slug"`
	Description string    `json:"description"`
	Tech        string    `json:"tech"`
	RepoURL     string    `json:"repo_url"`
	LiveURL     string    `json:"live_url"`
	Published   bool      `gorm:"default:false;index"      json:"published"`
	CreatedBy   uint      `json:"created_by"`
	UpdatedBy   uint      `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Experience struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Company   string     `gorm:"not null"                 json:"company"`
	Position  string     `gorm:"not null"                 json:"position"`
	Summary   string     `json:"summary"`
	StartDate time.Time  `gorm:"not null"                 json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Published bool       `gorm:"default:false;index"      json:"published"`
	CreatedBy uint       `json:"created_by"`
	UpdatedBy uint       `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
