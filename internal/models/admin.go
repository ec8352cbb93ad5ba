package models

import "time"

// RoleAdmin is the only role the dashboard knows about.
const RoleAdmin = "admin"

// AdminUser is a dashboard account.
type AdminUser struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	Email        string    `gorm:"type:varchar(255);unique_index;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
