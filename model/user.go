package model

import "time"

type User struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	Username      string `gorm:"uniqueIndex;not null"`
	Password      string
	Role          string `gorm:"default:user"`
	EmailVerified bool   `gorm:"default:false"`
	IsActive      bool   `gorm:"default:true"`
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
