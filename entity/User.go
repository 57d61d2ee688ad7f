package entity

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `json:"email" gorm:"uniqueIndex;size:255"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role"` // customer | vendor | admin

	Vendors []Vendor `json:"-"`
	Orders  []Order  `json:"-"`
}
