package entity

import (
	"gorm.io/gorm"
)

type Vendor struct {
	gorm.Model
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Currency string `json:"currency"`

	// vendors that defer payment capture to pickup accept unpaid orders
	PayOnPickup bool `json:"payOnPickup"`

	UserID uint `json:"userId"` // owner account
	User   User `json:"-"`

	MenuItems []MenuItem `json:"-"`
	Orders    []Order    `json:"-"`
}
