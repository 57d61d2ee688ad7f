package entity

import (
	"gorm.io/gorm"
)

// OrderItem is a price snapshot taken at placement; immutable afterwards.
type OrderItem struct {
	gorm.Model
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
	Name      string `json:"name"` // menu name at order time

	OrderID uint  `json:"orderId"`
	Order   Order `json:"-"`

	MenuItemID uint     `json:"menuItemId"`
	MenuItem   MenuItem `json:"-"`
}
