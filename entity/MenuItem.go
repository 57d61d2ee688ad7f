package entity

import (
	"gorm.io/gorm"
)

type MenuItem struct {
	gorm.Model
	Name      string `json:"name"`
	Price     int64  `json:"price"` // cents
	Available bool   `json:"available"`

	VendorID uint   `json:"vendorId"`
	Vendor   Vendor `json:"-"`
}
