package entity

import (
	"time"

	"gorm.io/gorm"
)

type Order struct {
	gorm.Model

	VendorID uint   `json:"vendorId"`
	Vendor   Vendor `json:"-"` // preload only when vendor detail is needed

	UserID uint `json:"userId"`
	User   User `json:"-"`

	// money in cents; frozen at creation time
	Subtotal int64  `json:"subtotal"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`

	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus" gorm:"size:20;index"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus" gorm:"size:20"`

	// copied from the vendor at placement so later toggles don't affect
	// in-flight orders
	PayOnPickup bool `json:"payOnPickup"`

	// optimistic concurrency counter; bumped on every committed write
	Version int64 `json:"-"`

	TableLabel   string `json:"tableLabel,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	Notes        string `json:"notes,omitempty"`

	LastTransitionAt time.Time  `json:"lastTransitionAt"`
	EstimatedReadyAt *time.Time `json:"estimatedReadyAt,omitempty"`
	ReadyAt          *time.Time `json:"readyAt,omitempty"`

	Items   []OrderItem     `json:"-"`
	History []StatusHistory `json:"-"`
}
