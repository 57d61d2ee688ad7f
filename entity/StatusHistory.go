package entity

import "time"

// StatusHistory is the append-only transition log of an order. One row per
// accepted transition; the latest row's status always equals the order's
// current fulfillment status (enforced in the commit transaction).
type StatusHistory struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	OrderID   uint              `json:"orderId" gorm:"index"`
	Status    FulfillmentStatus `json:"status" gorm:"size:20"`
	Actor     Actor             `json:"actor" gorm:"size:20"`
	Note      string            `json:"note,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
