package bus

import (
	"fmt"
	"time"

	"barorder/entity"
)

// Event is the transient lifecycle message fanned out to subscribers.
// It is produced exactly once per accepted transition but may be delivered
// to a subscriber more than once; consumers apply it idempotently.
type Event struct {
	ID        string                   `json:"id"`
	OrderID   uint                     `json:"orderId"`
	VendorID  uint                     `json:"vendorId"`
	OldStatus entity.FulfillmentStatus `json:"oldStatus,omitempty"`
	NewStatus entity.FulfillmentStatus `json:"newStatus"`
	Actor     entity.Actor             `json:"actor"`
	Timestamp time.Time                `json:"timestamp"`
}

// Subscription keys. Every accepted transition is published under the
// order key, the vendor key and the admin key.
func OrderKey(orderID uint) string   { return fmt.Sprintf("order:%d", orderID) }
func VendorKey(vendorID uint) string { return fmt.Sprintf("vendor:%d", vendorID) }

const AdminKey = "admin"
