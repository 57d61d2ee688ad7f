package entity

// FulfillmentStatus is the order's position in its preparation lifecycle.
// It is independent from the payment status.
type FulfillmentStatus string

const (
	StatusPending   FulfillmentStatus = "pending"
	StatusConfirmed FulfillmentStatus = "confirmed"
	StatusPreparing FulfillmentStatus = "preparing"
	StatusReady     FulfillmentStatus = "ready"
	StatusCompleted FulfillmentStatus = "completed"
	StatusCancelled FulfillmentStatus = "cancelled"
)

func (s FulfillmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transition.
func (s FulfillmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
