package repository

import (
	"context"
	"time"

	"barorder/entity"

	"gorm.io/gorm"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// ---------------- Create ----------------

// CreateOrder writes the order, its line items and the first history row
// in one transaction. The history row's status must equal the order's.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *entity.Order, items []entity.OrderItem, first entity.StatusHistory) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}
		first.OrderID = o.ID
		return tx.Create(&first).Error
	})
}

// ---------------- Read ----------------

func (r *OrderRepository) GetOrder(ctx context.Context, orderID uint) (*entity.Order, error) {
	var o entity.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&o, orderID).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadOrderForUpdate returns the order plus the version a subsequent
// CommitTransition must present. No row lock is taken; the version check
// at commit time is the serialization point.
func (r *OrderRepository) LoadOrderForUpdate(ctx context.Context, orderID uint) (*entity.Order, int64, error) {
	var o entity.Order
	if err := r.DB.WithContext(ctx).First(&o, orderID).Error; err != nil {
		return nil, 0, err
	}
	return &o, o.Version, nil
}

func (r *OrderRepository) GetHistory(ctx context.Context, orderID uint) ([]entity.StatusHistory, error) {
	var rows []entity.StatusHistory
	err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ---------------- Commit (optimistic CAS) ----------------

// CommitTransition applies a validated transition if and only if the order
// row still carries the presented version. Returns (false, nil) when a
// concurrent writer got there first; the caller retries from fresh state.
func (r *OrderRepository) CommitTransition(ctx context.Context, orderID uint, version int64, newStatus entity.FulfillmentStatus, entry entity.StatusHistory) (bool, error) {
	committed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"fulfillment_status": newStatus,
			"version":            version + 1,
			"last_transition_at": entry.CreatedAt,
		}
		if newStatus == entity.StatusReady {
			updates["ready_at"] = entry.CreatedAt
		}
		res := tx.Model(&entity.Order{}).
			Where("id = ? AND version = ?", orderID, version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // lost the race; no history row either
		}
		entry.OrderID = orderID
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		committed = true
		return nil
	})
	return committed, err
}

// SetPaymentStatus updates the payment axis under the same version check
// so a payment webhook and a vendor action cannot silently overwrite each
// other.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, orderID uint, version int64, status entity.PaymentStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(map[string]any{"payment_status": status, "version": version + 1})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ---------------- Queries ----------------

// ListStalePending returns orders still pending since before cutoff; the
// timeout sweeper cancels them as the system actor.
func (r *OrderRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]entity.Order, error) {
	var out []entity.Order
	err := r.DB.WithContext(ctx).
		Where("fulfillment_status = ? AND created_at < ?", entity.StatusPending, cutoff).
		Find(&out).Error
	return out, err
}

type OrderSummary struct {
	ID                uint                     `json:"id"`
	VendorID          uint                     `json:"vendorId"`
	UserID            uint                     `json:"userId"`
	Total             int64                    `json:"total"`
	Currency          string                   `json:"currency"`
	FulfillmentStatus entity.FulfillmentStatus `json:"fulfillmentStatus"`
	PaymentStatus     entity.PaymentStatus     `json:"paymentStatus"`
	TableLabel        string                   `json:"tableLabel,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
}

func (r *OrderRepository) ListOrdersForUser(ctx context.Context, userID uint, limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []OrderSummary
	err := r.DB.WithContext(ctx).Model(&entity.Order{}).
		Select("id, vendor_id, user_id, total, currency, fulfillment_status, payment_status, table_label, created_at").
		Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *OrderRepository) ListOrdersForVendor(ctx context.Context, vendorID uint, status *entity.FulfillmentStatus, page, limit int) ([]OrderSummary, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := r.DB.WithContext(ctx).Model(&entity.Order{}).Where("vendor_id = ?", vendorID)
	if status != nil {
		q = q.Where("fulfillment_status = ?", *status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []OrderSummary
	err := q.Select("id, vendor_id, user_id, total, currency, fulfillment_status, payment_status, table_label, created_at").
		Order("id DESC").Limit(limit).Offset(offset).
		Scan(&out).Error
	return out, total, err
}

// ListRecent feeds the admin aggregation view.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]OrderSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []OrderSummary
	err := r.DB.WithContext(ctx).Model(&entity.Order{}).
		Select("id, vendor_id, user_id, total, currency, fulfillment_status, payment_status, table_label, created_at").
		Order("id DESC").Limit(limit).
		Scan(&out).Error
	return out, err
}
