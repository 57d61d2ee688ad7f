package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"barorder/bus"
	"barorder/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStore is the transactional boundary the lifecycle service runs
// against. The production implementation is repository.OrderRepository.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *entity.Order, items []entity.OrderItem, first entity.StatusHistory) error
	GetOrder(ctx context.Context, orderID uint) (*entity.Order, error)
	LoadOrderForUpdate(ctx context.Context, orderID uint) (*entity.Order, int64, error)
	CommitTransition(ctx context.Context, orderID uint, version int64, newStatus entity.FulfillmentStatus, entry entity.StatusHistory) (bool, error)
	SetPaymentStatus(ctx context.Context, orderID uint, version int64, status entity.PaymentStatus) (bool, error)
	GetHistory(ctx context.Context, orderID uint) ([]entity.StatusHistory, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]entity.Order, error)
}

// MenuStore supplies the availability/price snapshot at placement time.
type MenuStore interface {
	GetItemBasics(ctx context.Context, id uint) (entity.MenuItem, error)
}

type VendorStore interface {
	GetVendor(ctx context.Context, id uint) (*entity.Vendor, error)
}

// EventRelay mirrors committed events to an external broker. Optional.
type EventRelay interface {
	Forward(ctx context.Context, evt bus.Event)
}

const (
	maxConflictRetries = 3
	conflictBackoff    = 25 * time.Millisecond
	storeRetryBudget   = 3
	storeBackoffBase   = 100 * time.Millisecond

	orderLockShards = 64
)

// OrderLifecycleService orchestrates StateMachine validation against the
// OrderStore, persists transitions and publishes the resulting events.
// The store's versioned commit is the only serialization point; event
// publication always happens after the commit, never before.
type OrderLifecycleService struct {
	store    OrderStore
	menus    MenuStore
	vendors  VendorStore
	machine  StateMachine
	bus      *bus.Bus
	relay    EventRelay
	notifier Notifier
	lg       *slog.Logger

	// publication order must match commit order per order key, so each
	// commit and its emit run under the order's lock (sharded to keep
	// memory bounded)
	pubMu [orderLockShards]sync.Mutex
}

func (s *OrderLifecycleService) orderLock(orderID uint) *sync.Mutex {
	return &s.pubMu[orderID%orderLockShards]
}

func NewOrderLifecycleService(store OrderStore, menus MenuStore, vendors VendorStore, machine StateMachine, b *bus.Bus, relay EventRelay, notifier Notifier, lg *slog.Logger) *OrderLifecycleService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if lg == nil {
		lg = slog.Default()
	}
	return &OrderLifecycleService{
		store: store, menus: menus, vendors: vendors,
		machine: machine, bus: b, relay: relay, notifier: notifier, lg: lg,
	}
}

// ----- DTOs -----

type PlaceOrderItemIn struct {
	MenuItemID uint `json:"menuItemId" binding:"required"`
	Qty        int  `json:"qty" binding:"required,min=1"`
}

type PlaceOrderIn struct {
	VendorID     uint               `json:"vendorId" binding:"required"`
	Items        []PlaceOrderItemIn `json:"items" binding:"required,min=1"`
	TableLabel   string             `json:"tableLabel"`
	ContactPhone string             `json:"contactPhone"`
	Notes        string             `json:"notes"`
}

type ItemSnapshot struct {
	MenuItemID uint   `json:"menuItemId"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	UnitPrice  int64  `json:"unitPrice"`
	Total      int64  `json:"total"`
}

// OrderSnapshot is the read model served to late-joining observers. It
// always reflects the latest committed state; there is no cache in front
// of it.
type OrderSnapshot struct {
	ID                uint                     `json:"id"`
	VendorID          uint                     `json:"vendorId"`
	UserID            uint                     `json:"userId"`
	FulfillmentStatus entity.FulfillmentStatus `json:"fulfillmentStatus"`
	PaymentStatus     entity.PaymentStatus     `json:"paymentStatus"`
	PayOnPickup       bool                     `json:"payOnPickup"`
	Subtotal          int64                    `json:"subtotal"`
	Total             int64                    `json:"total"`
	Currency          string                   `json:"currency"`
	TableLabel        string                   `json:"tableLabel,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
	PlacedAt          time.Time                `json:"placedAt"`
	LastTransitionAt  time.Time                `json:"lastTransitionAt"`
	ReadyAt           *time.Time               `json:"readyAt,omitempty"`
	Items             []ItemSnapshot           `json:"items,omitempty"`
}

func snapshotOf(o *entity.Order) *OrderSnapshot {
	snap := &OrderSnapshot{
		ID:                o.ID,
		VendorID:          o.VendorID,
		UserID:            o.UserID,
		FulfillmentStatus: o.FulfillmentStatus,
		PaymentStatus:     o.PaymentStatus,
		PayOnPickup:       o.PayOnPickup,
		Subtotal:          o.Subtotal,
		Total:             o.Total,
		Currency:          o.Currency,
		TableLabel:        o.TableLabel,
		Notes:             o.Notes,
		PlacedAt:          o.CreatedAt,
		LastTransitionAt:  o.LastTransitionAt,
		ReadyAt:           o.ReadyAt,
	}
	for _, it := range o.Items {
		snap.Items = append(snap.Items, ItemSnapshot{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			Total:      it.Total,
		})
	}
	return snap
}

// ----- Place -----

// PlaceOrder creates the order, its immutable line items and the first
// pending history row atomically. Item prices and availability are a
// snapshot check at order time, not live-locked.
func (s *OrderLifecycleService) PlaceOrder(ctx context.Context, userID uint, in *PlaceOrderIn) (*OrderSnapshot, error) {
	if len(in.Items) == 0 {
		return nil, validationErr("items are required")
	}

	vendor, err := s.vendors.GetVendor(ctx, in.VendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErr("vendor not found")
		}
		return nil, storeErr(err)
	}
	if !vendor.Active {
		return nil, validationErr("vendor is not taking orders")
	}

	var subtotal int64
	items := make([]entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Qty <= 0 {
			return nil, validationErr("qty must be positive")
		}
		m, err := s.menus.GetItemBasics(ctx, it.MenuItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationErr("menu item %d not found", it.MenuItemID)
			}
			return nil, storeErr(err)
		}
		if m.VendorID != in.VendorID {
			return nil, validationErr("menu item %d does not belong to this vendor", it.MenuItemID)
		}
		if !m.Available {
			return nil, validationErr("%s is currently unavailable", m.Name)
		}
		line := m.Price * int64(it.Qty)
		subtotal += line
		items = append(items, entity.OrderItem{
			MenuItemID: m.ID, Name: m.Name,
			Qty: it.Qty, UnitPrice: m.Price, Total: line,
		})
	}

	now := time.Now().UTC()
	order := &entity.Order{
		VendorID:          in.VendorID,
		UserID:            userID,
		Subtotal:          subtotal,
		Total:             subtotal,
		Currency:          vendor.Currency,
		FulfillmentStatus: entity.StatusPending,
		PaymentStatus:     entity.PaymentUnpaid,
		PayOnPickup:       vendor.PayOnPickup,
		TableLabel:        in.TableLabel,
		ContactPhone:      in.ContactPhone,
		Notes:             in.Notes,
		LastTransitionAt:  now,
	}
	first := entity.StatusHistory{
		Status: entity.StatusPending, Actor: entity.ActorCustomer, CreatedAt: now,
	}
	if err := s.store.CreateOrder(ctx, order, items, first); err != nil {
		return nil, storeErr(err)
	}

	order.Items = items
	mu := s.orderLock(order.ID)
	mu.Lock()
	s.emit(ctx, order, "", entity.StatusPending, entity.ActorCustomer, now)
	mu.Unlock()
	s.notify(order.ID, entity.StatusPending, AudienceVendor)
	return snapshotOf(order), nil
}

// ----- Transition -----

// RequestTransition runs read-validate-commit under optimistic
// concurrency. A commit that loses the version race is retried against
// fresh state up to maxConflictRetries, then surfaced as
// ErrConcurrentModification. The event is published only after commit,
// under the order's lock, so subscribers see events in commit order.
func (s *OrderLifecycleService) RequestTransition(ctx context.Context, orderID uint, requested entity.FulfillmentStatus, actor entity.Actor, note string) (*OrderSnapshot, error) {
	for attempt := 0; ; attempt++ {
		o, version, err := s.loadForUpdate(ctx, orderID)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		// two transitions inside one clock tick still get strictly
		// increasing history stamps
		if !now.After(o.LastTransitionAt) {
			now = o.LastTransitionAt.Add(time.Nanosecond)
		}
		dec, err := s.machine.Validate(o, requested, actor, note, now)
		if err != nil {
			return nil, err
		}
		if dec.NoOp {
			// duplicate retry: no history row, no event
			return snapshotOf(o), nil
		}

		mu := s.orderLock(orderID)
		mu.Lock()
		ok, err := s.store.CommitTransition(ctx, orderID, version, requested, dec.Entry)
		if err != nil {
			mu.Unlock()
			return nil, storeErr(err)
		}
		if !ok {
			mu.Unlock()
			if attempt >= maxConflictRetries {
				s.lg.Warn("transition retries exhausted",
					"order", orderID, "requested", requested, "actor", actor)
				return nil, ErrConcurrentModification
			}
			select {
			case <-time.After(conflictBackoff << attempt):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		old := o.FulfillmentStatus
		o.FulfillmentStatus = requested
		o.LastTransitionAt = now
		if requested == entity.StatusReady {
			o.ReadyAt = &now
		}

		s.emit(ctx, o, old, requested, actor, now)
		mu.Unlock()

		s.notify(o.ID, requested, audienceFor(requested, actor))
		return snapshotOf(o), nil
	}
}

// loadForUpdate wraps the store read with bounded backoff so a blip in
// the store surfaces as ErrUnavailable rather than a raw driver error.
func (s *OrderLifecycleService) loadForUpdate(ctx context.Context, orderID uint) (*entity.Order, int64, error) {
	var lastErr error
	for attempt := 0; attempt < storeRetryBudget; attempt++ {
		o, version, err := s.store.LoadOrderForUpdate(ctx, orderID)
		if err == nil {
			return o, version, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		lastErr = err
		select {
		case <-time.After(storeBackoffBase << attempt):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	s.lg.Error("store unavailable", "order", orderID, "err", lastErr)
	return nil, 0, ErrUnavailable
}

// ----- Reads -----

// Snapshot always reflects the latest committed state.
func (s *OrderLifecycleService) Snapshot(ctx context.Context, orderID uint) (*OrderSnapshot, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}
	return snapshotOf(o), nil
}

func (s *OrderLifecycleService) History(ctx context.Context, orderID uint) ([]entity.StatusHistory, error) {
	rows, err := s.store.GetHistory(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// ----- Subscriptions -----

// SubscribeOrder registers the subscriber first and fetches the snapshot
// second, so the first event delivered is never older than the snapshot:
// anything committed after the snapshot read is already queued on the
// handle.
func (s *OrderLifecycleService) SubscribeOrder(ctx context.Context, orderID uint) (*bus.Handle, *OrderSnapshot, error) {
	h := s.bus.Subscribe(bus.OrderKey(orderID))
	snap, err := s.Snapshot(ctx, orderID)
	if err != nil {
		s.bus.Unsubscribe(h)
		return nil, nil, err
	}
	return h, snap, nil
}

// SubscribeKey attaches to a vendor or admin feed. No single snapshot
// applies; dashboards resync through their list endpoints.
func (s *OrderLifecycleService) SubscribeKey(key string) *bus.Handle {
	return s.bus.Subscribe(key)
}

// Unsubscribe is idempotent.
func (s *OrderLifecycleService) Unsubscribe(h *bus.Handle) {
	s.bus.Unsubscribe(h)
}

// ----- Internals -----

func (s *OrderLifecycleService) emit(ctx context.Context, o *entity.Order, from, to entity.FulfillmentStatus, actor entity.Actor, at time.Time) {
	evt := bus.Event{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		VendorID:  o.VendorID,
		OldStatus: from,
		NewStatus: to,
		Actor:     actor,
		Timestamp: at,
	}
	s.bus.Publish(bus.OrderKey(o.ID), evt)
	s.bus.Publish(bus.VendorKey(o.VendorID), evt)
	s.bus.Publish(bus.AdminKey, evt)
	if s.relay != nil {
		// best-effort mirror; detach from the request lifetime
		go s.relay.Forward(context.WithoutCancel(ctx), evt)
	}
}

// notify is fire-and-forget: dispatcher failures are logged and never
// roll back a committed transition.
func (s *OrderLifecycleService) notify(orderID uint, status entity.FulfillmentStatus, aud Audience) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, orderID, status, aud); err != nil {
			s.lg.Error("notification failed", "order", orderID, "status", status, "err", err)
		}
	}()
}

func audienceFor(status entity.FulfillmentStatus, actor entity.Actor) Audience {
	// the side that didn't act is the one that needs telling
	if actor == entity.ActorCustomer {
		return AudienceVendor
	}
	if status == entity.StatusPending {
		return AudienceVendor
	}
	return AudienceCustomer
}

func storeErr(err error) error {
	return errors.Join(ErrUnavailable, err)
}
