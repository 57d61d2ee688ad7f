package services

import (
	"context"
	"errors"
	"time"

	"barorder/entity"

	"gorm.io/gorm"
)

// Payment collaborator callbacks. The provider protocol itself is opaque;
// the webhook controller reduces it to these two entry points, which the
// core treats as system-actor events.

// HandlePaymentConfirmed marks the order paid and requests the confirmed
// transition as the system actor. If the order has already left pending
// (cancelled by the sweeper, say) the payment mark still lands and the
// transition rejection is returned to the caller.
func (s *OrderLifecycleService) HandlePaymentConfirmed(ctx context.Context, orderID uint) (*OrderSnapshot, error) {
	if err := s.setPaymentStatus(ctx, orderID, entity.PaymentPaid); err != nil {
		return nil, err
	}
	return s.RequestTransition(ctx, orderID, entity.StatusConfirmed, entity.ActorSystem, "payment confirmed")
}

// HandlePaymentFailed marks the order failed. The order stays pending;
// the timeout sweeper will cancel it if nothing else happens.
func (s *OrderLifecycleService) HandlePaymentFailed(ctx context.Context, orderID uint) (*OrderSnapshot, error) {
	if err := s.setPaymentStatus(ctx, orderID, entity.PaymentFailed); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, orderID)
}

// setPaymentStatus runs the same versioned CAS loop as transitions so a
// webhook and a vendor action racing on one order cannot lose an update.
func (s *OrderLifecycleService) setPaymentStatus(ctx context.Context, orderID uint, status entity.PaymentStatus) error {
	for attempt := 0; ; attempt++ {
		o, version, err := s.loadForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PaymentStatus == status {
			return nil // duplicate webhook delivery
		}
		ok, err := s.store.SetPaymentStatus(ctx, orderID, version, status)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return storeErr(err)
		}
		if ok {
			s.lg.Info("payment status updated", "order", orderID, "status", status)
			return nil
		}
		if attempt >= maxConflictRetries {
			return ErrConcurrentModification
		}
		select {
		case <-time.After(conflictBackoff << attempt):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
