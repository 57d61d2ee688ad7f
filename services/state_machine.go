package services

import (
	"time"

	"barorder/entity"
)

// transitions is the adjacency table of the fulfillment lifecycle.
// cancelled is reachable from pending, confirmed and preparing only;
// completed and cancelled are terminal.
var transitions = map[entity.FulfillmentStatus][]entity.FulfillmentStatus{
	entity.StatusPending:   {entity.StatusConfirmed, entity.StatusCancelled},
	entity.StatusConfirmed: {entity.StatusPreparing, entity.StatusCancelled},
	entity.StatusPreparing: {entity.StatusReady, entity.StatusCancelled},
	entity.StatusReady:     {entity.StatusCompleted},
}

// StateMachine validates transition requests. It is pure: the caller
// persists the outcome and emits the event.
type StateMachine struct {
	// window after placement during which a customer may cancel a
	// still-pending order
	CustomerCancelWindow time.Duration
}

// Decision is the accepted outcome of a validation. A no-op decision
// (re-requesting the current status) carries no history entry and the
// caller persists nothing and emits nothing.
type Decision struct {
	NoOp  bool
	Entry entity.StatusHistory
}

// Validate decides accept/reject for one requested transition.
func (m StateMachine) Validate(o *entity.Order, requested entity.FulfillmentStatus, actor entity.Actor, note string, now time.Time) (Decision, error) {
	if !requested.Valid() {
		return Decision{}, validationErr("unknown status %q", requested)
	}
	if !actor.Valid() {
		return Decision{}, validationErr("unknown actor %q", actor)
	}

	current := o.FulfillmentStatus

	// duplicate client retries land here
	if requested == current {
		return Decision{NoOp: true}, nil
	}

	if current.Terminal() {
		return Decision{}, transitionErr("order already %s", current)
	}

	if !adjacent(current, requested) {
		return Decision{}, transitionErr("cannot go from %s to %s", current, requested)
	}

	// forward progress requires settled payment unless the vendor defers
	// capture to pickup
	if requested != entity.StatusCancelled && !o.PayOnPickup && o.PaymentStatus != entity.PaymentPaid {
		if o.PaymentStatus == entity.PaymentFailed {
			return Decision{}, transitionErr("payment failed")
		}
		return Decision{}, transitionErr("payment not yet confirmed")
	}

	// customers may only cancel a still-pending order inside the grace
	// window; all forward progress comes from the vendor or the system
	if actor == entity.ActorCustomer {
		if requested != entity.StatusCancelled || current != entity.StatusPending {
			return Decision{}, transitionErr("customers may only cancel a pending order")
		}
		if m.CustomerCancelWindow > 0 && now.Sub(o.CreatedAt) > m.CustomerCancelWindow {
			return Decision{}, transitionErr("cancellation window has passed")
		}
	}

	return Decision{
		Entry: entity.StatusHistory{
			OrderID:   o.ID,
			Status:    requested,
			Actor:     actor,
			Note:      note,
			CreatedAt: now,
		},
	}, nil
}

func adjacent(from, to entity.FulfillmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
