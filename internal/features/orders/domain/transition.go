package domain

import (
	"fmt"
	"strings"
	"time"

	"order-settlement/internal/core/identity"

	"github.com/shopspring/decimal"
)

// happyPath is the linear fulfilment sequence. Position defines "forward".
var happyPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// cancellable lists the statuses an order can be cancelled from.
var cancellable = map[OrderStatus]bool{
	OrderStatusPending:    true,
	OrderStatusConfirmed:  true,
	OrderStatusProcessing: true,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// IsTerminal reports whether no transition can leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusReturned
}

// RequiresTracking reports whether entering s needs a tracking number.
func (s OrderStatus) RequiresTracking() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

func (s OrderStatus) rank() int {
	for i, st := range happyPath {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo checks the guard table, ignoring who asks.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() || !target.Valid() {
		return false
	}

	switch target {
	case OrderStatusCancelled:
		return cancellable[s]
	case OrderStatusReturned:
		return s == OrderStatusShipped
	default:
		from, to := s.rank(), target.rank()
		return from >= 0 && to > from
	}
}

// TransitionRequest is a request to move an order to Target.
type TransitionRequest struct {
	// Target is the requested status.
	Target OrderStatus
	// Actor is who asks for the change.
	Actor identity.Actor
	// TrackingNumber optionally sets the carrier tracking number.
	TrackingNumber string
	// Courier optionally sets the carrier name.
	Courier string
	// Notes are free-text notes kept in the history.
	Notes string
	// Reason is the cancellation or return reason.
	Reason string
}

// TransitionPlan describes the effects a validated transition must have.
type TransitionPlan struct {
	// From is the status before the change.
	From OrderStatus
	// To is the status after the change.
	To OrderStatus
	// NoOp is true when the order already has the target status.
	NoOp bool
	// RefundAmount is the automatic refund owed by a cancellation, zero when none.
	RefundAmount decimal.Decimal
	// RestoreStock is true when the catalog must put the items back in stock.
	RestoreStock bool
	// Settle is true when seller payouts must be computed.
	Settle bool
}

// PlanTransition validates req against the order's current state.
// It does not modify the order.
func (o *Order) PlanTransition(req TransitionRequest) (TransitionPlan, error) {
	if !req.Target.Valid() {
		return TransitionPlan{}, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Target)
	}

	if req.Actor.Role == identity.RoleCustomer {
		if !o.OwnedBy(req.Actor) {
			return TransitionPlan{}, ErrNotOrderOwner
		}
		if req.Target != OrderStatusCancelled {
			return TransitionPlan{}, fmt.Errorf("%w: customers can only cancel orders", ErrInvalidTransition)
		}
		if !cancellable[o.Status] {
			return TransitionPlan{}, fmt.Errorf("%w: order is %s and can no longer be cancelled", ErrInvalidTransition, o.Status)
		}
	}

	plan := TransitionPlan{From: o.Status, To: req.Target, RefundAmount: decimal.Zero}

	if req.Target == o.Status {
		plan.NoOp = true
		return plan, nil
	}

	if !o.Status.CanTransitionTo(req.Target) {
		return TransitionPlan{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, req.Target)
	}

	if req.Target.RequiresTracking() && strings.TrimSpace(o.TrackingNumber) == "" && strings.TrimSpace(req.TrackingNumber) == "" {
		return TransitionPlan{}, ErrMissingTrackingNumber
	}

	switch req.Target {
	case OrderStatusCancelled:
		plan.RestoreStock = true
		if remaining := o.RemainingBalance(); remaining.IsPositive() {
			plan.RefundAmount = remaining
		}
	case OrderStatusDelivered:
		plan.Settle = true
	}

	return plan, nil
}

// ApplyTransition moves the order as planned and returns the history entry to append.
// The caller persists both. A NoOp plan leaves the order untouched.
func (o *Order) ApplyTransition(plan TransitionPlan, req TransitionRequest, now time.Time) (StatusChange, bool) {
	if plan.NoOp {
		return StatusChange{}, false
	}

	if tn := strings.TrimSpace(req.TrackingNumber); tn != "" {
		o.TrackingNumber = tn
	}
	if c := strings.TrimSpace(req.Courier); c != "" {
		o.Courier = c
	}

	o.Status = plan.To
	o.UpdatedAt = now

	change := StatusChange{
		Status:    plan.To,
		Timestamp: now,
		ActorID:   req.Actor.ID,
		ActorRole: req.Actor.Role,
		Notes:     historyNotes(req.Notes, req.Reason),
	}
	o.StatusHistory = append(o.StatusHistory, change)

	return change, true
}

func historyNotes(notes, reason string) string {
	notes, reason = strings.TrimSpace(notes), strings.TrimSpace(reason)
	switch {
	case reason == "":
		return notes
	case notes == "":
		return "reason: " + reason
	default:
		return notes + " (reason: " + reason + ")"
	}
}
