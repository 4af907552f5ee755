package model

import (
	"time"

	"trainhub-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusUnpaid    SubscriptionStatus = "unpaid"    // created at checkout; also grace-lapsed awaiting renewal
	SubscriptionStatusActive    SubscriptionStatus = "active"    // promoted by a completed payment
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled" // explicit cancellation
	SubscriptionStatusExpired   SubscriptionStatus = "expired"   // period end passed with no renewal
)

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusUnpaid: {SubscriptionStatusActive, SubscriptionStatusCancelled},
	// active -> unpaid is the re-entrant "grace period lapsed" transition only.
	SubscriptionStatusActive:    {SubscriptionStatusUnpaid, SubscriptionStatusCancelled, SubscriptionStatusExpired},
	SubscriptionStatusCancelled: {},
	SubscriptionStatusExpired:   {},
}

// CanTransitionSubscription reports whether from -> to is a legal transition.
func CanTransitionSubscription(from, to SubscriptionStatus) bool {
	for _, next := range subscriptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsLiveSubscriptionStatus reports whether a subscription still occupies the
// (client, package) slot. At most one live subscription may exist per pair.
func IsLiveSubscriptionStatus(s SubscriptionStatus) bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusUnpaid
}

// Subscription is one client's enrollment into a training package. A
// subscription may own several payment attempts (retries after failure).
type Subscription struct {
	ID               string // UUID
	ClientID         string // UUID
	PackageID        string // UUID
	AmountPaid       int64  // minor units, set on activation
	Status           SubscriptionStatus
	StartDate        *time.Time // nil until active
	CurrentPeriodEnd *time.Time // nil until active; > StartDate once set
	CreatedAt        time.Time
}

// NewSubscription creates an unpaid subscription at checkout initiation.
func NewSubscription(id, clientID, packageID string) (*Subscription, error) {
	if id == "" || clientID == "" || packageID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		ClientID:  clientID,
		PackageID: packageID,
		Status:    SubscriptionStatusUnpaid,
		CreatedAt: time.Now(),
	}, nil
}

// Activate promotes the subscription after a completed payment and sets the
// billing window from the package term.
func (s *Subscription) Activate(pkg *TrainingPackage, amountPaid int64, now time.Time) error {
	if pkg == nil || pkg.BillingTermDays <= 0 {
		return domain.ErrInvalidArgument
	}
	if !CanTransitionSubscription(s.Status, SubscriptionStatusActive) {
		return domain.ErrInvalidTransition
	}
	start := now
	end := start.Add(time.Duration(pkg.BillingTermDays) * 24 * time.Hour)
	s.Status = SubscriptionStatusActive
	s.StartDate = &start
	s.CurrentPeriodEnd = &end
	s.AmountPaid = amountPaid
	return nil
}

// Cancel moves the subscription to cancelled regardless of payment state.
func (s *Subscription) Cancel() error {
	if !CanTransitionSubscription(s.Status, SubscriptionStatusCancelled) {
		return domain.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusCancelled
	return nil
}

// Expire finishes an active subscription whose period end has passed.
func (s *Subscription) Expire(now time.Time) error {
	if !CanTransitionSubscription(s.Status, SubscriptionStatusExpired) {
		return domain.ErrInvalidTransition
	}
	if s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd) {
		return domain.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusExpired
	return nil
}

// Lapse moves an active subscription back to unpaid, awaiting a renewal
// payment. This is the only permitted active -> unpaid transition and is
// never applied silently; callers log and alert on it.
func (s *Subscription) Lapse() error {
	if !CanTransitionSubscription(s.Status, SubscriptionStatusUnpaid) {
		return domain.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusUnpaid
	return nil
}
