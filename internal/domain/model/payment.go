package model

import (
	"time"

	"trainhub-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"    // checkout initiated, awaiting gateway
	PaymentStatusProcessing PaymentStatus = "processing" // gateway reported an in-flight capture
	PaymentStatusCompleted  PaymentStatus = "completed"  // capture confirmed, fee split applied
	PaymentStatusFailed     PaymentStatus = "failed"     // capture failed or checkout expired
	PaymentStatusRefunded   PaymentStatus = "refunded"   // refund confirmed after completion
	PaymentStatusCanceled   PaymentStatus = "canceled"   // user abandoned checkout
)

// paymentTransitions is the closed transition table. Anything not listed is
// an invalid transition and must be rejected without mutating the payment.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusFailed, PaymentStatusCanceled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
	PaymentStatusCanceled:   {},
}

// CanTransitionPayment reports whether from -> to is a legal payment transition.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalPaymentStatus reports whether no further transition is permitted,
// except the explicitly allowed completed -> refunded.
func IsTerminalPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCanceled:
		return true
	}
	return false
}

// Payment records one charge attempt for a subscription. Money is stored in
// minor units (integer) to avoid float errors.
type Payment struct {
	ID             string // UUID
	SubscriptionID string // UUID (owning subscription)
	ClientID       string // UUID
	Amount         int64  // gross, minor units
	Currency       string // ISO 4217
	PlatformFee    int64  // set on completion
	TrainerPayout  int64  // set on completion; PlatformFee+TrainerPayout == Amount
	Status         PaymentStatus
	Method         string // "card" | "wallet" | "paypal"

	// Per-gateway correlation identifiers, stored at initiation time.
	// Exactly one gateway's pair is populated per payment.
	PaymobOrderID   *string
	PaymobTxnID     *string
	PayPalOrderID   *string
	PayPalCaptureID *string

	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time // set once, at first entry to completed
	FailedAt      *time.Time // set once, at first entry to failed
	DeletedAt     *time.Time // soft delete; payments are never physically removed
}

// NewPayment constructs a pending payment for a subscription charge attempt.
func NewPayment(id, subscriptionID, clientID string, amount int64, currency, method string) (*Payment, error) {
	if id == "" || subscriptionID == "" || clientID == "" || amount <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Payment{
		ID:             id,
		SubscriptionID: subscriptionID,
		ClientID:       clientID,
		Amount:         amount,
		Currency:       currency,
		Status:         PaymentStatusPending,
		Method:         method,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// TransitionTo applies a status change, enforcing the transition table and
// stamping PaidAt/FailedAt exactly once at first entry to the terminal state.
func (p *Payment) TransitionTo(to PaymentStatus, now time.Time) error {
	if !CanTransitionPayment(p.Status, to) {
		return domain.ErrInvalidTransition
	}
	p.Status = to
	p.UpdatedAt = now
	switch to {
	case PaymentStatusCompleted:
		if p.PaidAt == nil {
			t := now
			p.PaidAt = &t
		}
	case PaymentStatusFailed:
		if p.FailedAt == nil {
			t := now
			p.FailedAt = &t
		}
	}
	return nil
}

// VerifyAmount checks a gateway-reported amount against the recorded gross
// with zero tolerance. Both sides are minor-unit normalized by the adapters.
func (p *Payment) VerifyAmount(amount int64, currency string) error {
	if amount != p.Amount || currency != p.Currency {
		return domain.ErrAmountMismatch
	}
	return nil
}

// ApplySplit records the fee/payout computed by SplitAmount.
func (p *Payment) ApplySplit(platformFee, trainerPayout int64) {
	p.PlatformFee = platformFee
	p.TrainerPayout = trainerPayout
}

// CorrelationRef returns the order id stored for the given gateway, or ""
// when the payment was not initiated through it.
func (p *Payment) CorrelationRef(gateway string) string {
	switch gateway {
	case GatewayPaymob:
		if p.PaymobOrderID != nil {
			return *p.PaymobOrderID
		}
	case GatewayPayPal:
		if p.PayPalOrderID != nil {
			return *p.PayPalOrderID
		}
	}
	return ""
}

// SetCorrelation stores the gateway order id at initiation time. A payment
// belongs to exactly one gateway, so any previously set pair is an error.
func (p *Payment) SetCorrelation(gateway, orderID string) error {
	if orderID == "" {
		return domain.ErrInvalidArgument
	}
	if p.PaymobOrderID != nil || p.PayPalOrderID != nil {
		return domain.ErrAlreadyExists
	}
	switch gateway {
	case GatewayPaymob:
		p.PaymobOrderID = &orderID
	case GatewayPayPal:
		p.PayPalOrderID = &orderID
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// SetTransaction stores the gateway capture/transaction id reported by a
// webhook, on the side matching the initiating gateway.
func (p *Payment) SetTransaction(gateway, txnID string) {
	if txnID == "" {
		return
	}
	switch gateway {
	case GatewayPaymob:
		p.PaymobTxnID = &txnID
	case GatewayPayPal:
		p.PayPalCaptureID = &txnID
	}
}
