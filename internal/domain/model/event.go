package model

import "time"

// Supported gateway names. Inbound routes select the adapter, never the payload.
const (
	GatewayPaymob = "paymob"
	GatewayPayPal = "paypal"
)

type EventType string

const (
	EventCaptureCompleted  EventType = "capture-completed"
	EventCaptureFailed     EventType = "capture-failed"
	EventRefund            EventType = "refund"
	EventCheckoutExpired   EventType = "checkout-expired"
	EventCheckoutCancelled EventType = "checkout-cancelled"
)

// GatewayEvent is the normalized form of one inbound webhook notification.
// It is transient: only the (gateway, event id) key outlives reconciliation,
// as an idempotency ledger entry.
type GatewayEvent struct {
	Gateway    string
	ID         string // gateway-issued event id, unique per gateway
	Type       EventType
	OrderID    string // gateway order/session id used for correlation
	TxnID      string // gateway capture/transaction id
	Amount     int64  // minor units, adapter-normalized
	Currency   string // ISO 4217, adapter-normalized
	OccurredAt time.Time
}
