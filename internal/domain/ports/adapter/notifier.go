package adapter

import "context"

type NotificationKind string

const (
	NotifyPaymentCompleted NotificationKind = "payment-completed"
	NotifyPaymentFailed    NotificationKind = "payment-failed"
	NotifyPaymentRefunded  NotificationKind = "payment-refunded"
	// NotifyReconcileAlert flags conditions that may indicate gateway
	// misconfiguration or fraud (amount mismatch, invalid transition,
	// conflicting subscription) for operator attention.
	NotifyReconcileAlert NotificationKind = "reconcile-alert"
)

// Notification is the outbound domain event handed to external collaborators
// (client/trainer email, admin alerting). Delivery transport is out of scope.
type Notification struct {
	ID        string // ULID, sortable
	Kind      NotificationKind
	PaymentID string
	ClientID  string
	Amount    int64
	Currency  string
	Reason    string // optional detail for failures/alerts
}

// Notifier receives domain notifications. Emission is best-effort: a failed
// notification never blocks or rolls back a financial transition.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
