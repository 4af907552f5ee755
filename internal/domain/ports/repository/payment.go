package repository

import (
	"context"
	"time"

	"trainhub-billing/internal/domain/model"
)

// PaymentRepository is the port for payment persistence. The orchestrator is
// the only writer of payment status fields.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByGatewayOrder resolves a gateway order/session id to the payment
	// whose correlation pair for that gateway was stored at initiation time.
	// Inside a transaction the row is locked FOR UPDATE.
	FindByGatewayOrder(ctx context.Context, tx Tx, gateway, orderID string) (*model.Payment, error)
	// UpdateStatusIf conditionally moves a payment out of expected, returning
	// false when the row was already past it. This is the authoritative guard
	// against two concurrent applies of the same transition.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, expected, next model.PaymentStatus) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Payment, error)
	// RevenueSince sums gross, fee and payout over completed payments.
	RevenueSince(ctx context.Context, tx Tx, since time.Time) (gross, fee, payout int64, err error)
	SoftDelete(ctx context.Context, tx Tx, id string) error
}
