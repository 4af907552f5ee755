package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

const paymentColumns = `id, subscription_id, client_id, amount, currency, platform_fee, trainer_payout, status, method, paymob_order_id, paymob_txn_id, paypal_order_id, paypal_capture_id, failure_reason, created_at, updated_at, paid_at, failed_at, deleted_at`

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(
		&p.ID, &p.SubscriptionID, &p.ClientID, &p.Amount, &p.Currency,
		&p.PlatformFee, &p.TrainerPayout, &p.Status, &p.Method,
		&p.PaymobOrderID, &p.PaymobTxnID, &p.PayPalOrderID, &p.PayPalCaptureID,
		&p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.FailedAt, &p.DeletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
) ON CONFLICT (id) DO UPDATE SET
  platform_fee=EXCLUDED.platform_fee,
  trainer_payout=EXCLUDED.trainer_payout,
  status=EXCLUDED.status,
  paymob_order_id=EXCLUDED.paymob_order_id,
  paymob_txn_id=EXCLUDED.paymob_txn_id,
  paypal_order_id=EXCLUDED.paypal_order_id,
  paypal_capture_id=EXCLUDED.paypal_capture_id,
  failure_reason=EXCLUDED.failure_reason,
  updated_at=EXCLUDED.updated_at,
  paid_at=EXCLUDED.paid_at,
  failed_at=EXCLUDED.failed_at,
  deleted_at=EXCLUDED.deleted_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.SubscriptionID, p.ClientID, p.Amount, p.Currency,
		p.PlatformFee, p.TrainerPayout, p.Status, p.Method,
		p.PaymobOrderID, p.PaymobTxnID, p.PayPalOrderID, p.PayPalCaptureID,
		p.FailureReason, p.CreatedAt, p.UpdatedAt, p.PaidAt, p.FailedAt, p.DeletedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1 AND deleted_at IS NULL`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayOrder(ctx context.Context, tx repository.Tx, gateway, orderID string) (*model.Payment, error) {
	var col string
	switch gateway {
	case model.GatewayPaymob:
		col = "paymob_order_id"
	case model.GatewayPayPal:
		col = "paypal_order_id"
	default:
		return nil, domain.ErrInvalidArgument
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + col + `=$1 AND deleted_at IS NULL`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", orderID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// UpdateStatusIf atomically moves a payment out of expected; false means the
// row was already past it and the caller must treat the update as stale.
func (r *paymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, expected, next model.PaymentStatus) (bool, error) {
	const q = `
UPDATE payments
   SET status=$3,
       failed_at=CASE WHEN $3='failed' AND failed_at IS NULL THEN NOW() ELSE failed_at END,
       updated_at=NOW()
 WHERE id=$1 AND status=$2 AND deleted_at IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(expected), string(next))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 AND deleted_at IS NULL ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) RevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, int64, int64, error) {
	const q = `
SELECT COALESCE(SUM(amount),0), COALESCE(SUM(platform_fee),0), COALESCE(SUM(trainer_payout),0)
  FROM payments
 WHERE status IN ('completed','refunded') AND paid_at >= $1 AND deleted_at IS NULL;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, 0, 0, err
	}
	var gross, fee, payout int64
	if err := row.Scan(&gross, &fee, &payout); err != nil {
		return 0, 0, 0, domain.ErrReadDatabaseRow
	}
	return gross, fee, payout, nil
}

func (r *paymentRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE payments SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
