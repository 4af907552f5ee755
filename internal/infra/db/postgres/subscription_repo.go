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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, client_id, package_id, amount_paid, status, start_date, current_period_end, created_at`

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.ClientID, &s.PackageID, &s.AmountPaid, &s.Status, &s.StartDate, &s.CurrentPeriodEnd, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  amount_paid=EXCLUDED.amount_paid,
  status=EXCLUDED.status,
  start_date=EXCLUDED.start_date,
  current_period_end=EXCLUDED.current_period_end;`
	_, err := execSQL(ctx, r.pool, tx, q,
		sub.ID, sub.ClientID, sub.PackageID, sub.AmountPaid, sub.Status, sub.StartDate, sub.CurrentPeriodEnd, sub.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindLiveByClientAndPackage(ctx context.Context, tx repository.Tx, clientID, packageID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE client_id=$1 AND package_id=$2 AND status IN ('active','unpaid')`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+" LIMIT 1;", clientID, packageID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListActiveExpiredBy(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status='active' AND current_period_end <= $1 ORDER BY current_period_end ASC LIMIT $2`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", cutoff, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
