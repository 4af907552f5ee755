package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

// ledgerRepo implements the idempotency ledger over an append-only
// webhook_events table keyed by (gateway, event_id).
type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

// Claim is compare-and-insert: exactly one caller per key sees claimed=true.
// ON CONFLICT DO NOTHING keeps concurrent duplicates from erroring out; a
// serialization failure surfaces as a unique violation and is treated as an
// existing claim.
func (r *ledgerRepo) Claim(ctx context.Context, tx repository.Tx, gateway, eventID string) (bool, error) {
	if gateway == "" || eventID == "" {
		return false, domain.ErrInvalidArgument
	}
	const q = `INSERT INTO webhook_events (gateway, event_id, applied_at) VALUES ($1,$2,NOW()) ON CONFLICT (gateway, event_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, gateway, eventID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}
