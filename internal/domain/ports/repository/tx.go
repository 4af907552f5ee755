package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept a nil handle
// and fall back to the pool.
type Tx interface{}

// TransactionManager executes fn within a database transaction, passing the
// underlying handle via tx. Keeping the handle opaque keeps use-case
// interfaces free of storage types while still letting repositories run
// SELECT ... FOR UPDATE and tx-bound Exec/Query.
//
// The reconciliation pipeline relies on this heavily: the idempotency ledger
// claim and every payment/subscription mutation commit as one unit, so a
// persistence failure rolls the claim back with everything else.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
