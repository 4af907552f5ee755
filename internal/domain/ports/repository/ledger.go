package repository

import "context"

// -----------------------------
// Idempotency Ledger
// -----------------------------

// LedgerRepository records which (gateway, event id) pairs have already been
// applied. Entries are write-once: a duplicate key is a replay.
type LedgerRepository interface {
	// Claim atomically inserts the key and reports whether this caller won.
	// claimed=false means the event was already applied and every side effect
	// must be skipped (while still acknowledging the gateway).
	//
	// Called inside the reconciliation transaction, the claim is durable only
	// once the transaction commits; a rollback releases it so the gateway's
	// retry can succeed later.
	Claim(ctx context.Context, tx Tx, gateway, eventID string) (claimed bool, err error)
}
