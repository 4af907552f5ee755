package repository

import (
	"context"
	"time"

	"trainhub-billing/internal/domain/model"
)

// SubscriptionRepository is the port for client subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindLiveByClientAndPackage returns the active/unpaid subscription for
	// the (client, package) pair, or ErrNotFound. At most one may exist.
	FindLiveByClientAndPackage(ctx context.Context, tx Tx, clientID, packageID string) (*model.Subscription, error)
	// ListActiveExpiredBy returns active subscriptions whose period end has
	// passed, for the expiry worker.
	ListActiveExpiredBy(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Subscription, error)
}
