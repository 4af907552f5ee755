package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/repository"
	"trainhub-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	Get(ctx context.Context, id string) (*model.Subscription, error)
	// Cancel moves an active or unpaid subscription to cancelled, regardless
	// of payment state. Explicit external trigger.
	Cancel(ctx context.Context, id string) error
	// FinishExpired moves active subscriptions past their period end to
	// expired and returns how many were finished. Called by the expiry worker.
	FinishExpired(ctx context.Context) (int, error)
	// Lapse moves an active subscription back to unpaid for the grace-period
	// renewal flow. Never applied silently: it is logged and counted.
	Lapse(ctx context.Context, id string) error
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	tm   repository.TransactionManager
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, tm: tm, log: &l}
}

func (u *subscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return u.subs.FindByID(ctx, nil, id)
}

func (u *subscriptionUC) Cancel(ctx context.Context, id string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := sub.Cancel(); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		metrics.IncSubscriptionCancelled()
		u.log.Info().Str("subscription_id", id).Msg("subscription cancelled")
		return nil
	})
}

func (u *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	finished := 0
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		expired, err := u.subs.ListActiveExpiredBy(ctx, tx, now, 200)
		if err != nil {
			return err
		}
		for _, sub := range expired {
			if err := sub.Expire(now); err != nil {
				// Raced with a renewal or cancellation; skip.
				continue
			}
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
			finished++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return finished, nil
}

func (u *subscriptionUC) Lapse(ctx context.Context, id string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := sub.Lapse(); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		u.log.Warn().Str("subscription_id", id).Msg("subscription lapsed to unpaid; awaiting renewal payment")
		return nil
	})
}
