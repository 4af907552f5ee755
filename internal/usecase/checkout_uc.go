package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/domain/ports/repository"
	"trainhub-billing/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// Start creates (or reuses) the unpaid subscription for the client and
	// package, creates a pending payment, registers an order with the chosen
	// gateway and returns the payment plus the redirect URL.
	Start(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error)
	// Abandon cancels a still-pending checkout payment.
	Abandon(ctx context.Context, paymentID string) error
}

type checkoutUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	packages repository.PackageRepository
	tm       repository.TransactionManager
	gateways map[string]adapter.GatewayAdapter
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	tm repository.TransactionManager,
	gateways []adapter.GatewayAdapter,
	logger *zerolog.Logger,
) *checkoutUC {
	byName := make(map[string]adapter.GatewayAdapter, len(gateways))
	for _, g := range gateways {
		byName[g.Name()] = g
	}
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		payments: payments,
		subs:     subs,
		packages: packages,
		tm:       tm,
		gateways: byName,
		log:      &l,
	}
}

func (u *checkoutUC) Start(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error) {
	gw, ok := u.gateways[gateway]
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown gateway %q", domain.ErrInvalidArgument, gateway)
	}
	pkg, err := u.packages.FindByID(ctx, nil, packageID)
	if err != nil {
		return nil, "", err
	}

	// Reuse a lapsed/unpaid enrollment for retried checkouts; an active one
	// is a conflict, not a second subscription.
	sub, err := u.subs.FindLiveByClientAndPackage(ctx, nil, clientID, packageID)
	switch {
	case err == nil && sub.Status == model.SubscriptionStatusActive:
		return nil, "", domain.ErrConflictingSubscription
	case errors.Is(err, domain.ErrNotFound):
		sub, err = model.NewSubscription(uuid.NewString(), clientID, packageID)
		if err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", err
	}

	p, err := model.NewPayment(uuid.NewString(), sub.ID, clientID, pkg.PriceAmount, pkg.Currency, method)
	if err != nil {
		return nil, "", err
	}

	// The remote order request happens before any row exists; on failure
	// nothing was persisted.
	orderID, redirectURL, err := gw.CreateOrder(ctx, p, pkg.Name)
	if err != nil {
		return nil, "", fmt.Errorf("create %s order: %w", gateway, err)
	}
	if err := p.SetCorrelation(gateway, orderID); err != nil {
		return nil, "", err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Re-check under the transaction so two concurrent checkouts for the
		// same pair cannot both create a subscription.
		if live, err := u.subs.FindLiveByClientAndPackage(ctx, tx, clientID, packageID); err == nil && live.ID != sub.ID {
			return domain.ErrConflictingSubscription
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		return u.payments.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, "", err
	}

	metrics.IncPaymentTransition(string(model.PaymentStatusPending))
	u.log.Info().
		Str("payment_id", p.ID).
		Str("subscription_id", sub.ID).
		Str("gateway", gateway).
		Int64("amount", p.Amount).
		Str("currency", p.Currency).
		Msg("checkout started")
	return p, redirectURL, nil
}

func (u *checkoutUC) Abandon(ctx context.Context, paymentID string) error {
	ok, err := u.payments.UpdateStatusIf(ctx, nil, paymentID, model.PaymentStatusPending, model.PaymentStatusCanceled)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	metrics.IncPaymentTransition(string(model.PaymentStatusCanceled))
	return nil
}
