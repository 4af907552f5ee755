package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/repository"
	"trainhub-billing/internal/infra/metrics"
)

// CheckoutReaper periodically fails pending payments whose checkout was never
// completed. This covers clients who walked away and gateways whose expiry
// webhook was lost. The conditional update keeps it safe against a webhook
// landing mid-sweep.
type CheckoutReaper struct {
	payments repository.PaymentRepository
	interval time.Duration
	maxAge   time.Duration
	log      *zerolog.Logger
}

func NewCheckoutReaper(payments repository.PaymentRepository, interval, maxAge time.Duration, logger *zerolog.Logger) *CheckoutReaper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	l := logger.With().Str("component", "CheckoutReaper").Logger()
	return &CheckoutReaper{payments: payments, interval: interval, maxAge: maxAge, log: &l}
}

func (w *CheckoutReaper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting checkout reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping checkout reaper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CheckoutReaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.maxAge)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending payments failed")
		return
	}

	reaped := 0
	for _, p := range pending {
		ok, err := w.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusPending, model.PaymentStatusFailed)
		if err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("reap failed")
			continue
		}
		if ok {
			metrics.IncPaymentTransition(string(model.PaymentStatusFailed))
			reaped++
		}
	}
	if reaped > 0 {
		w.log.Info().Int("count", reaped).Msg("stale checkouts failed")
	}
}
