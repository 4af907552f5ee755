package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/domain/ports/repository"
	"trainhub-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// PaymentLocker serializes reconciliation of events that correlate to the
// same payment. Events for different payments proceed in parallel.
type PaymentLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// ReconcileOutcome is the result of applying one verified gateway event.
type ReconcileOutcome struct {
	PaymentID string
	// Duplicate means the event id was already applied; the call is a
	// success-shaped no-op so the gateway stops retrying.
	Duplicate bool
	// Alert means the event was logically invalid (amount mismatch, stale
	// transition, subscription conflict). Nothing was applied, operators are
	// alerted, and the call is still acknowledged: retrying cannot fix it.
	Alert       bool
	AlertReason string
	// Applied payment/subscription statuses after the event, for logging.
	PaymentStatus      model.PaymentStatus
	SubscriptionStatus model.SubscriptionStatus
}

type ReconcileUseCase interface {
	// HandleEvent runs the full pipeline for one normalized event:
	// deduplicate, correlate, apply payment transition, compute fees, apply
	// subscription transition, persist as one unit, then emit a best-effort
	// notification. The returned error is limited to verification-free
	// rejections (unknown order, bad input) and infrastructure failures; the
	// gateway retries on those.
	HandleEvent(ctx context.Context, ev *model.GatewayEvent) (*ReconcileOutcome, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	packages repository.PackageRepository
	ledger   repository.LedgerRepository
	tm       repository.TransactionManager
	locker   PaymentLocker
	notifier adapter.Notifier
	timeout  time.Duration
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	ledger repository.LedgerRepository,
	tm repository.TransactionManager,
	locker PaymentLocker,
	notifier adapter.Notifier,
	timeout time.Duration,
	logger *zerolog.Logger,
) *reconcileUC {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments: payments,
		subs:     subs,
		packages: packages,
		ledger:   ledger,
		tm:       tm,
		locker:   locker,
		notifier: notifier,
		timeout:  timeout,
		log:      &l,
	}
}

func (r *reconcileUC) HandleEvent(ctx context.Context, ev *model.GatewayEvent) (*ReconcileOutcome, error) {
	if ev == nil || ev.Gateway == "" || ev.ID == "" || ev.Type == "" || ev.OrderID == "" {
		return nil, domain.ErrInvalidArgument
	}

	// Bounded time budget for the whole pipeline. On timeout the transaction
	// rolls back with no partial side effects and the gateway retries.
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ObserveReconcile(ev.Gateway, time.Since(start).Seconds())
	}()

	// Per-payment mutual exclusion. Two events for the same gateway order
	// correlate to the same payment, so the order id is a sufficient key.
	lockKey := fmt.Sprintf("reconcile:%s:%s", ev.Gateway, ev.OrderID)
	token, err := r.locker.TryLock(ctx, lockKey, r.timeout+5*time.Second)
	if err != nil {
		return nil, domain.ErrLockNotAcquired
	}
	defer func() {
		if uerr := r.locker.Unlock(context.Background(), lockKey, token); uerr != nil {
			r.log.Warn().Err(uerr).Str("key", lockKey).Msg("unlock failed; ttl will reclaim")
		}
	}()

	out := &ReconcileOutcome{}
	var notif *adapter.Notification

	txErr := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		claimed, err := r.ledger.Claim(ctx, tx, ev.Gateway, ev.ID)
		if err != nil {
			return err
		}
		if !claimed {
			out.Duplicate = true
			return nil
		}

		p, err := r.payments.FindByGatewayOrder(ctx, tx, ev.Gateway, ev.OrderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Rolls back the ledger claim, so a legitimate late-arriving
				// correlation can still be retried by the gateway.
				return domain.ErrUnknownOrder
			}
			return err
		}
		out.PaymentID = p.ID
		out.PaymentStatus = p.Status

		n, err := r.apply(ctx, tx, p, ev)
		if err != nil {
			return err
		}
		out.PaymentStatus = p.Status
		notif = n
		return nil
	})

	switch {
	case txErr == nil:
		// fallthrough to acknowledgment below
	case errors.Is(txErr, domain.ErrAmountMismatch),
		errors.Is(txErr, domain.ErrInvalidTransition),
		errors.Is(txErr, domain.ErrConflictingSubscription):
		// Logically invalid events are acknowledged but never applied;
		// redelivery would fail the same way, so alert instead of retrying.
		out.Alert = true
		out.AlertReason = txErr.Error()
		metrics.IncReconcileAlert(ev.Gateway, string(ev.Type))
		r.log.Error().
			Str("gateway", ev.Gateway).
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Str("order_id", ev.OrderID).
			Str("reason", out.AlertReason).
			Msg("reconciliation alert")
		notif = &adapter.Notification{
			Kind:      adapter.NotifyReconcileAlert,
			PaymentID: out.PaymentID,
			Amount:    ev.Amount,
			Currency:  ev.Currency,
			Reason:    out.AlertReason,
		}
	default:
		return nil, txErr
	}

	if out.Duplicate {
		metrics.IncWebhook(ev.Gateway, "duplicate")
		r.log.Debug().Str("gateway", ev.Gateway).Str("event_id", ev.ID).Msg("duplicate event acknowledged")
		return out, nil
	}
	if !out.Alert {
		metrics.IncWebhook(ev.Gateway, "applied")
	}

	// Best-effort: a failed notification must never block or roll back the
	// financial transition that already committed.
	if notif != nil {
		notif.ID = newNotificationID()
		if err := r.notifier.Notify(ctx, *notif); err != nil {
			r.log.Warn().Err(err).Str("kind", string(notif.Kind)).Msg("notification delivery failed")
		}
	}
	return out, nil
}

// apply mutates the payment (and possibly its subscription) for one event
// type. It runs with the payment row locked and returns the notification to
// emit after commit.
func (r *reconcileUC) apply(ctx context.Context, tx repository.Tx, p *model.Payment, ev *model.GatewayEvent) (*adapter.Notification, error) {
	now := time.Now()

	switch ev.Type {
	case model.EventCaptureCompleted:
		if err := p.VerifyAmount(ev.Amount, ev.Currency); err != nil {
			return nil, err
		}
		// A capture confirmation may arrive before any in-flight notice;
		// route pending through processing rather than rejecting it.
		if p.Status == model.PaymentStatusPending {
			if err := p.TransitionTo(model.PaymentStatusProcessing, now); err != nil {
				return nil, err
			}
		}
		if err := p.TransitionTo(model.PaymentStatusCompleted, now); err != nil {
			return nil, err
		}
		p.SetTransaction(ev.Gateway, ev.TxnID)

		sub, err := r.subs.FindByID(ctx, tx, p.SubscriptionID)
		if err != nil {
			return nil, err
		}
		pkg, err := r.packages.FindByID(ctx, tx, sub.PackageID)
		if err != nil {
			return nil, err
		}

		fee, payout, err := model.SplitAmount(p.Amount, pkg.EffectiveFeePercent())
		if err != nil {
			return nil, err
		}
		p.ApplySplit(fee, payout)

		// Duplicate-activation guard: another live subscription for the same
		// (client, package) means this one must not activate.
		if live, err := r.subs.FindLiveByClientAndPackage(ctx, tx, sub.ClientID, sub.PackageID); err == nil && live.ID != sub.ID {
			return nil, domain.ErrConflictingSubscription
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err := sub.Activate(pkg, p.Amount, now); err != nil {
			return nil, err
		}
		if err := r.subs.Save(ctx, tx, sub); err != nil {
			return nil, err
		}
		if err := r.payments.Save(ctx, tx, p); err != nil {
			return nil, err
		}
		metrics.IncPaymentTransition(string(model.PaymentStatusCompleted))
		metrics.AddRevenue(p.Currency, p.Amount, p.PlatformFee, p.TrainerPayout)
		metrics.IncSubscriptionActivated()
		return &adapter.Notification{
			Kind:      adapter.NotifyPaymentCompleted,
			PaymentID: p.ID,
			ClientID:  p.ClientID,
			Amount:    p.Amount,
			Currency:  p.Currency,
		}, nil

	case model.EventCaptureFailed, model.EventCheckoutExpired:
		if err := p.TransitionTo(model.PaymentStatusFailed, now); err != nil {
			return nil, err
		}
		reason := failureReason(ev.Type)
		p.FailureReason = &reason
		p.SetTransaction(ev.Gateway, ev.TxnID)
		if err := r.payments.Save(ctx, tx, p); err != nil {
			return nil, err
		}
		// The owning subscription stays unpaid; a retried checkout creates a
		// fresh payment attempt for it.
		metrics.IncPaymentTransition(string(model.PaymentStatusFailed))
		return &adapter.Notification{
			Kind:      adapter.NotifyPaymentFailed,
			PaymentID: p.ID,
			ClientID:  p.ClientID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Reason:    reason,
		}, nil

	case model.EventCheckoutCancelled:
		if err := p.TransitionTo(model.PaymentStatusCanceled, now); err != nil {
			return nil, err
		}
		if err := r.payments.Save(ctx, tx, p); err != nil {
			return nil, err
		}
		metrics.IncPaymentTransition(string(model.PaymentStatusCanceled))
		return nil, nil

	case model.EventRefund:
		// Refunds reported before the completion was recorded are stale and
		// must not corrupt state; completed -> refunded is the only legal path.
		if err := p.VerifyAmount(ev.Amount, ev.Currency); err != nil {
			return nil, err
		}
		if err := p.TransitionTo(model.PaymentStatusRefunded, now); err != nil {
			return nil, err
		}
		if err := r.payments.Save(ctx, tx, p); err != nil {
			return nil, err
		}
		// No reverse effect on the subscription: a refund after independent
		// cancellation leaves the terminal subscription state untouched.
		metrics.IncPaymentTransition(string(model.PaymentStatusRefunded))
		return &adapter.Notification{
			Kind:      adapter.NotifyPaymentRefunded,
			PaymentID: p.ID,
			ClientID:  p.ClientID,
			Amount:    p.Amount,
			Currency:  p.Currency,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", domain.ErrInvalidArgument, ev.Type)
	}
}

func failureReason(t model.EventType) string {
	if t == model.EventCheckoutExpired {
		return "checkout expired"
	}
	return "capture failed"
}

func newNotificationID() string {
	return ulid.Make().String()
}
