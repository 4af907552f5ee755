package notify

import (
	"context"

	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the structured log. It is the default
// sink and the fallback when no alerter is configured.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, notif adapter.Notification) error {
	ev := n.log.Info()
	if notif.Kind == adapter.NotifyReconcileAlert {
		ev = n.log.Warn()
	}
	ev.Str("notification_id", notif.ID).
		Str("kind", string(notif.Kind)).
		Str("payment_id", notif.PaymentID).
		Str("client_id", notif.ClientID).
		Int64("amount", notif.Amount).
		Str("currency", notif.Currency).
		Str("reason", notif.Reason).
		Msg("notification")
	return nil
}
