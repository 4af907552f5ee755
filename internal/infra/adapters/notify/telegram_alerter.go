package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*TelegramAlerter)(nil)

// TelegramAlerter forwards every notification to a fallback sink and pushes
// reconcile alerts to an operator chat. Alert delivery failures are logged
// but never propagated; alerting stays best-effort.
type TelegramAlerter struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	fallback adapter.Notifier
	log      *zerolog.Logger
}

func NewTelegramAlerter(token string, chatID int64, fallback adapter.Notifier, logger *zerolog.Logger) (*TelegramAlerter, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram alerter: token and chat id are required")
	}
	if fallback == nil {
		return nil, errors.New("telegram alerter: fallback notifier is nil")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "telegram-alerter").Logger()
	return &TelegramAlerter{bot: bot, chatID: chatID, fallback: fallback, log: &l}, nil
}

func (a *TelegramAlerter) Notify(ctx context.Context, n adapter.Notification) error {
	if err := a.fallback.Notify(ctx, n); err != nil {
		a.log.Warn().Err(err).Str("notification_id", n.ID).Msg("fallback notify failed")
	}
	if n.Kind != adapter.NotifyReconcileAlert {
		return nil
	}

	text := fmt.Sprintf(
		"⚠️ Reconcile alert\npayment: %s\nclient: %s\namount: %d %s\nreason: %s",
		n.PaymentID, n.ClientID, n.Amount, n.Currency, n.Reason,
	)
	msg := tgbotapi.NewMessage(a.chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		a.log.Error().Err(err).Str("payment_id", n.PaymentID).Msg("alert delivery failed")
	}
	return nil
}
