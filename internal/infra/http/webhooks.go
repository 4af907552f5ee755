package http

import (
	"errors"
	"io"
	"net/http"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/infra/logging"
	"trainhub-billing/internal/infra/metrics"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// webhookHandler serves one provider's callback route. The route, not the
// payload, selects the adapter.
func (s *Server) webhookHandler(gw adapter.GatewayAdapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		l := logging.With(ctx, s.log)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}

		ev, err := gw.Parse(ctx, body, r.Header)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrVerificationFailed):
				metrics.IncWebhook(gw.Name(), "verification-failed")
				l.Warn().Err(err).Str("gateway", gw.Name()).Msg("webhook rejected: verification failed")
				http.Error(w, "verification failed", http.StatusUnauthorized)
			case errors.Is(err, domain.ErrInvalidArgument):
				// Unsupported or unresolvable events are acknowledged so the
				// provider stops retrying something we will never apply.
				metrics.IncWebhook(gw.Name(), "ignored")
				l.Info().Err(err).Str("gateway", gw.Name()).Msg("webhook ignored")
				writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			default:
				l.Error().Err(err).Str("gateway", gw.Name()).Msg("webhook parse failed")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		out, err := s.reconcileUC.HandleEvent(ctx, ev)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnknownOrder):
				metrics.IncWebhook(gw.Name(), "unknown-order")
				l.Warn().Str("gateway", gw.Name()).Str("order_id", ev.OrderID).Msg("webhook for unknown order")
				http.Error(w, "unknown order", http.StatusNotFound)
			case errors.Is(err, domain.ErrLockNotAcquired):
				// Another event for the same payment is mid-flight; the
				// provider retries later.
				http.Error(w, "busy, retry", http.StatusServiceUnavailable)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, "bad event", http.StatusBadRequest)
			default:
				l.Error().Err(err).Str("gateway", gw.Name()).Str("event_id", ev.ID).Msg("reconcile failed")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		resp := webhookResponse{
			Status:    "applied",
			PaymentID: out.PaymentID,
		}
		switch {
		case out.Duplicate:
			resp.Status = "duplicate"
		case out.Alert:
			resp.Status = "alert-acknowledged"
			resp.Reason = out.AlertReason
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type webhookResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
