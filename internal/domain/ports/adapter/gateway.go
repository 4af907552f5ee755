package adapter

import (
	"context"
	"net/http"

	"trainhub-billing/internal/domain/model"
)

// GatewayAdapter is the hex port for payment providers. One variant exists
// per provider; the inbound route selects the variant, so the payload shape
// is never inspected at runtime to pick a parser.
type GatewayAdapter interface {
	Name() string

	// Parse verifies payload authenticity and returns the normalized event.
	// A bad or missing signature yields domain.ErrVerificationFailed (wrapped);
	// no side effect may be applied for such payloads. Verification may block
	// on a remote confirmation call depending on the provider's scheme.
	Parse(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error)

	// CreateOrder registers a checkout with the provider and returns the
	// provider order/session id (stored on the payment as its correlation
	// identifier) and the redirect URL for the client.
	CreateOrder(ctx context.Context, p *model.Payment, description string) (orderID, redirectURL string, err error)
}
