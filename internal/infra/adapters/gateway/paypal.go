package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
)

var _ adapter.GatewayAdapter = (*PayPalGateway)(nil)

// PayPalGateway implements adapter.GatewayAdapter for PayPal. Webhook
// authenticity uses the certificate/transmission-id scheme: the signature
// cannot be checked locally, so Parse makes a blocking call to PayPal's
// verify-webhook-signature endpoint. Amounts arrive as decimal strings and
// are normalized to minor units without going through floats.
type PayPalGateway struct {
	clientID     string
	clientSecret string
	webhookID    string
	returnURL    string
	baseURL      string
	client       *http.Client
}

func NewPayPalGateway(clientID, clientSecret, webhookID, returnURL string, sandbox bool) (*PayPalGateway, error) {
	if clientID == "" || clientSecret == "" || webhookID == "" {
		return nil, errors.New("paypal client id, secret and webhook id are required")
	}
	base := "https://api-m.paypal.com"
	if sandbox {
		base = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		webhookID:    webhookID,
		returnURL:    returnURL,
		baseURL:      base,
		client:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PayPalGateway) Name() string { return model.GatewayPayPal }

type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	CreateTs  string `json:"create_time"`
	Resource  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"amount"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func (g *PayPalGateway) Parse(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
	if err := g.verifyTransmission(ctx, body, headers); err != nil {
		return nil, err
	}

	var pe paypalEvent
	if err := json.Unmarshal(body, &pe); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", domain.ErrVerificationFailed, err)
	}
	if pe.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", domain.ErrVerificationFailed)
	}

	var evType model.EventType
	switch pe.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		evType = model.EventCaptureCompleted
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		evType = model.EventCaptureFailed
	case "PAYMENT.CAPTURE.REFUNDED":
		evType = model.EventRefund
	case "CHECKOUT.ORDER.VOIDED":
		evType = model.EventCheckoutCancelled
	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", domain.ErrInvalidArgument, pe.EventType)
	}

	amount, err := parseDecimalMinor(pe.Resource.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", domain.ErrInvalidArgument, pe.Resource.Amount.Value)
	}

	ev := &model.GatewayEvent{
		Gateway:    model.GatewayPayPal,
		ID:         pe.ID,
		Type:       evType,
		OrderID:    pe.Resource.SupplementaryData.RelatedIDs.OrderID,
		TxnID:      pe.Resource.ID,
		Amount:     amount,
		Currency:   pe.Resource.Amount.CurrencyCode,
		OccurredAt: time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339, pe.CreateTs); err == nil {
		ev.OccurredAt = ts
	}
	return ev, nil
}

// verifyTransmission posts the raw event with its transmission headers to
// PayPal for server-side signature confirmation.
func (g *PayPalGateway) verifyTransmission(ctx context.Context, body []byte, headers http.Header) error {
	required := []string{"Paypal-Transmission-Id", "Paypal-Transmission-Sig", "Paypal-Cert-Url", "Paypal-Transmission-Time", "Paypal-Auth-Algo"}
	for _, h := range required {
		if headers.Get(h) == "" {
			return fmt.Errorf("%w: missing header %s", domain.ErrVerificationFailed, h)
		}
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("paypal oauth: %w", err)
	}

	payload := map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        g.webhookID,
		"webhook_event":     json.RawMessage(body),
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal verify call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: verify http %d", domain.ErrVerificationFailed, resp.StatusCode)
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("%w: verification_status=%s", domain.ErrVerificationFailed, out.VerificationStatus)
	}
	return nil
}

// CreateOrder registers a CAPTURE-intent order and returns its id plus the
// payer approval link.
func (g *PayPalGateway) CreateOrder(ctx context.Context, p *model.Payment, description string) (string, string, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return "", "", fmt.Errorf("paypal oauth: %w", err)
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": p.ID,
			"description":  description,
			"amount": map[string]any{
				"currency_code": p.Currency,
				"value":         formatDecimalMinor(p.Amount),
			},
		}},
		"application_context": map[string]any{
			"return_url": g.returnURL,
		},
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v2/checkout/orders", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("paypal order http %d", resp.StatusCode)
	}
	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.ID == "" {
		return "", "", errors.New("paypal order: empty id")
	}
	approve := ""
	for _, l := range out.Links {
		if l.Rel == "approve" {
			approve = l.Href
		}
	}
	return out.ID, approve, nil
}

func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("oauth http %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return out.AccessToken, nil
}
