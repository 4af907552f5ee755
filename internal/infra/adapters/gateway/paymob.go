package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
)

var _ adapter.GatewayAdapter = (*PaymobGateway)(nil)

// PaymobGateway implements adapter.GatewayAdapter for the Accept card/wallet
// processor. Webhooks carry an HMAC-SHA512 signature computed over a fixed,
// lexicographically ordered concatenation of transaction fields; amounts are
// minor-unit integers already.
type PaymobGateway struct {
	apiKey        string
	hmacSecret    []byte
	integrationID int64
	iframeID      string
	baseURL       string
	client        *http.Client
}

func NewPaymobGateway(apiKey, hmacSecret string, integrationID int64, iframeID, baseURL string) (*PaymobGateway, error) {
	if apiKey == "" || hmacSecret == "" {
		return nil, errors.New("paymob api key and hmac secret are required")
	}
	if baseURL == "" {
		baseURL = "https://accept.paymob.com"
	}
	return &PaymobGateway{
		apiKey:        apiKey,
		hmacSecret:    []byte(hmacSecret),
		integrationID: integrationID,
		iframeID:      iframeID,
		baseURL:       baseURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PaymobGateway) Name() string { return model.GatewayPaymob }

// paymobTxn is the transaction object inside webhook payloads. Booleans and
// nested fields take part in the signature in their string form.
type paymobTxn struct {
	ID    int64 `json:"id"`
	Order struct {
		ID int64 `json:"id"`
	} `json:"order"`
	AmountCents          int64  `json:"amount_cents"`
	Currency             string `json:"currency"`
	CreatedAt            string `json:"created_at"`
	Success              bool   `json:"success"`
	Pending              bool   `json:"pending"`
	IsRefunded           bool   `json:"is_refunded"`
	IsVoided             bool   `json:"is_voided"`
	IsAuth               bool   `json:"is_auth"`
	IsCapture            bool   `json:"is_capture"`
	Is3DSecure           bool   `json:"is_3d_secure"`
	IsStandalonePayment  bool   `json:"is_standalone_payment"`
	ErrorOccured         bool   `json:"error_occured"`
	HasParentTransaction bool   `json:"has_parent_transaction"`
	IntegrationID        int64  `json:"integration_id"`
	Owner                int64  `json:"owner"`
	SourceData           struct {
		Pan     string `json:"pan"`
		SubType string `json:"sub_type"`
		Type    string `json:"type"`
	} `json:"source_data"`
}

type paymobWebhook struct {
	Type string    `json:"type"`
	Obj  paymobTxn `json:"obj"`
}

func (g *PaymobGateway) Parse(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
	sig := headers.Get("X-Paymob-Hmac")
	if sig == "" {
		return nil, fmt.Errorf("%w: missing hmac", domain.ErrVerificationFailed)
	}

	var wh paymobWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", domain.ErrVerificationFailed, err)
	}
	if wh.Type != "TRANSACTION" {
		return nil, fmt.Errorf("%w: unexpected callback type %q", domain.ErrVerificationFailed, wh.Type)
	}

	if !g.verifySignature(&wh.Obj, sig) {
		return nil, fmt.Errorf("%w: hmac mismatch", domain.ErrVerificationFailed)
	}

	t := &wh.Obj
	ev := &model.GatewayEvent{
		Gateway:    model.GatewayPaymob,
		ID:         strconv.FormatInt(t.ID, 10),
		OrderID:    strconv.FormatInt(t.Order.ID, 10),
		TxnID:      strconv.FormatInt(t.ID, 10),
		Amount:     t.AmountCents,
		Currency:   t.Currency,
		OccurredAt: time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		ev.OccurredAt = ts
	}

	switch {
	case t.IsRefunded:
		ev.Type = model.EventRefund
	case t.IsVoided:
		ev.Type = model.EventCheckoutCancelled
	case t.Success && !t.Pending:
		ev.Type = model.EventCaptureCompleted
	case t.ErrorOccured || (!t.Success && !t.Pending):
		ev.Type = model.EventCaptureFailed
	default:
		return nil, fmt.Errorf("%w: unresolvable transaction state", domain.ErrInvalidArgument)
	}
	return ev, nil
}

// verifySignature rebuilds the documented field concatenation (lexicographic
// field order, booleans as "true"/"false") and compares HMAC-SHA512 digests.
func (g *PaymobGateway) verifySignature(t *paymobTxn, gotHex string) bool {
	b := func(v bool) string { return strconv.FormatBool(v) }
	concat := strconv.FormatInt(t.AmountCents, 10) +
		t.CreatedAt +
		t.Currency +
		b(t.ErrorOccured) +
		b(t.HasParentTransaction) +
		strconv.FormatInt(t.ID, 10) +
		strconv.FormatInt(t.IntegrationID, 10) +
		b(t.Is3DSecure) +
		b(t.IsAuth) +
		b(t.IsCapture) +
		b(t.IsRefunded) +
		b(t.IsStandalonePayment) +
		b(t.IsVoided) +
		strconv.FormatInt(t.Order.ID, 10) +
		strconv.FormatInt(t.Owner, 10) +
		b(t.Pending) +
		t.SourceData.Pan +
		t.SourceData.SubType +
		t.SourceData.Type +
		b(t.Success)

	mac := hmac.New(sha512.New, g.hmacSecret)
	mac.Write([]byte(concat))
	want := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(want), []byte(gotHex)) == 1
}

// CreateOrder runs the three-step Accept checkout registration: auth token,
// order registration, payment key. The returned order id is the correlation
// identifier webhooks report back.
func (g *PaymobGateway) CreateOrder(ctx context.Context, p *model.Payment, description string) (string, string, error) {
	token, err := g.authToken(ctx)
	if err != nil {
		return "", "", err
	}

	orderID, err := g.registerOrder(ctx, token, p)
	if err != nil {
		return "", "", err
	}

	payToken, err := g.paymentKey(ctx, token, orderID, p)
	if err != nil {
		return "", "", err
	}

	redirect := fmt.Sprintf("%s/api/acceptance/iframes/%s?payment_token=%s", g.baseURL, g.iframeID, payToken)
	return strconv.FormatInt(orderID, 10), redirect, nil
}

func (g *PaymobGateway) authToken(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := g.post(ctx, "/api/auth/tokens", map[string]any{"api_key": g.apiKey}, &out); err != nil {
		return "", fmt.Errorf("paymob auth: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("paymob auth: empty token")
	}
	return out.Token, nil
}

func (g *PaymobGateway) registerOrder(ctx context.Context, token string, p *model.Payment) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	payload := map[string]any{
		"auth_token":        token,
		"delivery_needed":   false,
		"amount_cents":      p.Amount,
		"currency":          p.Currency,
		"merchant_order_id": p.ID,
		"items":             []any{},
	}
	if err := g.post(ctx, "/api/ecommerce/orders", payload, &out); err != nil {
		return 0, fmt.Errorf("paymob order: %w", err)
	}
	if out.ID == 0 {
		return 0, errors.New("paymob order: empty order id")
	}
	return out.ID, nil
}

func (g *PaymobGateway) paymentKey(ctx context.Context, token string, orderID int64, p *model.Payment) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	payload := map[string]any{
		"auth_token":     token,
		"amount_cents":   p.Amount,
		"currency":       p.Currency,
		"order_id":       orderID,
		"integration_id": g.integrationID,
		"expiration":     3600,
		"billing_data":   map[string]any{"email": "NA", "phone_number": "NA", "first_name": "NA", "last_name": "NA"},
	}
	if err := g.post(ctx, "/api/acceptance/payment_keys", payload, &out); err != nil {
		return "", fmt.Errorf("paymob payment key: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("paymob payment key: empty token")
	}
	return out.Token, nil
}

func (g *PaymobGateway) post(ctx context.Context, path string, payload any, out any) error {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
