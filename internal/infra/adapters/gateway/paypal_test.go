//go:build !integration

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
)

func paypalHeaders() http.Header {
	h := http.Header{}
	h.Set("Paypal-Transmission-Id", "tx-123")
	h.Set("Paypal-Transmission-Sig", "sig")
	h.Set("Paypal-Transmission-Time", "2026-02-10T12:00:00Z")
	h.Set("Paypal-Cert-Url", "https://api.paypal.com/cert.pem")
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	return h
}

func captureCompletedBody(eventID, orderID, captureID, value string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":          eventID,
		"event_type":  "PAYMENT.CAPTURE.COMPLETED",
		"create_time": "2026-02-10T12:00:00Z",
		"resource": map[string]any{
			"id": captureID,
			"amount": map[string]any{
				"value":         value,
				"currency_code": "USD",
			},
			"supplementary_data": map[string]any{
				"related_ids": map[string]any{"order_id": orderID},
			},
		},
	})
	return body
}

// paypalTestServer serves the oauth and verify endpoints with a fixed
// verification status and records the last verify request.
func paypalTestServer(t *testing.T, status string, lastVerify *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			if _, _, ok := r.BasicAuth(); !ok {
				t.Error("oauth call missing basic auth")
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1"})
		case "/v1/notifications/verify-webhook-signature":
			if lastVerify != nil {
				json.NewDecoder(r.Body).Decode(lastVerify)
			}
			json.NewEncoder(w).Encode(map[string]any{"verification_status": status})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPayPalParse(t *testing.T) {
	ctx := context.Background()

	t.Run("should verify remotely and normalize the decimal amount", func(t *testing.T) {
		var verifyReq map[string]any
		srv := paypalTestServer(t, "SUCCESS", &verifyReq)
		defer srv.Close()

		g, err := NewPayPalGateway("id", "secret", "wh-1", "https://trainhub.example/return", false)
		if err != nil {
			t.Fatalf("NewPayPalGateway: %v", err)
		}
		g.baseURL = srv.URL

		ev, err := g.Parse(ctx, captureCompletedBody("WH-1", "ORD-9", "CAP-3", "10.00"), paypalHeaders())
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if ev.Type != model.EventCaptureCompleted {
			t.Errorf("type = %q, want capture-completed", ev.Type)
		}
		if ev.OrderID != "ORD-9" || ev.TxnID != "CAP-3" || ev.ID != "WH-1" {
			t.Errorf("ids = %q/%q/%q", ev.ID, ev.OrderID, ev.TxnID)
		}
		if ev.Amount != 1000 || ev.Currency != "USD" {
			t.Errorf("amount = %d %s, want 1000 USD", ev.Amount, ev.Currency)
		}
		if verifyReq["webhook_id"] != "wh-1" || verifyReq["transmission_id"] != "tx-123" {
			t.Errorf("verify request = %v", verifyReq)
		}
	})

	t.Run("should reject when verification_status is not SUCCESS", func(t *testing.T) {
		srv := paypalTestServer(t, "FAILURE", nil)
		defer srv.Close()

		g, _ := NewPayPalGateway("id", "secret", "wh-1", "", false)
		g.baseURL = srv.URL

		_, err := g.Parse(ctx, captureCompletedBody("WH-1", "ORD-9", "CAP-3", "10.00"), paypalHeaders())
		if !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("err = %v, want ErrVerificationFailed", err)
		}
	})

	t.Run("should reject when transmission headers are missing", func(t *testing.T) {
		g, _ := NewPayPalGateway("id", "secret", "wh-1", "", false)

		h := paypalHeaders()
		h.Del("Paypal-Transmission-Sig")
		_, err := g.Parse(ctx, captureCompletedBody("WH-1", "ORD-9", "CAP-3", "10.00"), h)
		if !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("err = %v, want ErrVerificationFailed", err)
		}
	})

	t.Run("should map denied captures to capture-failed", func(t *testing.T) {
		srv := paypalTestServer(t, "SUCCESS", nil)
		defer srv.Close()

		g, _ := NewPayPalGateway("id", "secret", "wh-1", "", false)
		g.baseURL = srv.URL

		body, _ := json.Marshal(map[string]any{
			"id":         "WH-2",
			"event_type": "PAYMENT.CAPTURE.DENIED",
			"resource": map[string]any{
				"id":     "CAP-4",
				"amount": map[string]any{"value": "10.00", "currency_code": "USD"},
				"supplementary_data": map[string]any{
					"related_ids": map[string]any{"order_id": "ORD-9"},
				},
			},
		})
		ev, err := g.Parse(ctx, body, paypalHeaders())
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if ev.Type != model.EventCaptureFailed {
			t.Errorf("type = %q, want capture-failed", ev.Type)
		}
	})
}

func TestPayPalCreateOrder(t *testing.T) {
	var orderReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1"})
		case "/v2/checkout/orders":
			json.NewDecoder(r.Body).Decode(&orderReq)
			json.NewEncoder(w).Encode(map[string]any{
				"id": "ORD-42",
				"links": []map[string]any{
					{"rel": "self", "href": "https://api/orders/ORD-42"},
					{"rel": "approve", "href": "https://paypal/approve/ORD-42"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	g, _ := NewPayPalGateway("id", "secret", "wh-1", "https://trainhub.example/return", false)
	g.baseURL = srv.URL

	p := &model.Payment{ID: "pay-1", Amount: 2599, Currency: "USD"}
	orderID, approve, err := g.CreateOrder(context.Background(), p, "monthly coaching")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if orderID != "ORD-42" {
		t.Errorf("orderID = %q", orderID)
	}
	if approve != "https://paypal/approve/ORD-42" {
		t.Errorf("approve = %q", approve)
	}

	units := orderReq["purchase_units"].([]any)
	amt := units[0].(map[string]any)["amount"].(map[string]any)
	if amt["value"] != "25.99" {
		t.Errorf("amount value = %v, want 25.99", amt["value"])
	}
}

func TestDecimalMinor(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10.00", 1000, false},
		{"10", 1000, false},
		{"10.5", 1050, false},
		{"0.07", 7, false},
		{"-3.25", -325, false},
		{"10.555", 0, true},
		{"", 0, true},
		{"ten", 0, true},
	}
	for _, tc := range cases {
		got, err := parseDecimalMinor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseDecimalMinor(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDecimalMinor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDecimalMinor(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	if s := formatDecimalMinor(2599); s != "25.99" {
		t.Errorf("formatDecimalMinor(2599) = %q", s)
	}
	if s := formatDecimalMinor(700); s != "7.00" {
		t.Errorf("formatDecimalMinor(700) = %q", s)
	}
}
