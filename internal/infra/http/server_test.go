//go:build !integration

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trainhub-billing/internal/config"
	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/usecase"
)

//
// ---------------- fakes ----------------
//

type fakeGateway struct {
	name    string
	parseFn func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error)
	orderFn func(ctx context.Context, p *model.Payment, description string) (string, string, error)
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Parse(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
	return f.parseFn(ctx, body, headers)
}

func (f *fakeGateway) CreateOrder(ctx context.Context, p *model.Payment, description string) (string, string, error) {
	if f.orderFn != nil {
		return f.orderFn(ctx, p, description)
	}
	return "order-1", "https://pay.example/1", nil
}

type fakeReconcileUC struct {
	handleFn func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error)
}

func (f *fakeReconcileUC) HandleEvent(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
	return f.handleFn(ctx, ev)
}

type fakeCheckoutUC struct {
	startFn   func(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error)
	abandonFn func(ctx context.Context, paymentID string) error
}

func (f *fakeCheckoutUC) Start(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error) {
	return f.startFn(ctx, clientID, packageID, gateway, method)
}

func (f *fakeCheckoutUC) Abandon(ctx context.Context, paymentID string) error {
	return f.abandonFn(ctx, paymentID)
}

type fakeSubUC struct {
	getFn    func(ctx context.Context, id string) (*model.Subscription, error)
	cancelFn func(ctx context.Context, id string) error
}

func (f *fakeSubUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return f.getFn(ctx, id)
}
func (f *fakeSubUC) Cancel(ctx context.Context, id string) error    { return f.cancelFn(ctx, id) }
func (f *fakeSubUC) FinishExpired(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeSubUC) Lapse(ctx context.Context, id string) error     { return nil }

type fakeStatsUC struct {
	revenueFn func(ctx context.Context) (usecase.RevenueSummary, usecase.RevenueSummary, usecase.RevenueSummary, error)
	recentFn  func(ctx context.Context, limit int) ([]*model.Payment, error)
	paymentFn func(ctx context.Context, id string) (*model.Payment, error)
}

func (f *fakeStatsUC) Revenue(ctx context.Context) (usecase.RevenueSummary, usecase.RevenueSummary, usecase.RevenueSummary, error) {
	return f.revenueFn(ctx)
}
func (f *fakeStatsUC) RecentPayments(ctx context.Context, limit int) ([]*model.Payment, error) {
	return f.recentFn(ctx, limit)
}
func (f *fakeStatsUC) Payment(ctx context.Context, id string) (*model.Payment, error) {
	return f.paymentFn(ctx, id)
}

//
// ---------------- helpers ----------------
//

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 0},
		Admin:     config.AdminConfig{JWTSecret: "test-secret"},
		Reconcile: config.ReconcileConfig{Timeout: 5 * time.Second},
	}
}

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func newTestServer(gw adapter.GatewayAdapter, rec usecase.ReconcileUseCase) *Server {
	gateways := map[string]adapter.GatewayAdapter{}
	if gw != nil {
		gateways[gw.Name()] = gw
	}
	return NewServer(testConfig(), gateways, rec, &fakeCheckoutUC{}, &fakeSubUC{}, &fakeStatsUC{}, nopLogger())
}

func testEvent() *model.GatewayEvent {
	return &model.GatewayEvent{
		Gateway:  model.GatewayPaymob,
		ID:       "evt-1",
		Type:     model.EventCaptureCompleted,
		OrderID:  "ord-1",
		Amount:   1000,
		Currency: "EGP",
	}
}

//
// ---------------- webhook route tests ----------------
//

func TestWebhookRoutes(t *testing.T) {
	t.Run("should return 200 applied for a reconciled event", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return testEvent(), nil
			},
		}
		rec := &fakeReconcileUC{
			handleFn: func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
				return &usecase.ReconcileOutcome{PaymentID: "pay-1", PaymentStatus: model.PaymentStatusCompleted}, nil
			},
		}
		srv := newTestServer(gw, rec)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, body=%s", w.Code, w.Body.String())
		}
		var resp webhookResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != "applied" || resp.PaymentID != "pay-1" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("should return 401 when signature verification fails", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return nil, domain.ErrVerificationFailed
			},
		}
		srv := newTestServer(gw, &fakeReconcileUC{})

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", w.Code)
		}
	})

	t.Run("should acknowledge duplicates with 200", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return testEvent(), nil
			},
		}
		rec := &fakeReconcileUC{
			handleFn: func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
				return &usecase.ReconcileOutcome{PaymentID: "pay-1", Duplicate: true}, nil
			},
		}
		srv := newTestServer(gw, rec)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
		var resp webhookResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Status != "duplicate" {
			t.Errorf("status = %q, want duplicate", resp.Status)
		}
	})

	t.Run("should acknowledge alerts with 200 and a reason", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return testEvent(), nil
			},
		}
		rec := &fakeReconcileUC{
			handleFn: func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
				return &usecase.ReconcileOutcome{PaymentID: "pay-1", Alert: true, AlertReason: "amount mismatch"}, nil
			},
		}
		srv := newTestServer(gw, rec)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
		var resp webhookResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Status != "alert-acknowledged" || resp.Reason != "amount mismatch" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("should return 404 for an unknown order so the gateway retries", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return testEvent(), nil
			},
		}
		rec := &fakeReconcileUC{
			handleFn: func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
				return nil, domain.ErrUnknownOrder
			},
		}
		srv := newTestServer(gw, rec)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusNotFound {
			t.Fatalf("code = %d, want 404", w.Code)
		}
	})

	t.Run("should return 503 when the payment lock is held", func(t *testing.T) {
		gw := &fakeGateway{
			name: model.GatewayPaymob,
			parseFn: func(ctx context.Context, body []byte, headers http.Header) (*model.GatewayEvent, error) {
				return testEvent(), nil
			},
		}
		rec := &fakeReconcileUC{
			handleFn: func(ctx context.Context, ev *model.GatewayEvent) (*usecase.ReconcileOutcome, error) {
				return nil, domain.ErrLockNotAcquired
			},
		}
		srv := newTestServer(gw, rec)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paymob", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("code = %d, want 503", w.Code)
		}
	})

	t.Run("should not register a route for an unconfigured gateway", func(t *testing.T) {
		srv := newTestServer(nil, &fakeReconcileUC{})

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/paypal", bytes.NewReader([]byte(`{}`))))

		if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("code = %d, want 404/405", w.Code)
		}
	})
}

//
// ---------------- admin API tests ----------------
//

func TestAdminAPI(t *testing.T) {
	stats := &fakeStatsUC{
		revenueFn: func(ctx context.Context) (usecase.RevenueSummary, usecase.RevenueSummary, usecase.RevenueSummary, error) {
			return usecase.RevenueSummary{Gross: 1000, PlatformFee: 150, TrainerPayout: 850},
				usecase.RevenueSummary{}, usecase.RevenueSummary{}, nil
		},
		recentFn: func(ctx context.Context, limit int) ([]*model.Payment, error) {
			return []*model.Payment{{ID: "pay-1"}}, nil
		},
		paymentFn: func(ctx context.Context, id string) (*model.Payment, error) {
			if id != "pay-1" {
				return nil, domain.ErrNotFound
			}
			return &model.Payment{ID: "pay-1"}, nil
		},
	}
	srv := NewServer(testConfig(), nil, &fakeReconcileUC{}, &fakeCheckoutUC{}, &fakeSubUC{}, stats, nopLogger())
	router := srv.Router()

	token, err := srv.auth.Mint()
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	do := func(method, path, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("should reject requests without a token", func(t *testing.T) {
		if w := do(http.MethodGet, "/api/v1/stats/revenue", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", w.Code)
		}
	})

	t.Run("should reject a forged token", func(t *testing.T) {
		if w := do(http.MethodGet, "/api/v1/stats/revenue", "not-a-jwt"); w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", w.Code)
		}
	})

	t.Run("should serve revenue with a minted token", func(t *testing.T) {
		w := do(http.MethodGet, "/api/v1/stats/revenue", token)
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, body=%s", w.Code, w.Body.String())
		}
		var resp struct {
			Week usecase.RevenueSummary `json:"week"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Week.Gross != 1000 || resp.Week.PlatformFee != 150 || resp.Week.TrainerPayout != 850 {
			t.Errorf("week = %+v", resp.Week)
		}
	})

	t.Run("should serve a payment by id", func(t *testing.T) {
		if w := do(http.MethodGet, "/api/v1/payments/pay-1", token); w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
		if w := do(http.MethodGet, "/api/v1/payments/missing", token); w.Code != http.StatusNotFound {
			t.Fatalf("code = %d, want 404", w.Code)
		}
	})

	t.Run("should reject an invalid list limit", func(t *testing.T) {
		if w := do(http.MethodGet, "/api/v1/payments?limit=hello", token); w.Code != http.StatusBadRequest {
			t.Fatalf("code = %d, want 400", w.Code)
		}
	})
}

//
// ---------------- checkout API tests ----------------
//

func TestCheckoutAPI(t *testing.T) {
	t.Run("should start a checkout and return the redirect", func(t *testing.T) {
		checkout := &fakeCheckoutUC{
			startFn: func(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error) {
				if clientID != "client-1" || packageID != "pkg-1" || gateway != "paymob" {
					t.Errorf("args = %s/%s/%s", clientID, packageID, gateway)
				}
				return &model.Payment{ID: "pay-1", Amount: 1000, Currency: "EGP"}, "https://pay.example/1", nil
			},
		}
		srv := NewServer(testConfig(), nil, &fakeReconcileUC{}, checkout, &fakeSubUC{}, &fakeStatsUC{}, nopLogger())

		body, _ := json.Marshal(checkoutStartRequest{ClientID: "client-1", PackageID: "pkg-1", Gateway: "paymob", Method: "card"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("code = %d, body=%s", w.Code, w.Body.String())
		}
		var resp struct {
			PaymentID   string `json:"payment_id"`
			RedirectURL string `json:"redirect_url"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.PaymentID != "pay-1" || resp.RedirectURL != "https://pay.example/1" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("should map a conflicting subscription to 409", func(t *testing.T) {
		checkout := &fakeCheckoutUC{
			startFn: func(ctx context.Context, clientID, packageID, gateway, method string) (*model.Payment, string, error) {
				return nil, "", domain.ErrConflictingSubscription
			},
		}
		srv := NewServer(testConfig(), nil, &fakeReconcileUC{}, checkout, &fakeSubUC{}, &fakeStatsUC{}, nopLogger())

		body, _ := json.Marshal(checkoutStartRequest{ClientID: "client-1", PackageID: "pkg-1", Gateway: "paymob"})
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body)))

		if w.Code != http.StatusConflict {
			t.Fatalf("code = %d, want 409", w.Code)
		}
	})

	t.Run("should abandon a pending checkout", func(t *testing.T) {
		checkout := &fakeCheckoutUC{
			abandonFn: func(ctx context.Context, paymentID string) error {
				if paymentID != "pay-1" {
					t.Errorf("paymentID = %q", paymentID)
				}
				return nil
			},
		}
		srv := NewServer(testConfig(), nil, &fakeReconcileUC{}, checkout, &fakeSubUC{}, &fakeStatsUC{}, nopLogger())

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/pay-1/abandon", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("code = %d", w.Code)
		}
	})
}
