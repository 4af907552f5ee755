package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trainhub-billing/internal/domain"
	"trainhub-billing/internal/usecase"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type checkoutStartRequest struct {
	ClientID  string `json:"client_id"`
	PackageID string `json:"package_id"`
	Gateway   string `json:"gateway"`
	Method    string `json:"method"`
}

func checkoutStartHandler(checkoutUC usecase.CheckoutUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		p, redirect, err := checkoutUC.Start(r.Context(), req.ClientID, req.PackageID, req.Gateway, req.Method)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "package not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrConflictingSubscription):
				http.Error(w, "client already has a live subscription for this package", http.StatusConflict)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "Failed to start checkout", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			PaymentID   string `json:"payment_id"`
			Amount      int64  `json:"amount"`
			Currency    string `json:"currency"`
			RedirectURL string `json:"redirect_url"`
		}{p.ID, p.Amount, p.Currency, redirect})
	}
}

func checkoutAbandonHandler(checkoutUC usecase.CheckoutUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := checkoutUC.Abandon(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "payment not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrInvalidTransition):
				http.Error(w, "payment is no longer pending", http.StatusConflict)
			default:
				http.Error(w, "Failed to abandon checkout", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
	}
}

func subscriptionCancelHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := subUC.Cancel(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "subscription not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrInvalidTransition):
				http.Error(w, "subscription cannot be cancelled", http.StatusConflict)
			default:
				http.Error(w, "Failed to cancel subscription", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

func revenueHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, month, year, err := statsUC.Revenue(r.Context())
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Week  usecase.RevenueSummary `json:"week"`
			Month usecase.RevenueSummary `json:"month"`
			Year  usecase.RevenueSummary `json:"year"`
		}{week, month, year})
	}
}

func paymentsListHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 500 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		payments, err := statsUC.RecentPayments(r.Context(), limit)
		if err != nil {
			http.Error(w, "Failed to list payments", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": payments})
	}
}

func paymentGetHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := statsUC.Payment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "payment not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get payment", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func subscriptionGetHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subUC.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "subscription not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get subscription", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}
