package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trainhub-billing/internal/config"
	"trainhub-billing/internal/domain/ports/adapter"
	"trainhub-billing/internal/usecase"
)

// Server exposes the webhook routes, the checkout API and the admin read API
// on a single chi router.
type Server struct {
	cfg         *config.Config
	gateways    map[string]adapter.GatewayAdapter
	reconcileUC usecase.ReconcileUseCase
	checkoutUC  usecase.CheckoutUseCase
	subUC       usecase.SubscriptionUseCase
	statsUC     usecase.StatsUseCase
	auth        *AuthManager
	log         *zerolog.Logger

	server *http.Server
}

func NewServer(
	cfg *config.Config,
	gateways map[string]adapter.GatewayAdapter,
	reconcileUC usecase.ReconcileUseCase,
	checkoutUC usecase.CheckoutUseCase,
	subUC usecase.SubscriptionUseCase,
	statsUC usecase.StatsUseCase,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		cfg:         cfg,
		gateways:    gateways,
		reconcileUC: reconcileUC,
		checkoutUC:  checkoutUC,
		subUC:       subUC,
		statsUC:     statsUC,
		auth:        NewAuthManager(cfg.Admin.JWTSecret, 30*time.Minute),
		log:         &l,
	}
}

// Router builds the full route tree. Split out from Start for tests.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Webhook routes select the gateway adapter; no payload sniffing.
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(Timeout(s.cfg.Reconcile.Timeout + 5*time.Second))
		for name, gw := range s.gateways {
			r.Post("/"+name, s.webhookHandler(gw))
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(10 * time.Second))

		r.Post("/checkout", checkoutStartHandler(s.checkoutUC))
		r.Post("/checkout/{id}/abandon", checkoutAbandonHandler(s.checkoutUC))

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin())
			r.Get("/stats/revenue", revenueHandler(s.statsUC))
			r.Get("/payments", paymentsListHandler(s.statsUC))
			r.Get("/payments/{id}", paymentGetHandler(s.statsUC))
			r.Get("/subscriptions/{id}", subscriptionGetHandler(s.subUC))
			r.Post("/subscriptions/{id}/cancel", subscriptionCancelHandler(s.subUC))
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
