package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trainhub-billing/internal/domain/model"
	"trainhub-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// RevenueSummary aggregates completed payments over a period.
type RevenueSummary struct {
	Gross         int64 `json:"gross"`
	PlatformFee   int64 `json:"platform_fee"`
	TrainerPayout int64 `json:"trainer_payout"`
}

type StatsUseCase interface {
	// Revenue returns gross/fee/payout totals for the trailing week, month
	// and year.
	Revenue(ctx context.Context) (week, month, year RevenueSummary, err error)
	RecentPayments(ctx context.Context, limit int) ([]*model.Payment, error)
	Payment(ctx context.Context, id string) (*model.Payment, error)
}

type statsUC struct {
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{payments: payments, log: logger}
}

func (s *statsUC) Revenue(ctx context.Context) (RevenueSummary, RevenueSummary, RevenueSummary, error) {
	now := time.Now()
	sum := func(since time.Time) (RevenueSummary, error) {
		g, f, p, err := s.payments.RevenueSince(ctx, nil, since)
		if err != nil {
			return RevenueSummary{}, err
		}
		return RevenueSummary{Gross: g, PlatformFee: f, TrainerPayout: p}, nil
	}
	week, err := sum(now.AddDate(0, 0, -7))
	if err != nil {
		return RevenueSummary{}, RevenueSummary{}, RevenueSummary{}, err
	}
	month, err := sum(now.AddDate(0, -1, 0))
	if err != nil {
		return RevenueSummary{}, RevenueSummary{}, RevenueSummary{}, err
	}
	year, err := sum(now.AddDate(-1, 0, 0))
	if err != nil {
		return RevenueSummary{}, RevenueSummary{}, RevenueSummary{}, err
	}
	return week, month, year, nil
}

func (s *statsUC) RecentPayments(ctx context.Context, limit int) ([]*model.Payment, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.payments.ListRecent(ctx, nil, limit)
}

func (s *statsUC) Payment(ctx context.Context, id string) (*model.Payment, error) {
	return s.payments.FindByID(ctx, nil, id)
}
