package model

import (
	"time"

	"trainhub-billing/internal/domain"
)

// TrainingPackage is a purchasable recurring package offered by a trainer,
// with a fixed billing term and price in minor units.
type TrainingPackage struct {
	ID              string
	TrainerID       string
	Name            string
	PriceAmount     int64  // minor units
	Currency        string // ISO 4217
	BillingTermDays int
	FeePercent      *int // optional override of DefaultFeePercent
	CreatedAt       time.Time
}

func (p *TrainingPackage) IsZero() bool { return p == nil || p.ID == "" }

// EffectiveFeePercent resolves the platform cut for this package.
func (p *TrainingPackage) EffectiveFeePercent() int {
	if p.FeePercent != nil {
		return *p.FeePercent
	}
	return DefaultFeePercent
}

// NewTrainingPackage validates and constructs a package.
func NewTrainingPackage(id, trainerID, name string, priceAmount int64, currency string, billingTermDays int) (*TrainingPackage, error) {
	if id == "" || trainerID == "" || name == "" || priceAmount <= 0 || currency == "" || billingTermDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &TrainingPackage{
		ID:              id,
		TrainerID:       trainerID,
		Name:            name,
		PriceAmount:     priceAmount,
		Currency:        currency,
		BillingTermDays: billingTermDays,
		CreatedAt:       time.Now(),
	}, nil
}
