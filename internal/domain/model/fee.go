package model

import "trainhub-billing/internal/domain"

// DefaultFeePercent is the platform's cut when a package carries no override.
const DefaultFeePercent = 15

// SplitAmount computes the platform fee and trainer payout for a gross amount
// in minor units. The fee is gross*feePercent/100 rounded half-up; the payout
// is the remainder, so fee+payout == gross holds by construction and the
// payout is never rounded independently.
func SplitAmount(gross int64, feePercent int) (platformFee, trainerPayout int64, err error) {
	if gross < 0 || feePercent < 0 || feePercent > 100 {
		return 0, 0, domain.ErrInvalidArgument
	}
	platformFee = (gross*int64(feePercent) + 50) / 100
	trainerPayout = gross - platformFee
	return platformFee, trainerPayout, nil
}
