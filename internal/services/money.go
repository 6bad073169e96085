package services

import (
	"github.com/shopspring/decimal"

	apperrors "nextfinance/internal/errors"
)

// moneyScale is the number of decimal places stored for amounts.
const moneyScale = 2

func hasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(moneyScale))
}

// validatePositiveAmount rejects zero, negative and sub-cent amounts.
func validatePositiveAmount(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be greater than zero")
	}
	if !hasMoneyScale(amount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must have at most 2 decimal places")
	}
	return nil
}

// percentOf returns part as a percentage of whole, or 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	pct, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
