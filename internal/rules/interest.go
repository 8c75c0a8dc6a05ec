package rules

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// InitialInterest is the interest owed on a freshly registered loan:
// InitialInterestPercent of the principal, rounded down.
func InitialInterest(amount int64, policy domain.Policy) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(policy.InitialInterestPercent)).
		Div(hundred).
		Floor().
		IntPart()
}

// NextInterest compounds the interest for one extension, rounded down
func NextInterest(interest int64, policy domain.Policy) int64 {
	return decimal.NewFromInt(interest).
		Mul(policy.InterestGrowthFactor).
		Floor().
		IntPart()
}
