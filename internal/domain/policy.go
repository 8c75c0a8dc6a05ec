package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the business constants governing issuance, extension and risk
type Policy struct {
	InitialPeriodWeeks     int
	MaxExtensionWeeks      int
	MaxDailyLoansPerIP     int
	InitialInterestPercent int64
	InterestGrowthFactor   decimal.Decimal
	AmountCeilings         map[Currency]int64
	// RiskWindowStart and RiskWindowEnd are offsets from midnight, both inclusive
	RiskWindowStart time.Duration
	RiskWindowEnd   time.Duration
}

// DefaultPolicy returns the policy the service ships with
func DefaultPolicy() Policy {
	return Policy{
		InitialPeriodWeeks:     1,
		MaxExtensionWeeks:      52,
		MaxDailyLoansPerIP:     3,
		InitialInterestPercent: 10,
		InterestGrowthFactor:   decimal.RequireFromString("1.5"),
		AmountCeilings: map[Currency]int64{
			CurrencyCZK: 30000,
			CurrencyEUR: 15000,
		},
		RiskWindowStart: 0,
		RiskWindowEnd:   6 * time.Hour,
	}
}

// Ceiling returns the maximum amount for a currency and whether the currency is known
func (p Policy) Ceiling(currency Currency) (int64, bool) {
	ceiling, ok := p.AmountCeilings[currency]
	return ceiling, ok
}
