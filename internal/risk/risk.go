// Package risk flags loans that pass the structural rules but are dangerous in context.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// LoanCounter is the part of the loan repository the assessor reads from
type LoanCounter interface {
	CountForIPOnDate(ctx context.Context, ipAddress string, date time.Time) (int, error)
}

type Assessor struct {
	loans  LoanCounter
	policy domain.Policy
}

func NewAssessor(loans LoanCounter, policy domain.Policy) *Assessor {
	return &Assessor{
		loans:  loans,
		policy: policy,
	}
}

// DailyVolumeExceeded reports whether the IP address already reached its
// daily quota on the calendar date of date.
func (a *Assessor) DailyVolumeExceeded(ctx context.Context, ipAddress string, date time.Time) (bool, error) {
	count, err := a.loans.CountForIPOnDate(ctx, ipAddress, utils.DateOf(date))
	if err != nil {
		return false, err
	}
	return count >= a.policy.MaxDailyLoansPerIP, nil
}

// IsHighRiskWindow is true for a loan at exactly the currency ceiling applied
// for inside the risk window (both ends inclusive).
func IsHighRiskWindow(currency domain.Currency, amount int64, applicationTime time.Time, policy domain.Policy) bool {
	ceiling, ok := policy.Ceiling(currency)
	if !ok || amount != ceiling {
		return false
	}
	tod := utils.TimeOfDay(applicationTime)
	return tod >= policy.RiskWindowStart && tod <= policy.RiskWindowEnd
}

// Assess returns the single risk violation for the loan, or nil when it is clear.
// A daily volume hit suppresses the risk window check.
func (a *Assessor) Assess(ctx context.Context, loan *domain.Loan) (*customError.Violation, error) {
	exceeded, err := a.DailyVolumeExceeded(ctx, loan.IPAddress.Value, loan.ApplicationTime)
	if err != nil {
		return nil, err
	}
	if exceeded {
		return &customError.Violation{
			Kind:   customError.KindRiskRejected,
			Reason: customError.ReasonDailyVolumeExceeded,
			Message: fmt.Sprintf("Loan cannot be saved: IP address %s already reached the limit of %d loans on %s",
				loan.IPAddress.Value, a.policy.MaxDailyLoansPerIP, loan.ApplicationDate().Format(utils.DateLayout)),
		}, nil
	}

	if IsHighRiskWindow(loan.Currency, loan.Amount, loan.ApplicationTime, a.policy) {
		return &customError.Violation{
			Kind:    customError.KindRiskRejected,
			Reason:  customError.ReasonHighRiskWindow,
			Message: "Loan cannot be saved: maximum amount requested inside the high-risk time window",
		}, nil
	}

	return nil, nil
}
