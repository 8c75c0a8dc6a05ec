// Package history rebuilds a loan's extension timeline from its current
// state by replaying the compounding rule; no events are stored.
package history

import (
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/rules"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// Reconstruct returns ExtensionCount()+1 steps. Step 0 is the loan as issued,
// each later step pushes the return date one initial period further and
// compounds the interest once.
func Reconstruct(loan *domain.Loan, policy domain.Policy) []*domain.HistoryStep {
	extensions := loan.ExtensionCount()
	period := policy.InitialPeriodWeeks
	if period <= 0 {
		period = 1
	}

	steps := make([]*domain.HistoryStep, 0, extensions+1)
	returnDate := utils.CalculateReturnDate(loan.ApplicationTime, period)
	interest := rules.InitialInterest(loan.Amount, policy)

	for i := int64(0); i <= extensions; i++ {
		if i > 0 {
			returnDate = returnDate.AddDate(0, 0, 7*period)
			interest = rules.NextInterest(interest, policy)
		}
		steps = append(steps, &domain.HistoryStep{
			Step:         i,
			ReturnDate:   returnDate,
			InterestRate: interest,
		})
	}

	return steps
}
