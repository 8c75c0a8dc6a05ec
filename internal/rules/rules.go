// Package rules holds the structural checks a loan must pass before any
// risk assessment or persistence. Every check is a predicate; turning a
// false result into a named violation is left to the caller.
package rules

import (
	"context"
	"strings"
	"time"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// IdentityStore is the part of the identity store the IP check reads from
type IdentityStore interface {
	IPAddressExists(ctx context.Context, value string) (bool, error)
	FindIPAddress(ctx context.Context, value string) (*domain.IPAddress, error)
}

// ValidateRegistrationDuration accepts exactly one initial period counted from
// the application date, with no partial weeks.
func ValidateRegistrationDuration(applicationTime, returnDate time.Time, policy domain.Policy) bool {
	return durationPeriods(applicationTime, returnDate, policy) == 1 &&
		isWholeWeeksAfter(applicationTime, returnDate)
}

// ValidateExtensionDuration accepts at least two initial periods counted from
// the original application date, not from the previous return date.
func ValidateExtensionDuration(applicationTime, returnDate time.Time, policy domain.Policy) bool {
	return durationPeriods(applicationTime, returnDate, policy) >= 2 &&
		isWholeWeeksAfter(applicationTime, returnDate)
}

// ValidateAmount checks 0 < amount <= ceiling for the currency
func ValidateAmount(currency domain.Currency, amount int64, policy domain.Policy) bool {
	ceiling, ok := policy.Ceiling(currency)
	if !ok {
		return false
	}
	return amount > 0 && amount <= ceiling
}

// ValidateIPAddress checks the referenced address is registered and equal by
// value to the stored record. Store failures are returned, not folded into false.
func ValidateIPAddress(ctx context.Context, store IdentityStore, ref domain.IPAddressRef) (bool, error) {
	if strings.TrimSpace(ref.Value) == "" {
		return false, nil
	}

	exists, err := store.IPAddressExists(ctx, ref.Value)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	registered, err := store.FindIPAddress(ctx, ref.Value)
	if err != nil {
		return false, err
	}

	return registered.Ref() == ref, nil
}

// ValidateExtensionCeiling keeps the loan within MaxExtensionWeeks of the application date
func ValidateExtensionCeiling(applicationTime, returnDate time.Time, policy domain.Policy) bool {
	return utils.WholeWeeksBetween(applicationTime, returnDate) < policy.MaxExtensionWeeks
}

func durationPeriods(applicationTime, returnDate time.Time, policy domain.Policy) int {
	period := policy.InitialPeriodWeeks
	if period <= 0 {
		period = 1
	}
	return utils.WholeWeeksBetween(applicationTime, returnDate) / period
}

func isWholeWeeksAfter(applicationTime, returnDate time.Time) bool {
	days := utils.DaysBetween(applicationTime, returnDate)
	return days > 0 && days%7 == 0
}

// Violations collects every failed check in the order it was detected
type Violations []customError.Violation

// Add records a violation
func (v *Violations) Add(kind customError.Kind, reason customError.Reason, message string) {
	*v = append(*v, customError.Violation{Kind: kind, Reason: reason, Message: message})
}

// Empty reports whether no check failed
func (v Violations) Empty() bool {
	return len(v) == 0
}

// Err returns nil when empty, otherwise a rejection carrying every violation
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return customError.WrapLoanRejected(v)
}
