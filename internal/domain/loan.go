package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/pkg/utils"
)

// Currency is the closed set of currencies a loan can be issued in
type Currency string

const (
	CurrencyCZK Currency = "CZK"
	CurrencyEUR Currency = "EUR"
)

// IsValid reports whether c is one of the supported currencies
func (c Currency) IsValid() bool {
	return c == CurrencyCZK || c == CurrencyEUR
}

// IPAddressRef references the IP address a loan was issued against.
// It is compared by value against the identity store record.
type IPAddressRef struct {
	Value     string `json:"value"`
	ClientKey string `json:"client_key"`
}

// Loan represents a loan entity
type Loan struct {
	ID              uuid.UUID    `json:"id"`
	IPAddress       IPAddressRef `json:"ip_address"`
	ApplicationTime time.Time    `json:"application_time"`
	ReturnDate      time.Time    `json:"return_date"` // calendar date, midnight UTC
	Amount          int64        `json:"amount"`
	Currency        Currency     `json:"currency"`
	InterestRate    int64        `json:"interest_rate"` // absolute amount, not a percentage
	IsExtended      bool         `json:"is_extended"`
	Version         int64        `json:"version"`
}

// ApplicationDate returns the calendar date of the application time
func (l *Loan) ApplicationDate() time.Time {
	return utils.DateOf(l.ApplicationTime)
}

// ExtensionCount is derived from the dates rather than stored: whole weeks
// between application and return date minus the initial week.
func (l *Loan) ExtensionCount() int64 {
	if !l.IsExtended {
		return 0
	}
	count := int64(utils.WholeWeeksBetween(l.ApplicationTime, l.ReturnDate)) - 1
	if count < 0 {
		return 0
	}
	return count
}

// LoanView is the transport form of a loan, carrying the derived extension count
type LoanView struct {
	*Loan
	ExtensionCount int64 `json:"extension_count"`
}

// View wraps the loan for transport
func (l *Loan) View() LoanView {
	return LoanView{Loan: l, ExtensionCount: l.ExtensionCount()}
}

// DTOs for requests and responses

type RegisterLoanRequest struct {
	IPAddress       IPAddressRef `json:"ip_address"`
	ApplicationTime time.Time    `json:"application_time" validate:"required"`
	ReturnDate      utils.Date   `json:"return_date" validate:"required"`
	Amount          int64        `json:"amount"`
	Currency        Currency     `json:"currency" validate:"required,oneof=CZK EUR"`
}

type ExtendLoanRequest struct {
	IPAddress  IPAddressRef `json:"ip_address"`
	ReturnDate utils.Date   `json:"return_date" validate:"required"`
}

type RegisterLoanResponse struct {
	ID       uuid.UUID `json:"id"`
	Location string    `json:"location"`
}

type CountResponse struct {
	Count int `json:"count"`
}
