package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

type mockLoanCounter struct {
	mock.Mock
}

func (m *mockLoanCounter) CountForIPOnDate(ctx context.Context, ipAddress string, date time.Time) (int, error) {
	args := m.Called(ctx, ipAddress, date)
	return args.Int(0), args.Error(1)
}

func TestIsHighRiskWindow(t *testing.T) {
	policy := domain.DefaultPolicy()
	at := func(h, m, s, ns int) time.Time {
		return time.Date(2024, 3, 4, h, m, s, ns, time.UTC)
	}

	tests := []struct {
		name            string
		currency        domain.Currency
		amount          int64
		applicationTime time.Time
		expected        bool
	}{
		{name: "ceiling at midnight", currency: domain.CurrencyCZK, amount: 30000, applicationTime: at(0, 0, 0, 0), expected: true},
		{name: "ceiling at three", currency: domain.CurrencyCZK, amount: 30000, applicationTime: at(3, 0, 0, 0), expected: true},
		{name: "ceiling at six sharp", currency: domain.CurrencyEUR, amount: 15000, applicationTime: at(6, 0, 0, 0), expected: true},
		{name: "ceiling just after six", currency: domain.CurrencyEUR, amount: 15000, applicationTime: at(6, 0, 0, 1), expected: false},
		{name: "ceiling at nine", currency: domain.CurrencyCZK, amount: 30000, applicationTime: at(9, 0, 0, 0), expected: false},
		{name: "close to ceiling in window", currency: domain.CurrencyCZK, amount: 29999, applicationTime: at(3, 0, 0, 0), expected: false},
		{name: "ceiling of other currency", currency: domain.CurrencyEUR, amount: 30000, applicationTime: at(3, 0, 0, 0), expected: false},
		{name: "unknown currency", currency: domain.Currency("USD"), amount: 30000, applicationTime: at(3, 0, 0, 0), expected: false},
		{name: "late evening", currency: domain.CurrencyCZK, amount: 30000, applicationTime: at(23, 59, 59, 0), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsHighRiskWindow(tt.currency, tt.amount, tt.applicationTime, policy))
		})
	}
}

func TestAssess(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		amount          int64
		applicationTime time.Time
		existingLoans   int
		expectedReason  customError.Reason
	}{
		{
			name:            "clear",
			amount:          1000,
			applicationTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			existingLoans:   2,
		},
		{
			name:            "daily volume reached",
			amount:          1000,
			applicationTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			existingLoans:   3,
			expectedReason:  customError.ReasonDailyVolumeExceeded,
		},
		{
			name:            "daily volume takes precedence over the risk window",
			amount:          30000,
			applicationTime: time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC),
			existingLoans:   5,
			expectedReason:  customError.ReasonDailyVolumeExceeded,
		},
		{
			name:            "risk window",
			amount:          30000,
			applicationTime: time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC),
			existingLoans:   0,
			expectedReason:  customError.ReasonHighRiskWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &mockLoanCounter{}
			counter.On("CountForIPOnDate", mock.Anything, "10.0.0.1", day).Return(tt.existingLoans, nil)

			assessor := NewAssessor(counter, domain.DefaultPolicy())
			loan := &domain.Loan{
				IPAddress:       domain.IPAddressRef{Value: "10.0.0.1", ClientKey: "1850101123456"},
				ApplicationTime: tt.applicationTime,
				ReturnDate:      day.AddDate(0, 0, 7),
				Amount:          tt.amount,
				Currency:        domain.CurrencyCZK,
			}

			violation, err := assessor.Assess(context.Background(), loan)

			require.NoError(t, err)
			if tt.expectedReason == "" {
				assert.Nil(t, violation)
			} else {
				require.NotNil(t, violation)
				assert.Equal(t, tt.expectedReason, violation.Reason)
				assert.Equal(t, customError.KindRiskRejected, violation.Kind)
			}
			counter.AssertExpectations(t)
		})
	}
}

func TestAssess_CountFailure(t *testing.T) {
	counter := &mockLoanCounter{}
	counter.On("CountForIPOnDate", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("timeout"))

	assessor := NewAssessor(counter, domain.DefaultPolicy())
	violation, err := assessor.Assess(context.Background(), &domain.Loan{
		IPAddress:       domain.IPAddressRef{Value: "10.0.0.1"},
		ApplicationTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	})

	assert.Error(t, err)
	assert.Nil(t, violation)
}
