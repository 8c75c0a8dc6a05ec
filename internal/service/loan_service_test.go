package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/lock"
	"github.com/segyhp/loan-engine/internal/metrics"
	"github.com/segyhp/loan-engine/internal/mocks"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

const (
	testIP        = "192.168.0.1"
	testClientKey = "8001011234"
)

var testRef = domain.IPAddressRef{Value: testIP, ClientKey: testClientKey}

func newTestService(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) *LoanService {
	return NewLoanService(loanRepo, identityRepo, nil, metrics.NewRecorder(), domain.DefaultPolicy())
}

func expectRegisteredIP(identityRepo *mocks.MockIdentityRepository) {
	identityRepo.On("IPAddressExists", mock.Anything, testIP).Return(true, nil)
	identityRepo.On("FindIPAddress", mock.Anything, testIP).
		Return(&domain.IPAddress{Value: testIP, ClientKey: testClientKey}, nil)
}

func registerRequest(appTime time.Time, returnDate utils.Date, amount int64, currency domain.Currency) *domain.RegisterLoanRequest {
	return &domain.RegisterLoanRequest{
		IPAddress:       testRef,
		ApplicationTime: appTime,
		ReturnDate:      returnDate,
		Amount:          amount,
		Currency:        currency,
	}
}

func requireReasons(t *testing.T, err error, expected ...customError.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrLoanRejected)

	be, ok := customError.AsBusinessError(err)
	require.True(t, ok)
	assert.Equal(t, customError.ErrCodeLoanRejected, be.Code)
	assert.Equal(t, expected, be.Reasons())
}

func storedLoan(id uuid.UUID) *domain.Loan {
	return &domain.Loan{
		ID:              id,
		IPAddress:       testRef,
		ApplicationTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		ReturnDate:      time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Amount:          30000,
		Currency:        domain.CurrencyCZK,
		InterestRate:    3000,
		Version:         1,
	}
}

func TestRegisterLoan(t *testing.T) {
	appDate := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	newID := uuid.New()

	tests := []struct {
		name            string
		request         *domain.RegisterLoanRequest
		setupMocks      func(*mocks.MockLoanRepository, *mocks.MockIdentityRepository)
		expectedReasons []customError.Reason
		expectedCode    string
		expectSaved     bool
	}{
		{
			name:    "accepted outside the risk window",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 30000, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(0, nil)
				loanRepo.On("Save", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
					return loan.InterestRate == 3000 && !loan.IsExtended &&
						loan.ReturnDate.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
				})).Return(newID, nil)
			},
			expectSaved: true,
		},
		{
			name:    "maximum amount inside the risk window",
			request: registerRequest(time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 30000, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(0, nil)
			},
			expectedReasons: []customError.Reason{customError.ReasonHighRiskWindow},
		},
		{
			name:    "below maximum inside the risk window",
			request: registerRequest(time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 29999, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(0, nil)
				loanRepo.On("Save", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
					return loan.InterestRate == 2999
				})).Return(newID, nil)
			},
			expectSaved: true,
		},
		{
			name:    "fourth loan of the day",
			request: registerRequest(time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 1000, domain.CurrencyEUR),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(3, nil)
			},
			expectedReasons: []customError.Reason{customError.ReasonDailyVolumeExceeded},
		},
		{
			name:    "daily volume suppresses the risk window",
			request: registerRequest(time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 15000, domain.CurrencyEUR),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(5, nil)
			},
			expectedReasons: []customError.Reason{customError.ReasonDailyVolumeExceeded},
		},
		{
			name:    "every structural failure is reported in order",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 12), 0, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				identityRepo.On("IPAddressExists", mock.Anything, testIP).Return(false, nil)
			},
			expectedReasons: []customError.Reason{
				customError.ReasonFaultyIPAddress,
				customError.ReasonFaultyDuration,
				customError.ReasonFaultyAmount,
			},
		},
		{
			name:    "ip address owned by another client",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 100, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				identityRepo.On("IPAddressExists", mock.Anything, testIP).Return(true, nil)
				identityRepo.On("FindIPAddress", mock.Anything, testIP).
					Return(&domain.IPAddress{Value: testIP, ClientKey: "9002022345"}, nil)
			},
			expectedReasons: []customError.Reason{customError.ReasonFaultyIPAddress},
		},
		{
			name:    "two weeks is too long for registration",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 18), 100, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
			},
			expectedReasons: []customError.Reason{customError.ReasonFaultyDuration},
		},
		{
			name:    "amount above the euro ceiling",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 15001, domain.CurrencyEUR),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
			},
			expectedReasons: []customError.Reason{customError.ReasonFaultyAmount},
		},
		{
			name:    "identity store failure",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 100, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				identityRepo.On("IPAddressExists", mock.Anything, testIP).Return(false, errors.New("connection refused"))
			},
			expectedCode: customError.ErrCodeDatabaseError,
		},
		{
			name:    "count failure",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 100, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(0, errors.New("connection refused"))
			},
			expectedCode: customError.ErrCodeDatabaseError,
		},
		{
			name:    "save failure",
			request: registerRequest(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 11), 100, domain.CurrencyCZK),
			setupMocks: func(loanRepo *mocks.MockLoanRepository, identityRepo *mocks.MockIdentityRepository) {
				expectRegisteredIP(identityRepo)
				loanRepo.On("CountForIPOnDate", mock.Anything, testIP, appDate).Return(0, nil)
				loanRepo.On("Save", mock.Anything, mock.Anything).Return(uuid.Nil, errors.New("disk full"))
			},
			expectedCode: customError.ErrCodeDatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := new(mocks.MockLoanRepository)
			identityRepo := new(mocks.MockIdentityRepository)
			tt.setupMocks(loanRepo, identityRepo)

			svc := newTestService(loanRepo, identityRepo)
			id, err := svc.RegisterLoan(context.Background(), tt.request)

			switch {
			case tt.expectSaved:
				require.NoError(t, err)
				assert.Equal(t, newID, id)
			case tt.expectedReasons != nil:
				requireReasons(t, err, tt.expectedReasons...)
				assert.Equal(t, uuid.Nil, id)
				loanRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			default:
				require.Error(t, err)
				be, ok := customError.AsBusinessError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedCode, be.Code)
			}

			loanRepo.AssertExpectations(t)
			identityRepo.AssertExpectations(t)
		})
	}
}

func TestRegisterLoan_StructuralFailureSkipsRisk(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	identityRepo := new(mocks.MockIdentityRepository)
	expectRegisteredIP(identityRepo)

	svc := newTestService(loanRepo, identityRepo)
	_, err := svc.RegisterLoan(context.Background(),
		registerRequest(time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC), utils.NewDate(2024, 3, 5), 30000, domain.CurrencyCZK))

	requireReasons(t, err, customError.ReasonFaultyDuration)
	loanRepo.AssertNotCalled(t, "CountForIPOnDate", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtendLoan(t *testing.T) {
	id := uuid.New()

	t.Run("accepted three weeks after application", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		identityRepo := new(mocks.MockIdentityRepository)

		updated := storedLoan(id)
		updated.ReturnDate = time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
		updated.InterestRate = 4500
		updated.IsExtended = true
		updated.Version = 2

		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil).Once()
		loanRepo.On("Update", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
			return loan.InterestRate == 4500 && loan.IsExtended && loan.Version == 1 &&
				loan.ReturnDate.Equal(updated.ReturnDate)
		})).Return(nil)
		loanRepo.On("FindByID", mock.Anything, id).Return(updated, nil).Once()

		svc := newTestService(loanRepo, identityRepo)
		loan, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  testRef,
			ReturnDate: utils.NewDate(2024, 3, 25),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(4500), loan.InterestRate)
		assert.True(t, loan.IsExtended)
		assert.Equal(t, int64(2), loan.ExtensionCount())
		assert.Equal(t, int64(30000), loan.Amount)
		loanRepo.AssertExpectations(t)
	})

	t.Run("ip address compared case-insensitively", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		stored := storedLoan(id)
		stored.IPAddress = domain.IPAddressRef{Value: "FE80::1", ClientKey: testClientKey}

		loanRepo.On("FindByID", mock.Anything, id).Return(stored, nil)
		loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  domain.IPAddressRef{Value: "fe80::1"},
			ReturnDate: utils.NewDate(2024, 3, 18),
		})

		require.NoError(t, err)
	})

	rejections := []struct {
		name            string
		request         *domain.ExtendLoanRequest
		expectedReasons []customError.Reason
	}{
		{
			name:            "one day later",
			request:         &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2024, 3, 6)},
			expectedReasons: []customError.Reason{customError.ReasonFaultyDuration},
		},
		{
			name:            "one week is not an extension",
			request:         &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2024, 3, 11)},
			expectedReasons: []customError.Reason{customError.ReasonFaultyDuration},
		},
		{
			name:            "partial week",
			request:         &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2024, 3, 20)},
			expectedReasons: []customError.Reason{customError.ReasonFaultyDuration},
		},
		{
			name:            "fifty-two weeks reaches the ceiling",
			request:         &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2025, 3, 3)},
			expectedReasons: []customError.Reason{customError.ReasonExtensionCeilingExceeded},
		},
		{
			name:    "both failures are reported",
			request: &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2025, 3, 5)},
			expectedReasons: []customError.Reason{
				customError.ReasonFaultyDuration,
				customError.ReasonExtensionCeilingExceeded,
			},
		},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := new(mocks.MockLoanRepository)
			loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)

			svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
			loan, err := svc.ExtendLoan(context.Background(), id, tt.request)

			assert.Nil(t, loan)
			requireReasons(t, err, tt.expectedReasons...)
			loanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}

	t.Run("fifty-one weeks is accepted", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)
		loanRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  testRef,
			ReturnDate: utils.NewDate(2025, 2, 24),
		})

		require.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  testRef,
			ReturnDate: utils.NewDate(2024, 3, 25),
		})

		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})

	t.Run("ip address mismatch is checked before the rules", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  domain.IPAddressRef{Value: "10.0.0.1", ClientKey: testClientKey},
			ReturnDate: utils.NewDate(2024, 3, 6),
		})

		assert.ErrorIs(t, err, customError.ErrIPAddressMismatch)
		loanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("concurrent update", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)
		loanRepo.On("Update", mock.Anything, mock.Anything).Return(customError.ErrConcurrentUpdate)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  testRef,
			ReturnDate: utils.NewDate(2024, 3, 25),
		})

		assert.ErrorIs(t, err, customError.ErrConcurrentUpdate)
		be, ok := customError.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, customError.ErrCodeConcurrentUpdate, be.Code)
	})
}

func TestExtendLoan_Locking(t *testing.T) {
	id := uuid.New()
	request := &domain.ExtendLoanRequest{IPAddress: testRef, ReturnDate: utils.NewDate(2024, 3, 25)}

	t.Run("lock held elsewhere", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		locker := new(mocks.MockLocker)
		locker.On("Acquire", mock.Anything, id.String()).Return(nil, lock.ErrNotAcquired)

		svc := NewLoanService(loanRepo, new(mocks.MockIdentityRepository), locker, nil, domain.DefaultPolicy())
		_, err := svc.ExtendLoan(context.Background(), id, request)

		assert.ErrorIs(t, err, customError.ErrLoanLocked)
		loanRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("lock backend failure", func(t *testing.T) {
		locker := new(mocks.MockLocker)
		locker.On("Acquire", mock.Anything, id.String()).Return(nil, errors.New("redis down"))

		svc := NewLoanService(new(mocks.MockLoanRepository), new(mocks.MockIdentityRepository), locker, nil, domain.DefaultPolicy())
		_, err := svc.ExtendLoan(context.Background(), id, request)

		be, ok := customError.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, customError.ErrCodeCacheError, be.Code)
	})

	t.Run("lock released after a rejection", func(t *testing.T) {
		released := false
		locker := new(mocks.MockLocker)
		locker.On("Acquire", mock.Anything, id.String()).Return(lock.ReleaseFunc(func(context.Context) error {
			released = true
			return nil
		}), nil)

		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)

		svc := NewLoanService(loanRepo, new(mocks.MockIdentityRepository), locker, nil, domain.DefaultPolicy())
		_, err := svc.ExtendLoan(context.Background(), id, &domain.ExtendLoanRequest{
			IPAddress:  testRef,
			ReturnDate: utils.NewDate(2024, 3, 6),
		})

		require.Error(t, err)
		assert.True(t, released)
	})
}

func TestRemoveLoan(t *testing.T) {
	id := uuid.New()

	t.Run("removed", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)
		loanRepo.On("Delete", mock.Anything, id).Return(nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		require.NoError(t, svc.RemoveLoan(context.Background(), id))
		loanRepo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		err := svc.RemoveLoan(context.Background(), id)

		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
		loanRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deleted in between", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(storedLoan(id), nil)
		loanRepo.On("Delete", mock.Anything, id).Return(sql.ErrNoRows)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		assert.ErrorIs(t, svc.RemoveLoan(context.Background(), id), customError.ErrLoanNotFound)
	})
}

func TestGetHistory(t *testing.T) {
	id := uuid.New()

	t.Run("extended loan", func(t *testing.T) {
		loan := storedLoan(id)
		loan.ReturnDate = time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
		loan.InterestRate = 4500
		loan.IsExtended = true

		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(loan, nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		history, err := svc.GetHistory(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id.String(), history.LoanID)
		require.Len(t, history.History, 3)
		assert.Equal(t, int64(3000), history.History[0].InterestRate)
		assert.Equal(t, int64(4500), history.History[1].InterestRate)
		assert.Equal(t, int64(6750), history.History[2].InterestRate)
	})

	t.Run("not found", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.GetHistory(context.Background(), id)

		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})

	t.Run("database failure", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("FindByID", mock.Anything, id).Return(nil, errors.New("timeout"))

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		_, err := svc.GetHistory(context.Background(), id)

		be, ok := customError.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, customError.ErrCodeDatabaseError, be.Code)
	})
}

func TestListings(t *testing.T) {
	loans := []*domain.Loan{storedLoan(uuid.New()), storedLoan(uuid.New())}

	t.Run("all loans", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("ListAll", mock.Anything).Return(loans, nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		result, err := svc.ListLoans(context.Background())

		require.NoError(t, err)
		assert.Equal(t, loans, result)
	})

	t.Run("by ip address", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		identityRepo := new(mocks.MockIdentityRepository)
		identityRepo.On("IPAddressExists", mock.Anything, testIP).Return(true, nil)
		loanRepo.On("ListByIPAddress", mock.Anything, testIP).Return(loans, nil)

		svc := newTestService(loanRepo, identityRepo)
		result, err := svc.ListLoansForIPAddress(context.Background(), testIP)

		require.NoError(t, err)
		assert.Len(t, result, 2)
	})

	t.Run("unknown ip address", func(t *testing.T) {
		identityRepo := new(mocks.MockIdentityRepository)
		identityRepo.On("IPAddressExists", mock.Anything, "10.0.0.1").Return(false, nil)

		svc := newTestService(new(mocks.MockLoanRepository), identityRepo)
		_, err := svc.ListLoansForIPAddress(context.Background(), "10.0.0.1")

		assert.ErrorIs(t, err, customError.ErrIPAddressNotFound)
	})

	t.Run("by client", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		identityRepo := new(mocks.MockIdentityRepository)
		identityRepo.On("FindClientByKey", mock.Anything, testClientKey).Return(&domain.Client{Key: testClientKey}, nil)
		loanRepo.On("ListByClient", mock.Anything, testClientKey).Return(loans[:1], nil)

		svc := newTestService(loanRepo, identityRepo)
		result, err := svc.ListLoansForClient(context.Background(), testClientKey)

		require.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("unknown client", func(t *testing.T) {
		identityRepo := new(mocks.MockIdentityRepository)
		identityRepo.On("FindClientByKey", mock.Anything, "0000000000").Return(nil, sql.ErrNoRows)

		svc := newTestService(new(mocks.MockLoanRepository), identityRepo)
		_, err := svc.ListLoansForClient(context.Background(), "0000000000")

		assert.ErrorIs(t, err, customError.ErrClientNotFound)
	})

	t.Run("count", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("CountAll", mock.Anything).Return(7, nil)

		svc := newTestService(loanRepo, new(mocks.MockIdentityRepository))
		count, err := svc.CountLoans(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 7, count)
	})
}
