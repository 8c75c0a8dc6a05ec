package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/history"
	"github.com/segyhp/loan-engine/internal/lock"
	"github.com/segyhp/loan-engine/internal/metrics"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/risk"
	"github.com/segyhp/loan-engine/internal/rules"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

const (
	operationRegister = "register"
	operationExtend   = "extend"
)

type LoanService struct {
	LoanRepo     repository.LoanRepository
	IdentityRepo repository.IdentityRepository
	assessor     *risk.Assessor
	locker       lock.Locker
	metrics      *metrics.Recorder
	policy       domain.Policy
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	identityRepo repository.IdentityRepository,
	locker lock.Locker,
	recorder *metrics.Recorder,
	policy domain.Policy,
) *LoanService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &LoanService{
		LoanRepo:     loanRepo,
		IdentityRepo: identityRepo,
		assessor:     risk.NewAssessor(loanRepo, policy),
		locker:       locker,
		metrics:      recorder,
		policy:       policy,
	}
}

// Policy returns the business policy the service enforces
func (s *LoanService) Policy() domain.Policy {
	return s.policy
}

// RegisterLoan validates, risk-checks and stores a new loan
func (s *LoanService) RegisterLoan(ctx context.Context, request *domain.RegisterLoanRequest) (uuid.UUID, error) {
	loan := &domain.Loan{
		IPAddress:       request.IPAddress,
		ApplicationTime: request.ApplicationTime,
		ReturnDate:      utils.DateOf(request.ReturnDate.Time),
		Amount:          request.Amount,
		Currency:        request.Currency,
	}

	// 1. Structural checks, all of them, in a fixed order
	var violations rules.Violations

	validIP, err := rules.ValidateIPAddress(ctx, s.IdentityRepo, loan.IPAddress)
	if err != nil {
		return uuid.Nil, customError.WrapDatabaseError(err)
	}
	if !validIP {
		violations.Add(customError.KindStructuralInvalid, customError.ReasonFaultyIPAddress,
			"Loan cannot be saved: the assigned IP address is not registered or belongs to another client")
	}

	if !rules.ValidateRegistrationDuration(loan.ApplicationTime, loan.ReturnDate, s.policy) {
		violations.Add(customError.KindStructuralInvalid, customError.ReasonFaultyDuration,
			fmt.Sprintf("Loan cannot be saved: the return date must be exactly %d week(s) after the application date", s.policy.InitialPeriodWeeks))
	}

	if !rules.ValidateAmount(loan.Currency, loan.Amount, s.policy) {
		ceiling, _ := s.policy.Ceiling(loan.Currency)
		violations.Add(customError.KindStructuralInvalid, customError.ReasonFaultyAmount,
			fmt.Sprintf("Loan cannot be saved: the amount must be greater than 0 and at most %d %s", ceiling, loan.Currency))
	}

	if !violations.Empty() {
		s.reject(operationRegister, loan, violations)
		return uuid.Nil, violations.Err()
	}

	// 2. Risk assessment
	violation, err := s.assessor.Assess(ctx, loan)
	if err != nil {
		return uuid.Nil, customError.WrapDatabaseError(err)
	}
	if violation != nil {
		violations = append(violations, *violation)
		s.reject(operationRegister, loan, violations)
		return uuid.Nil, violations.Err()
	}

	// 3. Price and store
	loan.InterestRate = rules.InitialInterest(loan.Amount, s.policy)
	loan.IsExtended = false

	id, err := s.LoanRepo.Save(ctx, loan)
	if err != nil {
		return uuid.Nil, customError.WrapDatabaseError(err)
	}

	s.metrics.LoanRegistered()
	log.Info().
		Str("loan_id", id.String()).
		Str("ip_address", loan.IPAddress.Value).
		Int64("amount", loan.Amount).
		Str("currency", string(loan.Currency)).
		Int64("interest_rate", loan.InterestRate).
		Msg("Loan registered")

	return id, nil
}

// ExtendLoan moves the return date of an existing loan forward and compounds its interest.
// The returned loan is the one re-read from the repository.
func (s *LoanService) ExtendLoan(ctx context.Context, id uuid.UUID, request *domain.ExtendLoanRequest) (*domain.Loan, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	loan, err := s.findLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(loan.IPAddress.Value), strings.TrimSpace(request.IPAddress.Value)) {
		log.Error().
			Str("loan_id", id.String()).
			Str("ip_address", request.IPAddress.Value).
			Msg("Extension rejected: IP address does not match the loan")
		return nil, customError.WrapIPAddressMismatch(id.String())
	}

	// durations are measured from the stored application time
	returnDate := utils.DateOf(request.ReturnDate.Time)

	var violations rules.Violations
	if !rules.ValidateExtensionDuration(loan.ApplicationTime, returnDate, s.policy) {
		violations.Add(customError.KindStructuralInvalid, customError.ReasonFaultyDuration,
			fmt.Sprintf("Loan cannot be extended: %s is not a whole number of weeks, at least %d, after the application date %s",
				returnDate.Format(utils.DateLayout), 2*s.policy.InitialPeriodWeeks, loan.ApplicationDate().Format(utils.DateLayout)))
	}
	if !rules.ValidateExtensionCeiling(loan.ApplicationTime, returnDate, s.policy) {
		violations.Add(customError.KindExtensionCeilingExceeded, customError.ReasonExtensionCeilingExceeded,
			fmt.Sprintf("Loan cannot be extended: the loan may run for less than %d weeks from the application date %s",
				s.policy.MaxExtensionWeeks, loan.ApplicationDate().Format(utils.DateLayout)))
	}

	if !violations.Empty() {
		s.reject(operationExtend, loan, violations)
		return nil, violations.Err()
	}

	loan.ReturnDate = returnDate
	loan.IsExtended = true
	loan.InterestRate = rules.NextInterest(loan.InterestRate, s.policy)

	if err := s.LoanRepo.Update(ctx, loan); err != nil {
		if errors.Is(err, customError.ErrConcurrentUpdate) {
			return nil, customError.WrapConcurrentUpdate(id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	updated, err := s.findLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.LoanExtended()
	log.Info().
		Str("loan_id", id.String()).
		Str("return_date", updated.ReturnDate.Format(utils.DateLayout)).
		Int64("interest_rate", updated.InterestRate).
		Int64("extension_count", updated.ExtensionCount()).
		Msg("Loan extended")

	return updated, nil
}

// RemoveLoan deletes a loan permanently
func (s *LoanService) RemoveLoan(ctx context.Context, id uuid.UUID) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release(context.WithoutCancel(ctx))

	if _, err := s.findLoan(ctx, id); err != nil {
		return err
	}

	if err := s.LoanRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(id.String())
		}
		return customError.WrapDatabaseError(err)
	}

	s.metrics.LoanRemoved()
	log.Info().Str("loan_id", id.String()).Msg("Loan removed")

	return nil
}

// GetHistory reconstructs the extension history of a loan
func (s *LoanService) GetHistory(ctx context.Context, id uuid.UUID) (*domain.HistoryResponse, error) {
	loan, err := s.findLoan(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.HistoryResponse{
		LoanID:  id.String(),
		History: history.Reconstruct(loan, s.policy),
	}, nil
}

// GetLoan returns a single loan
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.findLoan(ctx, id)
}

// ListLoans returns every registered loan
func (s *LoanService) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.ListAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// ListLoansForIPAddress returns the loans issued against a registered IP address
func (s *LoanService) ListLoansForIPAddress(ctx context.Context, value string) ([]*domain.Loan, error) {
	exists, err := s.IdentityRepo.IPAddressExists(ctx, value)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !exists {
		return nil, customError.WrapIPAddressNotFound(value)
	}

	loans, err := s.LoanRepo.ListByIPAddress(ctx, value)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// ListLoansForClient returns the loans issued against any IP address of a client
func (s *LoanService) ListLoansForClient(ctx context.Context, clientKey string) ([]*domain.Loan, error) {
	if _, err := s.IdentityRepo.FindClientByKey(ctx, clientKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapClientNotFound(clientKey)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	loans, err := s.LoanRepo.ListByClient(ctx, clientKey)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// CountLoans returns the number of registered loans
func (s *LoanService) CountLoans(ctx context.Context) (int, error) {
	count, err := s.LoanRepo.CountAll(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	return count, nil
}

func (s *LoanService) findLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) acquire(ctx context.Context, id uuid.UUID) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, id.String())
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, customError.WrapLoanLocked(id.String())
		}
		return nil, customError.WrapCacheError(err)
	}
	return release, nil
}

func (s *LoanService) reject(operation string, loan *domain.Loan, violations rules.Violations) {
	for _, v := range violations {
		s.metrics.LoanRejected(operation, string(v.Reason))
		log.Error().
			Str("operation", operation).
			Str("loan_id", loan.ID.String()).
			Str("ip_address", loan.IPAddress.Value).
			Str("reason", string(v.Reason)).
			Msg(v.Message)
	}
}
