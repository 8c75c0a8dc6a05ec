package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
)

// LoanService is the engine surface the handler drives
type LoanService interface {
	RegisterLoan(ctx context.Context, request *domain.RegisterLoanRequest) (uuid.UUID, error)
	ExtendLoan(ctx context.Context, id uuid.UUID, request *domain.ExtendLoanRequest) (*domain.Loan, error)
	RemoveLoan(ctx context.Context, id uuid.UUID) error
	GetHistory(ctx context.Context, id uuid.UUID) (*domain.HistoryResponse, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context) ([]*domain.Loan, error)
	ListLoansForIPAddress(ctx context.Context, value string) ([]*domain.Loan, error)
	ListLoansForClient(ctx context.Context, clientKey string) ([]*domain.Loan, error)
	CountLoans(ctx context.Context) (int, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	basePath  string
}

func NewLoanHandler(service LoanService, basePath string) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		basePath:  strings.TrimSuffix(basePath, "/"),
	}
}

// RegisterRoutes mounts the loan endpoints on the router
func (h *LoanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/loans", h.RegisterLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/count", h.CountLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}", h.RemoveLoan).Methods(http.MethodDelete)
	r.HandleFunc("/loans/{id}/extend", h.ExtendLoan).Methods(http.MethodPut)
	r.HandleFunc("/loans/{id}/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/clients/{key}/loans", h.ListClientLoans).Methods(http.MethodGet)
}

// RegisterLoan handles POST /loans
func (h *LoanHandler) RegisterLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.RegisterLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	id, err := h.service.RegisterLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, r, "Loan could not be registered", err)
		return
	}

	location := h.basePath + "/loans/" + id.String() + "/history"
	response.Created(w, location, domain.RegisterLoanResponse{ID: id, Location: location})
}

// ExtendLoan handles PUT /loans/{id}/extend
func (h *LoanHandler) ExtendLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	var request domain.ExtendLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.ExtendLoan(r.Context(), id, &request)
	if err != nil {
		h.writeError(w, r, "Loan could not be extended", err)
		return
	}

	response.Accepted(w, loan.View())
}

// RemoveLoan handles DELETE /loans/{id}
func (h *LoanHandler) RemoveLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveLoan(r.Context(), id); err != nil {
		h.writeError(w, r, "Loan could not be removed", err)
		return
	}

	response.NoContent(w)
}

// GetHistory handles GET /loans/{id}/history
func (h *LoanHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Loan history unavailable", err)
		return
	}

	response.Success(w, history)
}

// GetLoan handles GET /loans/{id}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Loan unavailable", err)
		return
	}

	response.Success(w, loan.View())
}

// ListLoans handles GET /loans, optionally filtered by ?ip=
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []*domain.Loan
		err   error
	)

	if ip := strings.TrimSpace(r.URL.Query().Get("ip")); ip != "" {
		loans, err = h.service.ListLoansForIPAddress(r.Context(), ip)
	} else {
		loans, err = h.service.ListLoans(r.Context())
	}
	if err != nil {
		h.writeError(w, r, "Loans unavailable", err)
		return
	}

	response.Success(w, views(loans))
}

// ListClientLoans handles GET /clients/{key}/loans
func (h *LoanHandler) ListClientLoans(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	loans, err := h.service.ListLoansForClient(r.Context(), key)
	if err != nil {
		h.writeError(w, r, "Loans unavailable", err)
		return
	}

	response.Success(w, views(loans))
}

// CountLoans handles GET /loans/count
func (h *LoanHandler) CountLoans(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountLoans(r.Context())
	if err != nil {
		h.writeError(w, r, "Loans unavailable", err)
		return
	}

	response.Success(w, domain.CountResponse{Count: count})
}

func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, request interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		response.BadRequest(w, "Invalid request body", customError.WrapInvalidRequest(err))
		return false
	}

	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, "Validation failed", customError.WrapInvalidRequest(err))
		return false
	}

	return true
}

func (h *LoanHandler) loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", customError.WrapInvalidRequest(err))
		return uuid.Nil, false
	}
	return id, true
}

func (h *LoanHandler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(message)
	}
	response.Error(w, status, message, err)
}

// reasonStatus carries the status codes the loan API has always answered with
var reasonStatus = map[customError.Reason]int{
	customError.ReasonFaultyIPAddress:          http.StatusBadRequest,
	customError.ReasonFaultyDuration:           http.StatusBadRequest,
	customError.ReasonFaultyAmount:             http.StatusBadRequest,
	customError.ReasonDailyVolumeExceeded:      http.StatusPaymentRequired,
	customError.ReasonHighRiskWindow:           http.StatusForbidden,
	customError.ReasonExtensionCeilingExceeded: http.StatusPaymentRequired,
}

// StatusFor maps an engine error onto an HTTP status. A rejection answers
// with the status of its first violation.
func StatusFor(err error) int {
	if be, ok := customError.AsBusinessError(err); ok && len(be.Violations) > 0 {
		if status, ok := reasonStatus[be.Violations[0].Reason]; ok {
			return status
		}
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, customError.ErrLoanNotFound),
		errors.Is(err, customError.ErrClientNotFound),
		errors.Is(err, customError.ErrIPAddressNotFound):
		return http.StatusNotFound
	case errors.Is(err, customError.ErrIPAddressMismatch):
		return http.StatusExpectationFailed
	case errors.Is(err, customError.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, customError.ErrLoanLocked):
		return http.StatusLocked
	case errors.Is(err, customError.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func views(loans []*domain.Loan) []domain.LoanView {
	out := make([]domain.LoanView, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loan.View())
	}
	return out
}
