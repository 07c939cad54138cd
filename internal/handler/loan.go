package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hartantodhi/loan-ledger/internal/domain"
	"github.com/hartantodhi/loan-ledger/internal/service"
	customError "github.com/hartantodhi/loan-ledger/pkg/errors"
	"github.com/hartantodhi/loan-ledger/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	loan, schedule, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, domain.CreateLoanResponse{
		Loan:     loan,
		Schedule: schedule,
	})
}

// RepayLoan handles POST /api/v1/loans/{loanId}/repayments
func (h *LoanHandler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromRequest(w, r)
	if !ok {
		return
	}

	var request domain.RepayLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	receipt, loan, err := h.service.RepayLoan(r.Context(), loanID, &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, domain.RepayLoanResponse{
		Receipt: receipt,
		Loan:    loan,
	})
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromRequest(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromRequest(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{
		LoanID:   loanID,
		Schedule: schedule,
	})
}

// ListRepayments handles GET /api/v1/loans/{loanId}/repayments
func (h *LoanHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromRequest(w, r)
	if !ok {
		return
	}

	receipts, err := h.service.ListRepayments(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, receipts)
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromRequest(w, r)
	if !ok {
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, outstanding)
}

func loanIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "loanId must be a valid uuid", err)
		return uuid.Nil, false
	}
	return loanID, true
}

// writeServiceError maps the business-error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		response.InternalServerError(w, "unexpected error", err)
		return
	}

	switch businessErr.Code {
	case customError.ErrCodeLoanNotFound:
		response.NotFound(w, businessErr.Message)
	case customError.ErrCodeInvalidArgument, customError.ErrCodeCurrencyMismatch:
		response.ErrorWithCode(w, http.StatusBadRequest, businessErr.Code, businessErr.Message, businessErr.Err)
	case customError.ErrCodeOverpayment, customError.ErrCodeLoanAlreadyRepaid:
		response.ErrorWithCode(w, http.StatusUnprocessableEntity, businessErr.Code, businessErr.Message, businessErr.Err)
	default:
		response.ErrorWithCode(w, http.StatusInternalServerError, businessErr.Code, businessErr.Message, businessErr.Err)
	}
}
