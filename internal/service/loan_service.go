package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hartantodhi/loan-ledger/internal/domain"
	"github.com/hartantodhi/loan-ledger/internal/repository"
	customError "github.com/hartantodhi/loan-ledger/pkg/errors"
	"github.com/hartantodhi/loan-ledger/pkg/utils"
)

type LoanService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewLoanService(store repository.Store, logger *zap.Logger) *LoanService {
	return &LoanService{
		store:  store,
		logger: logger,
	}
}

// CreateLoan creates a loan and its full repayment schedule as one atomic
// unit: one installment per month, due on the same day-of-month as the
// disbursement date, for terms months. Either the loan and all installments
// are written or nothing is.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.ScheduledRepayment, error) {
	if request.Amount <= 0 {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("amount must be positive, got %d", request.Amount))
	}
	if request.Terms <= 0 {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("terms must be positive, got %d", request.Terms))
	}
	if !utils.IsValidCurrencyCode(request.CurrencyCode) {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("currency code %q is not a 3-letter ISO 4217 code", request.CurrencyCode))
	}

	userID, err := uuid.Parse(request.UserID)
	if err != nil {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("user id %q is not a valid uuid", request.UserID))
	}

	processedAt, err := utils.ParseDate(request.ProcessedAt)
	if err != nil {
		return nil, nil, customError.WrapInvalidArgument(err.Error())
	}

	loan := &domain.Loan{
		ID:                uuid.New(),
		UserID:            userID,
		Amount:            request.Amount,
		OutstandingAmount: request.Amount,
		CurrencyCode:      request.CurrencyCode,
		Terms:             request.Terms,
		Status:            domain.LoanStatusDue,
		ProcessedAt:       processedAt,
	}

	schedules := buildSchedule(loan)

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		if err := r.Loans.Create(ctx, loan); err != nil {
			return err
		}
		return r.Loans.CreateSchedule(ctx, schedules)
	})
	if err != nil {
		return nil, nil, customError.WrapPersistenceError(err)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.Int64("amount", loan.Amount),
		zap.String("currency", loan.CurrencyCode),
		zap.Int("terms", loan.Terms),
	)

	return loan, schedules, nil
}

// buildSchedule expands a loan into its installment rows. Installment i is
// due processed_at + i months with the day-of-month clamped to the target
// month's length. The principal is split evenly with the remainder on the
// last installment, so installment amounts always sum to the principal.
func buildSchedule(loan *domain.Loan) []*domain.ScheduledRepayment {
	amounts := utils.SplitAmount(loan.Amount, loan.Terms)

	schedules := make([]*domain.ScheduledRepayment, 0, loan.Terms)
	for i := 1; i <= loan.Terms; i++ {
		schedules = append(schedules, &domain.ScheduledRepayment{
			ID:                uuid.New(),
			LoanID:            loan.ID,
			Amount:            amounts[i-1],
			OutstandingAmount: amounts[i-1],
			CurrencyCode:      loan.CurrencyCode,
			DueDate:           utils.AddMonths(loan.ProcessedAt, i),
			Status:            domain.ScheduleStatusDue,
		})
	}

	return schedules
}

// RepayLoan applies a payment to a loan and appends an immutable receipt.
// The loan row is locked for the duration of the transaction so concurrent
// payments against the same loan serialize instead of racing on the balance.
func (s *LoanService) RepayLoan(ctx context.Context, loanID uuid.UUID, request *domain.RepayLoanRequest) (*domain.ReceivedRepayment, *domain.Loan, error) {
	if request.Amount <= 0 {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("amount must be positive, got %d", request.Amount))
	}
	if !utils.IsValidCurrencyCode(request.CurrencyCode) {
		return nil, nil, customError.WrapInvalidArgument(fmt.Sprintf("currency code %q is not a 3-letter ISO 4217 code", request.CurrencyCode))
	}

	receivedAt, err := utils.ParseDate(request.ReceivedAt)
	if err != nil {
		return nil, nil, customError.WrapInvalidArgument(err.Error())
	}

	var (
		receipt *domain.ReceivedRepayment
		loan    *domain.Loan
	)

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		var txErr error
		loan, txErr = r.Loans.GetByIDForUpdate(ctx, loanID)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return customError.WrapLoanNotFound(loanID.String())
			}
			return txErr
		}

		if loan.IsRepaid() {
			return customError.WrapLoanAlreadyRepaid(loanID.String())
		}
		if loan.CurrencyCode != request.CurrencyCode {
			return customError.WrapCurrencyMismatch(loan.CurrencyCode, request.CurrencyCode)
		}
		if request.Amount > loan.OutstandingAmount {
			return customError.WrapOverpayment(loan.OutstandingAmount, request.Amount)
		}

		loan.OutstandingAmount -= request.Amount
		if loan.OutstandingAmount == 0 {
			loan.Status = domain.LoanStatusRepaid
		} else {
			loan.Status = domain.LoanStatusDue
		}

		if txErr = allocateToSchedule(ctx, r.Loans, loan, request.Amount); txErr != nil {
			return txErr
		}

		if txErr = r.Loans.UpdateBalance(ctx, loan.ID, loan.OutstandingAmount, loan.Status); txErr != nil {
			return txErr
		}

		receipt = &domain.ReceivedRepayment{
			ID:           uuid.New(),
			LoanID:       loan.ID,
			Amount:       request.Amount,
			CurrencyCode: request.CurrencyCode,
			ReceivedAt:   receivedAt,
		}
		return r.Repayments.Create(ctx, receipt)
	})
	if err != nil {
		var businessErr *customError.BusinessError
		if errors.As(err, &businessErr) {
			return nil, nil, err
		}
		return nil, nil, customError.WrapPersistenceError(err)
	}

	s.logger.Info("repayment applied",
		zap.String("loan_id", loan.ID.String()),
		zap.Int64("amount", receipt.Amount),
		zap.Int64("outstanding_amount", loan.OutstandingAmount),
		zap.String("status", loan.Status),
	)

	return receipt, loan, nil
}

// allocateToSchedule applies a payment against the earliest outstanding
// installments in due-date order. The loan aggregate stays authoritative;
// installment rows only track how far payments have reached.
func allocateToSchedule(ctx context.Context, loans repository.LoanRepository, loan *domain.Loan, amount int64) error {
	schedules, err := loans.GetScheduleByLoanID(ctx, loan.ID)
	if err != nil {
		return err
	}

	remaining := amount
	for _, installment := range schedules {
		if remaining <= 0 {
			break
		}
		if installment.OutstandingAmount <= 0 {
			continue
		}

		applied := remaining
		if applied > installment.OutstandingAmount {
			applied = installment.OutstandingAmount
		}

		installment.OutstandingAmount -= applied
		if installment.OutstandingAmount == 0 {
			installment.Status = domain.ScheduleStatusRepaid
		} else {
			installment.Status = domain.ScheduleStatusPartial
		}
		remaining -= applied

		if err := loans.UpdateScheduleAllocation(ctx, installment.ID, installment.OutstandingAmount, installment.Status); err != nil {
			return err
		}
	}

	// A fully repaid loan leaves no installment behind, including zero-amount
	// rows produced when the principal is smaller than the term count.
	if loan.OutstandingAmount == 0 {
		for _, installment := range schedules {
			if installment.Status == domain.ScheduleStatusRepaid {
				continue
			}
			if err := loans.UpdateScheduleAllocation(ctx, installment.ID, 0, domain.ScheduleStatusRepaid); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetLoan returns a loan by id.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.store.Repos().Loans.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapPersistenceError(err)
	}
	return loan, nil
}

// GetSchedule returns a loan's installments ordered by due date.
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	schedules, err := s.store.Repos().Loans.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	return schedules, nil
}

// ListRepayments returns a loan's receipt history, newest first.
func (s *LoanService) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	receipts, err := s.store.Repos().Repayments.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	return receipts, nil
}

// GetOutstanding returns the loan's current balance view.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OutstandingResponse{
		LoanID:            loan.ID,
		OutstandingAmount: loan.OutstandingAmount,
		CurrencyCode:      loan.CurrencyCode,
		Status:            loan.Status,
	}, nil
}
