package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hartantodhi/loan-ledger/internal/domain"
)

// LoanRepository defines the interface for loan and schedule data operations
type LoanRepository interface {
	// Create inserts a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan with a row-level lock. Only
	// meaningful inside a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// UpdateBalance sets a loan's outstanding amount and status
	UpdateBalance(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error

	// CreateSchedule inserts scheduled repayment rows
	CreateSchedule(ctx context.Context, schedules []*domain.ScheduledRepayment) error

	// GetScheduleByLoanID retrieves a loan's installments ordered by due date
	GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error)

	// UpdateScheduleAllocation sets an installment's outstanding amount and status
	UpdateScheduleAllocation(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error

	// ListUnpaid retrieves all loans that still carry a balance
	ListUnpaid(ctx context.Context) ([]*domain.Loan, error)
}

// RepaymentRepository defines the interface for receipt data operations
type RepaymentRepository interface {
	// Create appends a new receipt. Receipts are never updated or deleted.
	Create(ctx context.Context, receipt *domain.ReceivedRepayment) error

	// GetByLoanID retrieves all receipts for a loan, newest first
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error)

	// GetTotalReceived sums all receipt amounts for a loan
	GetTotalReceived(ctx context.Context, loanID uuid.UUID) (int64, error)
}

// Repos bundles the repositories bound to one database handle, which may be a
// plain connection or an open transaction.
type Repos struct {
	Loans      LoanRepository
	Repayments RepaymentRepository
}

// Store provides repository access and a transaction boundary. WithinTx runs
// fn against transaction-bound repositories and commits only if fn returns
// nil; any error rolls everything back.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
