package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hartantodhi/loan-ledger/internal/domain"
	"github.com/hartantodhi/loan-ledger/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateBalance(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error {
	args := m.Called(ctx, id, outstandingAmount, status)
	return args.Error(0)
}

func (m *MockLoanRepository) CreateSchedule(ctx context.Context, schedules []*domain.ScheduledRepayment) error {
	args := m.Called(ctx, schedules)
	return args.Error(0)
}

func (m *MockLoanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledRepayment), args.Error(1)
}

func (m *MockLoanRepository) UpdateScheduleAllocation(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error {
	args := m.Called(ctx, id, outstandingAmount, status)
	return args.Error(0)
}

func (m *MockLoanRepository) ListUnpaid(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) Create(ctx context.Context, receipt *domain.ReceivedRepayment) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockRepaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReceivedRepayment), args.Error(1)
}

func (m *MockRepaymentRepository) GetTotalReceived(ctx context.Context, loanID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

// StubStore satisfies repository.Store over the mock repositories. WithinTx
// simply runs fn against the same repositories; BeginErr short-circuits it to
// simulate a transaction that cannot start or commit.
type StubStore struct {
	LoanRepo      *MockLoanRepository
	RepaymentRepo *MockRepaymentRepository
	BeginErr      error
}

func NewStubStore() *StubStore {
	return &StubStore{
		LoanRepo:      &MockLoanRepository{},
		RepaymentRepo: &MockRepaymentRepository{},
	}
}

func (s *StubStore) Repos() repository.Repos {
	return repository.Repos{
		Loans:      s.LoanRepo,
		Repayments: s.RepaymentRepo,
	}
}

func (s *StubStore) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	if s.BeginErr != nil {
		return s.BeginErr
	}
	return fn(s.Repos())
}
