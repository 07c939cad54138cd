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
	"go.uber.org/zap"

	"github.com/hartantodhi/loan-ledger/internal/domain"
	customError "github.com/hartantodhi/loan-ledger/pkg/errors"
	"github.com/hartantodhi/loan-ledger/tests/mocks"
)

func newTestService(store *mocks.StubStore) *LoanService {
	return NewLoanService(store, zap.NewNop())
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreateLoan(t *testing.T) {
	userID := uuid.NewString()

	tests := []struct {
		name           string
		request        *domain.CreateLoanRequest
		setupMocks     func(*mocks.StubStore)
		expectedErr    error
		validateResult func(*testing.T, *domain.Loan, []*domain.ScheduledRepayment)
	}{
		{
			name: "Success - even split, monthly due dates",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       9000,
				CurrencyCode: "VND",
				Terms:        3,
				ProcessedAt:  "2023-01-01",
			},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
					return loan.Amount == 9000 && loan.OutstandingAmount == 9000 && loan.Status == domain.LoanStatusDue
				})).Return(nil)
				store.LoanRepo.On("CreateSchedule", mock.Anything, mock.MatchedBy(func(schedules []*domain.ScheduledRepayment) bool {
					return len(schedules) == 3
				})).Return(nil)
			},
			validateResult: func(t *testing.T, loan *domain.Loan, schedule []*domain.ScheduledRepayment) {
				require.Len(t, schedule, 3)
				assert.Equal(t, date("2023-02-01"), schedule[0].DueDate)
				assert.Equal(t, date("2023-03-01"), schedule[1].DueDate)
				assert.Equal(t, date("2023-04-01"), schedule[2].DueDate)
				for _, installment := range schedule {
					assert.Equal(t, int64(3000), installment.Amount)
					assert.Equal(t, int64(3000), installment.OutstandingAmount)
					assert.Equal(t, domain.ScheduleStatusDue, installment.Status)
					assert.Equal(t, "VND", installment.CurrencyCode)
				}
			},
		},
		{
			name: "Success - remainder lands on last installment",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       10000,
				CurrencyCode: "USD",
				Terms:        3,
				ProcessedAt:  "2023-05-15",
			},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				store.LoanRepo.On("CreateSchedule", mock.Anything, mock.Anything).Return(nil)
			},
			validateResult: func(t *testing.T, loan *domain.Loan, schedule []*domain.ScheduledRepayment) {
				require.Len(t, schedule, 3)
				assert.Equal(t, int64(3333), schedule[0].Amount)
				assert.Equal(t, int64(3333), schedule[1].Amount)
				assert.Equal(t, int64(3334), schedule[2].Amount)
			},
		},
		{
			name: "Success - day-of-month clamps to end of February",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       6000,
				CurrencyCode: "EUR",
				Terms:        2,
				ProcessedAt:  "2023-01-31",
			},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				store.LoanRepo.On("CreateSchedule", mock.Anything, mock.Anything).Return(nil)
			},
			validateResult: func(t *testing.T, loan *domain.Loan, schedule []*domain.ScheduledRepayment) {
				require.Len(t, schedule, 2)
				assert.Equal(t, date("2023-02-28"), schedule[0].DueDate)
				assert.Equal(t, date("2023-03-31"), schedule[1].DueDate)
			},
		},
		{
			name: "Failure - non-positive amount",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       0,
				CurrencyCode: "USD",
				Terms:        3,
				ProcessedAt:  "2023-01-01",
			},
			expectedErr: customError.ErrInvalidArgument,
		},
		{
			name: "Failure - non-positive terms",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       9000,
				CurrencyCode: "USD",
				Terms:        -1,
				ProcessedAt:  "2023-01-01",
			},
			expectedErr: customError.ErrInvalidArgument,
		},
		{
			name: "Failure - lowercase currency code",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       9000,
				CurrencyCode: "usd",
				Terms:        3,
				ProcessedAt:  "2023-01-01",
			},
			expectedErr: customError.ErrInvalidArgument,
		},
		{
			name: "Failure - unparseable processed_at",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       9000,
				CurrencyCode: "USD",
				Terms:        3,
				ProcessedAt:  "01/01/2023",
			},
			expectedErr: customError.ErrInvalidArgument,
		},
		{
			name: "Failure - malformed user id",
			request: &domain.CreateLoanRequest{
				UserID:       "not-a-uuid",
				Amount:       9000,
				CurrencyCode: "USD",
				Terms:        3,
				ProcessedAt:  "2023-01-01",
			},
			expectedErr: customError.ErrInvalidArgument,
		},
		{
			name: "Failure - store rejects the transaction",
			request: &domain.CreateLoanRequest{
				UserID:       userID,
				Amount:       9000,
				CurrencyCode: "USD",
				Terms:        3,
				ProcessedAt:  "2023-01-01",
			},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				store.LoanRepo.On("CreateSchedule", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			expectedErr: customError.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewStubStore()
			if tt.setupMocks != nil {
				tt.setupMocks(store)
			}

			loan, schedule, err := newTestService(store).CreateLoan(context.Background(), tt.request)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, loan)
				assert.Nil(t, schedule)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.request.Amount, loan.Amount)
			assert.Equal(t, tt.request.Amount, loan.OutstandingAmount)
			assert.Equal(t, domain.LoanStatusDue, loan.Status)
			assert.Equal(t, tt.request.Terms, loan.Terms)
			if tt.validateResult != nil {
				tt.validateResult(t, loan, schedule)
			}
			store.LoanRepo.AssertExpectations(t)
		})
	}
}

func dueInstallment(loanID uuid.UUID, amount int64, due string) *domain.ScheduledRepayment {
	return &domain.ScheduledRepayment{
		ID:                uuid.New(),
		LoanID:            loanID,
		Amount:            amount,
		OutstandingAmount: amount,
		CurrencyCode:      "USD",
		DueDate:           date(due),
		Status:            domain.ScheduleStatusDue,
	}
}

func TestRepayLoan(t *testing.T) {
	loanID := uuid.New()

	newLoan := func(outstanding int64, status string) *domain.Loan {
		return &domain.Loan{
			ID:                loanID,
			UserID:            uuid.New(),
			Amount:            9000,
			OutstandingAmount: outstanding,
			CurrencyCode:      "USD",
			Terms:             3,
			Status:            status,
			ProcessedAt:       date("2023-01-01"),
		}
	}

	tests := []struct {
		name          string
		request       *domain.RepayLoanRequest
		setupMocks    func(*mocks.StubStore)
		expectedErr   error
		noStoreCalls  bool
		validateState func(*testing.T, *domain.ReceivedRepayment, *domain.Loan)
	}{
		{
			name:    "Success - partial payment keeps loan due",
			request: &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "USD", ReceivedAt: "2023-02-01"},
			setupMocks: func(store *mocks.StubStore) {
				first := dueInstallment(loanID, 3000, "2023-02-01")
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(9000, domain.LoanStatusDue), nil)
				store.LoanRepo.On("GetScheduleByLoanID", mock.Anything, loanID).Return([]*domain.ScheduledRepayment{
					first,
					dueInstallment(loanID, 3000, "2023-03-01"),
					dueInstallment(loanID, 3000, "2023-04-01"),
				}, nil)
				store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, first.ID, int64(0), domain.ScheduleStatusRepaid).Return(nil)
				store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(6000), domain.LoanStatusDue).Return(nil)
				store.RepaymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(receipt *domain.ReceivedRepayment) bool {
					return receipt.Amount == 3000 && receipt.CurrencyCode == "USD" && receipt.ReceivedAt.Equal(date("2023-02-01"))
				})).Return(nil)
			},
			validateState: func(t *testing.T, receipt *domain.ReceivedRepayment, loan *domain.Loan) {
				assert.Equal(t, int64(6000), loan.OutstandingAmount)
				assert.Equal(t, domain.LoanStatusDue, loan.Status)
				assert.Equal(t, int64(3000), receipt.Amount)
			},
		},
		{
			name:    "Success - payment lands across two installments",
			request: &domain.RepayLoanRequest{Amount: 4500, CurrencyCode: "USD", ReceivedAt: "2023-02-10"},
			setupMocks: func(store *mocks.StubStore) {
				first := dueInstallment(loanID, 3000, "2023-02-01")
				second := dueInstallment(loanID, 3000, "2023-03-01")
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(9000, domain.LoanStatusDue), nil)
				store.LoanRepo.On("GetScheduleByLoanID", mock.Anything, loanID).Return([]*domain.ScheduledRepayment{
					first,
					second,
					dueInstallment(loanID, 3000, "2023-04-01"),
				}, nil)
				store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, first.ID, int64(0), domain.ScheduleStatusRepaid).Return(nil)
				store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, second.ID, int64(1500), domain.ScheduleStatusPartial).Return(nil)
				store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(4500), domain.LoanStatusDue).Return(nil)
				store.RepaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			validateState: func(t *testing.T, receipt *domain.ReceivedRepayment, loan *domain.Loan) {
				assert.Equal(t, int64(4500), loan.OutstandingAmount)
				assert.Equal(t, domain.LoanStatusDue, loan.Status)
			},
		},
		{
			name:    "Success - exact payoff flips status to repaid",
			request: &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "USD", ReceivedAt: "2023-04-01"},
			setupMocks: func(store *mocks.StubStore) {
				paid1 := dueInstallment(loanID, 3000, "2023-02-01")
				paid1.OutstandingAmount = 0
				paid1.Status = domain.ScheduleStatusRepaid
				paid2 := dueInstallment(loanID, 3000, "2023-03-01")
				paid2.OutstandingAmount = 0
				paid2.Status = domain.ScheduleStatusRepaid
				last := dueInstallment(loanID, 3000, "2023-04-01")
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(3000, domain.LoanStatusDue), nil)
				store.LoanRepo.On("GetScheduleByLoanID", mock.Anything, loanID).Return([]*domain.ScheduledRepayment{paid1, paid2, last}, nil)
				store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, last.ID, int64(0), domain.ScheduleStatusRepaid).Return(nil)
				store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(0), domain.LoanStatusRepaid).Return(nil)
				store.RepaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			validateState: func(t *testing.T, receipt *domain.ReceivedRepayment, loan *domain.Loan) {
				assert.Equal(t, int64(0), loan.OutstandingAmount)
				assert.Equal(t, domain.LoanStatusRepaid, loan.Status)
			},
		},
		{
			name:    "Failure - overpayment is rejected",
			request: &domain.RepayLoanRequest{Amount: 9500, CurrencyCode: "USD", ReceivedAt: "2023-02-01"},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(9000, domain.LoanStatusDue), nil)
			},
			expectedErr: customError.ErrOverpayment,
		},
		{
			name:    "Failure - repaid loan rejects further payments",
			request: &domain.RepayLoanRequest{Amount: 100, CurrencyCode: "USD", ReceivedAt: "2023-05-01"},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(0, domain.LoanStatusRepaid), nil)
			},
			expectedErr: customError.ErrLoanAlreadyRepaid,
		},
		{
			name:    "Failure - currency mismatch",
			request: &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "EUR", ReceivedAt: "2023-02-01"},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(9000, domain.LoanStatusDue), nil)
			},
			expectedErr: customError.ErrCurrencyMismatch,
		},
		{
			name:         "Failure - non-positive amount",
			request:      &domain.RepayLoanRequest{Amount: 0, CurrencyCode: "USD", ReceivedAt: "2023-02-01"},
			expectedErr:  customError.ErrInvalidArgument,
			noStoreCalls: true,
		},
		{
			name:         "Failure - unparseable received_at",
			request:      &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "USD", ReceivedAt: "yesterday"},
			expectedErr:  customError.ErrInvalidArgument,
			noStoreCalls: true,
		},
		{
			name:    "Failure - unknown loan",
			request: &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "USD", ReceivedAt: "2023-02-01"},
			setupMocks: func(store *mocks.StubStore) {
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(nil, sql.ErrNoRows)
			},
			expectedErr: customError.ErrLoanNotFound,
		},
		{
			name:    "Failure - receipt insert fails and surfaces as persistence error",
			request: &domain.RepayLoanRequest{Amount: 3000, CurrencyCode: "USD", ReceivedAt: "2023-02-01"},
			setupMocks: func(store *mocks.StubStore) {
				first := dueInstallment(loanID, 3000, "2023-02-01")
				store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(newLoan(9000, domain.LoanStatusDue), nil)
				store.LoanRepo.On("GetScheduleByLoanID", mock.Anything, loanID).Return([]*domain.ScheduledRepayment{first}, nil)
				store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, first.ID, int64(0), domain.ScheduleStatusRepaid).Return(nil)
				store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(6000), domain.LoanStatusDue).Return(nil)
				store.RepaymentRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			expectedErr: customError.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewStubStore()
			if tt.setupMocks != nil {
				tt.setupMocks(store)
			}

			receipt, loan, err := newTestService(store).RepayLoan(context.Background(), loanID, tt.request)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, receipt)
				assert.Nil(t, loan)
				// Rejected payments must leave loan and ledger untouched. A
				// persistence failure rolls back at the transaction boundary
				// instead, so the write calls themselves are expected there.
				if !errors.Is(tt.expectedErr, customError.ErrPersistence) {
					store.LoanRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
					store.RepaymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
				if tt.noStoreCalls {
					store.LoanRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, receipt)
			require.NotNil(t, loan)
			assert.Equal(t, loanID, receipt.LoanID)
			if tt.validateState != nil {
				tt.validateState(t, receipt, loan)
			}
			store.LoanRepo.AssertExpectations(t)
			store.RepaymentRepo.AssertExpectations(t)
		})
	}
}

// The reference lifecycle: a 9000 loan over 3 terms starting 2023-01-01 is
// repaid with 3000 then 6000, after which any further payment is rejected.
func TestRepayLoan_FullLifecycle(t *testing.T) {
	loanID := uuid.New()
	ctx := context.Background()
	store := mocks.NewStubStore()
	svc := newTestService(store)

	loanAt := func(outstanding int64, status string) *domain.Loan {
		return &domain.Loan{
			ID:                loanID,
			Amount:            9000,
			OutstandingAmount: outstanding,
			CurrencyCode:      "USD",
			Terms:             3,
			Status:            status,
			ProcessedAt:       date("2023-01-01"),
		}
	}

	first := dueInstallment(loanID, 3000, "2023-02-01")
	second := dueInstallment(loanID, 3000, "2023-03-01")
	third := dueInstallment(loanID, 3000, "2023-04-01")
	schedule := []*domain.ScheduledRepayment{first, second, third}

	store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(loanAt(9000, domain.LoanStatusDue), nil).Once()
	store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(loanAt(6000, domain.LoanStatusDue), nil).Once()
	store.LoanRepo.On("GetByIDForUpdate", mock.Anything, loanID).Return(loanAt(0, domain.LoanStatusRepaid), nil).Once()
	store.LoanRepo.On("GetScheduleByLoanID", mock.Anything, loanID).Return(schedule, nil)
	store.LoanRepo.On("UpdateScheduleAllocation", mock.Anything, mock.Anything, int64(0), domain.ScheduleStatusRepaid).Return(nil)
	store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(6000), domain.LoanStatusDue).Return(nil).Once()
	store.LoanRepo.On("UpdateBalance", mock.Anything, loanID, int64(0), domain.LoanStatusRepaid).Return(nil).Once()
	store.RepaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	// First payment: 3000 on 2023-02-01.
	receipt, loan, err := svc.RepayLoan(ctx, loanID, &domain.RepayLoanRequest{
		Amount: 3000, CurrencyCode: "USD", ReceivedAt: "2023-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), receipt.Amount)
	assert.Equal(t, int64(6000), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusDue, loan.Status)
	assert.Equal(t, domain.ScheduleStatusRepaid, first.Status)

	// Second payment: 6000 on 2023-03-01 settles the loan.
	receipt, loan, err = svc.RepayLoan(ctx, loanID, &domain.RepayLoanRequest{
		Amount: 6000, CurrencyCode: "USD", ReceivedAt: "2023-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), receipt.Amount)
	assert.Equal(t, int64(0), loan.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusRepaid, loan.Status)
	assert.Equal(t, domain.ScheduleStatusRepaid, second.Status)
	assert.Equal(t, domain.ScheduleStatusRepaid, third.Status)

	// Third payment of any positive amount is rejected.
	_, _, err = svc.RepayLoan(ctx, loanID, &domain.RepayLoanRequest{
		Amount: 1, CurrencyCode: "USD", ReceivedAt: "2023-04-01",
	})
	assert.ErrorIs(t, err, customError.ErrLoanAlreadyRepaid)

	// Exactly one receipt per successful repayment call.
	store.RepaymentRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestGetOutstanding(t *testing.T) {
	loanID := uuid.New()
	store := mocks.NewStubStore()
	store.LoanRepo.On("GetByID", mock.Anything, loanID).Return(&domain.Loan{
		ID:                loanID,
		Amount:            9000,
		OutstandingAmount: 4500,
		CurrencyCode:      "USD",
		Status:            domain.LoanStatusDue,
	}, nil)

	outstanding, err := newTestService(store).GetOutstanding(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), outstanding.OutstandingAmount)
	assert.Equal(t, domain.LoanStatusDue, outstanding.Status)
}

func TestGetLoan_NotFound(t *testing.T) {
	loanID := uuid.New()
	store := mocks.NewStubStore()
	store.LoanRepo.On("GetByID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

	_, err := newTestService(store).GetLoan(context.Background(), loanID)
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}
