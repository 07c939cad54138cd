package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hartantodhi/loan-ledger/internal/domain"
)

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, amount, outstanding_amount, currency_code, terms, status, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.Amount,
		loan.OutstandingAmount,
		loan.CurrencyCode,
		loan.Terms,
		loan.Status,
		loan.ProcessedAt,
		now,
		now,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, user_id, amount, outstanding_amount, currency_code, terms, status, processed_at, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, user_id, amount, outstanding_amount, currency_code, terms, status, processed_at, created_at, updated_at
		FROM loans
		WHERE id = $1
		FOR UPDATE
	`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateBalance(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error {
	query := `
		UPDATE loans
		SET outstanding_amount = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, outstandingAmount, status, time.Now())
	return err
}

func (r *loanRepository) CreateSchedule(ctx context.Context, schedules []*domain.ScheduledRepayment) error {
	query := `
		INSERT INTO scheduled_repayments (id, loan_id, amount, outstanding_amount, currency_code, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, schedule := range schedules {
		_, err := r.db.ExecContext(ctx, query,
			schedule.ID,
			schedule.LoanID,
			schedule.Amount,
			schedule.OutstandingAmount,
			schedule.CurrencyCode,
			schedule.DueDate,
			schedule.Status,
			time.Now(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledRepayment, error) {
	query := `
		SELECT id, loan_id, amount, outstanding_amount, currency_code, due_date, status, created_at
		FROM scheduled_repayments
		WHERE loan_id = $1
		ORDER BY due_date
	`

	var schedules []*domain.ScheduledRepayment
	if err := sqlx.SelectContext(ctx, r.db, &schedules, query, loanID); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) UpdateScheduleAllocation(ctx context.Context, id uuid.UUID, outstandingAmount int64, status string) error {
	query := `
		UPDATE scheduled_repayments
		SET outstanding_amount = $2, status = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, outstandingAmount, status)
	return err
}

func (r *loanRepository) ListUnpaid(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT id, user_id, amount, outstanding_amount, currency_code, terms, status, processed_at, created_at, updated_at
		FROM loans
		WHERE status != $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, domain.LoanStatusRepaid); err != nil {
		return nil, err
	}

	return loans, nil
}
