package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hartantodhi/loan-ledger/internal/domain"
)

type repaymentRepository struct {
	db sqlx.ExtContext
}

func NewRepaymentRepository(db sqlx.ExtContext) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Create(ctx context.Context, receipt *domain.ReceivedRepayment) error {
	query := `
		INSERT INTO received_repayments (id, loan_id, amount, currency_code, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		receipt.ID,
		receipt.LoanID,
		receipt.Amount,
		receipt.CurrencyCode,
		receipt.ReceivedAt,
		time.Now(),
	)

	return err
}

func (r *repaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ReceivedRepayment, error) {
	query := `
		SELECT id, loan_id, amount, currency_code, received_at, created_at
		FROM received_repayments
		WHERE loan_id = $1
		ORDER BY received_at DESC, created_at DESC
	`

	var receipts []*domain.ReceivedRepayment
	if err := sqlx.SelectContext(ctx, r.db, &receipts, query, loanID); err != nil {
		return nil, err
	}

	return receipts, nil
}

func (r *repaymentRepository) GetTotalReceived(ctx context.Context, loanID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM received_repayments
		WHERE loan_id = $1
	`

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, query, loanID); err != nil {
		return 0, err
	}

	return total, nil
}
