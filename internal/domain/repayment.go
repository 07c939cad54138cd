package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReceivedRepayment is an immutable payment receipt. Rows are append-only:
// no code path updates or deletes them once written.
type ReceivedRepayment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LoanID       uuid.UUID `json:"loan_id" db:"loan_id"`
	Amount       int64     `json:"amount" db:"amount"`
	CurrencyCode string    `json:"currency_code" db:"currency_code"`
	ReceivedAt   time.Time `json:"received_at" db:"received_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type RepayLoanRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3,alpha"`
	ReceivedAt   string `json:"received_at" validate:"required"`
}

type RepayLoanResponse struct {
	Receipt *ReceivedRepayment `json:"receipt"`
	Loan    *Loan              `json:"loan"`
}
