package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	LoanStatusDue    = "due"
	LoanStatusRepaid = "repaid"
)

// Loan represents a disbursed loan and its aggregate outstanding balance.
// All amounts are integer minor currency units.
type Loan struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	Amount            int64     `json:"amount" db:"amount"`
	OutstandingAmount int64     `json:"outstanding_amount" db:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code" db:"currency_code"`
	Terms             int       `json:"terms" db:"terms"`
	Status            string    `json:"status" db:"status"`
	ProcessedAt       time.Time `json:"processed_at" db:"processed_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// IsRepaid reports whether the loan has reached its terminal state.
func (l *Loan) IsRepaid() bool {
	return l.Status == LoanStatusRepaid
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	UserID       string `json:"user_id" validate:"required,uuid"`
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3,alpha"`
	Terms        int    `json:"terms" validate:"required,gt=0"`
	ProcessedAt  string `json:"processed_at" validate:"required"`
}

type CreateLoanResponse struct {
	Loan     *Loan                 `json:"loan"`
	Schedule []*ScheduledRepayment `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID            uuid.UUID `json:"loan_id"`
	OutstandingAmount int64     `json:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code"`
	Status            string    `json:"status"`
}
