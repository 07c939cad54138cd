package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScheduleStatusDue     = "due"
	ScheduleStatusPartial = "partial"
	ScheduleStatusRepaid  = "repaid"
)

// ScheduledRepayment is one monthly installment obligation. Exactly Terms
// rows exist per loan, due dates one calendar month apart starting one month
// after the loan's processed_at date.
type ScheduledRepayment struct {
	ID                uuid.UUID `json:"id" db:"id"`
	LoanID            uuid.UUID `json:"loan_id" db:"loan_id"`
	Amount            int64     `json:"amount" db:"amount"`
	OutstandingAmount int64     `json:"outstanding_amount" db:"outstanding_amount"`
	CurrencyCode      string    `json:"currency_code" db:"currency_code"`
	DueDate           time.Time `json:"due_date" db:"due_date"`
	Status            string    `json:"status" db:"status"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

type ScheduleResponse struct {
	LoanID   uuid.UUID             `json:"loan_id"`
	Schedule []*ScheduledRepayment `json:"schedule"`
}
