package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrCurrencyMismatch  = errors.New("repayment currency does not match loan currency")
	ErrOverpayment       = errors.New("repayment amount exceeds outstanding balance")
	ErrLoanAlreadyRepaid = errors.New("loan is already fully repaid")
	ErrPersistence       = errors.New("persistence failure")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeCurrencyMismatch  = "CURRENCY_MISMATCH"
	ErrCodeOverpayment       = "OVERPAYMENT"
	ErrCodeLoanAlreadyRepaid = "LOAN_ALREADY_REPAID"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidArgument(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidArgument, message, ErrInvalidArgument)
}

func WrapCurrencyMismatch(loanCurrency, paymentCurrency string) *BusinessError {
	return NewBusinessError(
		ErrCodeCurrencyMismatch,
		fmt.Sprintf("loan is denominated in %s, repayment sent in %s", loanCurrency, paymentCurrency),
		ErrCurrencyMismatch,
	)
}

func WrapOverpayment(outstanding, amount int64) *BusinessError {
	return NewBusinessError(
		ErrCodeOverpayment,
		fmt.Sprintf("repayment of %d exceeds outstanding balance of %d", amount, outstanding),
		ErrOverpayment,
	)
}

func WrapLoanAlreadyRepaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyRepaid,
		fmt.Sprintf("loan %s is already fully repaid", loanID),
		ErrLoanAlreadyRepaid,
	)
}

func WrapPersistenceError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistence,
		"storage operation failed",
		fmt.Errorf("%w: %w", ErrPersistence, err),
	)
}
