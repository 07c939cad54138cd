package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessError_Unwrap(t *testing.T) {
	err := WrapOverpayment(6000, 9000)

	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Equal(t, ErrCodeOverpayment, err.Code)
	assert.Contains(t, err.Error(), "9000")
	assert.Contains(t, err.Error(), "6000")
}

func TestWrapPersistenceError_KeepsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := WrapPersistenceError(cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodePersistence, err.Code)
}

func TestBusinessError_AsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", WrapLoanAlreadyRepaid("abc"))

	var businessErr *BusinessError
	assert.True(t, errors.As(wrapped, &businessErr))
	assert.Equal(t, ErrCodeLoanAlreadyRepaid, businessErr.Code)
	assert.ErrorIs(t, wrapped, ErrLoanAlreadyRepaid)
}
