package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for all dates (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// AddMonths adds n calendar months to a date, clamping the day-of-month to the
// last valid day of the target month. Jan 31 + 1 month is Feb 28 (or Feb 29 in
// a leap year), not Mar 3 as time.AddDate would produce.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(firstOfTarget); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}

func lastDayOfMonth(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// ParseDate parses an ISO calendar date string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s: %w", s, DateLayout, err)
	}
	return t, nil
}

// SplitAmount divides an amount in minor units into n installments. Each
// installment gets the floor share; the remainder goes to the last one so the
// parts always sum to the whole.
func SplitAmount(amount int64, n int) []int64 {
	parts := make([]int64, n)
	share := amount / int64(n)
	for i := range parts {
		parts[i] = share
	}
	parts[n-1] += amount - share*int64(n)
	return parts
}

// IsValidCurrencyCode checks for a 3-letter uppercase ISO 4217 code.
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
