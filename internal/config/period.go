package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned when year or month is outside calendar range.
var ErrInvalidPeriod = errors.New("invalid period")

// ValidatePeriod checks that year is in [1, 9999] and month in [1, 12].
func ValidatePeriod(year, month int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d outside 1..9999", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d outside 1..12", ErrInvalidPeriod, month)
	}
	return nil
}

// PreviousMonth returns the period a scheduled run on runDate scores:
// a run in June scores May, a run in January scores December of the prior year.
func PreviousMonth(runDate time.Time) (year, month int) {
	first := time.Date(runDate.Year(), runDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}
