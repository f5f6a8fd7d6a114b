package calculator

import (
	"time"

	"github.com/mmynk/giveback/internal/models"
)

// NextPaymentDate returns the next charge date for a recurring donation made
// at from. The second result is false for one-time donations.
//
// Monthly dates are clamped to the end of shorter months, so a pledge made on
// January 31 next charges on the last day of February.
func NextPaymentDate(from time.Time, frequency models.Frequency) (time.Time, bool) {
	switch frequency {
	case models.FrequencyMonthly:
		return addMonthsClamped(from, 1), true
	case models.FrequencyYearly:
		return addMonthsClamped(from, 12), true
	default:
		return time.Time{}, false
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, min, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
