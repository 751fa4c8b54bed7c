package rules

import (
	"slices"
	"time"

	"github.com/smregler-server/internal/domain"
)

// WorkdaysBetween counts Monday to Friday dates strictly between a and b. Holidays are
// not taken into account.
func WorkdaysBetween(a, b domain.Date) int {
	count := 0
	for d := a.AddDays(1); d.Before(b); d = d.AddDays(1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// DaysBetween returns the signed number of days from from to to; from == to gives 0.
func DaysBetween(from, to domain.Date) int {
	return from.DaysUntil(to)
}

// StartedWeeksBetween counts the calendar weeks spanned by [from, to], counting a
// started week as a whole one: 1 to 7 days is one week, 8 days is two.
func StartedWeeksBetween(from, to domain.Date) int {
	return DaysBetween(from, to)/7 + 1
}

// InRange reports whether d lies in the closed range [from, to]. An inverted range
// contains nothing.
func InRange(d, from, to domain.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// AddMonths shifts t by a number of calendar months, clamping the day to the end of
// the target month (Mar 31 minus one month is Feb 28 or 29).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	year += floorDiv(total, 12)
	month = time.Month(total-floorDiv(total, 12)*12) + 1
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYears shifts t by whole years, clamping Feb 29 to Feb 28 in common years.
func AddYears(t time.Time, years int) time.Time {
	return AddMonths(t, 12*years)
}

// AddYearsToDate is AddYears for calendar dates.
func AddYearsToDate(d domain.Date, years int) domain.Date {
	return domain.DateOf(AddYears(d.AtStartOfDay(), years))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// SortedFromDates returns the start dates of periods in ascending order.
func SortedFromDates(periods []domain.Period) []domain.Date {
	dates := make([]domain.Date, 0, len(periods))
	for _, p := range periods {
		dates = append(dates, p.From)
	}
	slices.SortStableFunc(dates, domain.Date.Compare)
	return dates
}

// SortedToDates returns the end dates of periods in ascending order.
func SortedToDates(periods []domain.Period) []domain.Date {
	dates := make([]domain.Date, 0, len(periods))
	for _, p := range periods {
		dates = append(dates, p.To)
	}
	slices.SortStableFunc(dates, domain.Date.Compare)
	return dates
}

// Overlapping reports whether two distinct periods of the list intersect: either
// period's start or end date falls within the other's closed range. Periods are
// distinct by position, so two identical declarations overlap.
func Overlapping(periods []domain.Period) bool {
	for i, a := range periods {
		for j, b := range periods {
			if i == j {
				continue
			}
			if InRange(a.From, b.From, b.To) || InRange(a.To, b.From, b.To) {
				return true
			}
		}
	}
	return false
}

// HasGap sorts the periods by start date and reports whether any consecutive pair
// leaves at least one workday uncovered between the end of one and the start of the next.
func HasGap(periods []domain.Period) bool {
	sorted := slices.Clone(periods)
	slices.SortStableFunc(sorted, func(a, b domain.Period) int {
		return a.From.Compare(b.From)
	})
	for i := 1; i < len(sorted); i++ {
		if WorkdaysBetween(sorted[i-1].To, sorted[i].From) > 0 {
			return true
		}
	}
	return false
}
