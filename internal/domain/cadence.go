package domain

import "time"

// Cadence is the recurrence interval of a bill
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
)

// Months returns the number of calendar months in one cadence period
func (c Cadence) Months() int {
	switch c {
	case CadenceMonthly:
		return 1
	case CadenceQuarterly:
		return 3
	case CadenceYearly:
		return 12
	}
	return 0
}

// Valid reports whether c is a known cadence
func (c Cadence) Valid() bool {
	return c.Months() > 0
}

// daysIn returns the number of days in the given month
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves date forward by n calendar months and lands on anchorDay,
// or on the last day of the target month when that month is shorter.
func AddMonths(date time.Time, n int, anchorDay int) time.Time {
	y, m, _ := date.Date()
	total := int(m) - 1 + n
	year := y + total/12
	month := time.Month(total%12 + 1)
	if total < 0 && total%12 != 0 {
		year--
		month = time.Month(total%12 + 13)
	}

	day := anchorDay
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AdvanceDueDate returns the due date one cadence period after due.
// The anchor day keeps month-end bills on the month end: a monthly bill
// anchored on the 31st goes 2024-01-31, 2024-02-29, 2024-03-31.
func AdvanceDueDate(due time.Time, cadence Cadence, anchorDay int) time.Time {
	if anchorDay < 1 {
		anchorDay = due.Day()
	}
	return AddMonths(DateOf(due), cadence.Months(), anchorDay)
}
