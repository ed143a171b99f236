package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - A closed range of calendar days
// =============================================================================

// Period is the day range [Start, End], both inclusive.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Workdays counts the workdays in the whole period.
func (p Period) Workdays(week WorkWeek, calendar HolidayCalendar) int {
	return CountWorkdaysWithHolidays(p.Start, p.End, week, calendar)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodStatus says where a period sits relative to a reference day.
type PeriodStatus string

const (
	PeriodFuture  PeriodStatus = "future"  // today is before the first day
	PeriodCurrent PeriodStatus = "current" // today falls inside the period
	PeriodClosed  PeriodStatus = "closed"  // today is after the last day
)

// StatusAt classifies the period relative to today.
func (p Period) StatusAt(today TimePoint) PeriodStatus {
	switch {
	case today.Before(p.Start):
		return PeriodFuture
	case today.After(p.End):
		return PeriodClosed
	default:
		return PeriodCurrent
	}
}

// =============================================================================
// PERIOD KEYS - Month and fiscal quarter
// =============================================================================
// All month→quarter derivation lives here so every caller agrees on
// period boundaries.

// PeriodKind distinguishes monthly from quarterly keys.
type PeriodKind string

const (
	KindMonth   PeriodKind = "month"
	KindQuarter PeriodKind = "quarter"
)

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// QuarterKey identifies a fiscal quarter (Q1 = Jan-Mar).
type QuarterKey struct {
	Year    int
	Quarter int
}

// NewMonthKey validates and builds a month key.
func NewMonthKey(year, month int) (MonthKey, error) {
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: month %d out of range 1-12", ErrInvalidPeriod, month)
	}
	if year < 1 {
		return MonthKey{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// NewQuarterKey validates and builds a quarter key.
func NewQuarterKey(year, quarter int) (QuarterKey, error) {
	if quarter < 1 || quarter > 4 {
		return QuarterKey{}, fmt.Errorf("%w: quarter %d out of range 1-4", ErrInvalidPeriod, quarter)
	}
	if year < 1 {
		return QuarterKey{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	return QuarterKey{Year: year, Quarter: quarter}, nil
}

// QuarterOf returns ceil(month/3).
func QuarterOf(month time.Month) int {
	return (int(month) + 2) / 3
}

// MonthOf returns the month key a day belongs to.
func MonthOf(tp TimePoint) MonthKey {
	return MonthKey{Year: tp.Year(), Month: tp.Month()}
}

// Quarter returns the quarter the month belongs to.
func (k MonthKey) Quarter() QuarterKey {
	return QuarterKey{Year: k.Year, Quarter: QuarterOf(k.Month)}
}

func (k MonthKey) Period() Period {
	return Period{Start: StartOfMonth(k.Year, k.Month), End: EndOfMonth(k.Year, k.Month)}
}

func (k MonthKey) Next() MonthKey {
	return MonthOf(StartOfMonth(k.Year, k.Month).AddMonths(1))
}

func (k MonthKey) Prev() MonthKey {
	return MonthOf(StartOfMonth(k.Year, k.Month).AddMonths(-1))
}

func (k MonthKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }

// FirstMonth returns the first month of the quarter.
func (k QuarterKey) FirstMonth() MonthKey {
	return MonthKey{Year: k.Year, Month: time.Month((k.Quarter-1)*3 + 1)}
}

// Months returns the three months of the quarter in order.
func (k QuarterKey) Months() []MonthKey {
	first := k.FirstMonth()
	return []MonthKey{first, first.Next(), first.Next().Next()}
}

func (k QuarterKey) Period() Period {
	first := k.FirstMonth()
	last := MonthKey{Year: k.Year, Month: first.Month + 2}
	return Period{Start: first.Period().Start, End: last.Period().End}
}

func (k QuarterKey) String() string { return fmt.Sprintf("%04d-Q%d", k.Year, k.Quarter) }
