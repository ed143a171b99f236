package generic

import (
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// TimePoint is a calendar day. The engine never works below day granularity:
// deals, targets and workday windows are all day-bounded.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day t falls on in loc. A nil loc means UTC.
func DayOf(t time.Time, loc *time.Location) TimePoint {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return NewTimePoint(local.Year(), local.Month(), local.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return TimePoint{}, err
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day()), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.normalize().Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.normalize().Format("2006-01-02")
}

// =============================================================================
// WORK WEEK - Which weekdays are rest days
// =============================================================================

// WorkWeek names the two weekly rest days. The default matches the Israeli
// work week (Friday, Saturday); any pair can be configured.
type WorkWeek struct {
	RestDays [2]time.Weekday
}

var (
	// WorkWeekFriSat is the Sunday-Thursday work week.
	WorkWeekFriSat = WorkWeek{RestDays: [2]time.Weekday{time.Friday, time.Saturday}}

	// WorkWeekSatSun is the Monday-Friday work week.
	WorkWeekSatSun = WorkWeek{RestDays: [2]time.Weekday{time.Saturday, time.Sunday}}
)

// NewWorkWeek builds a work week from two rest days.
func NewWorkWeek(first, second time.Weekday) WorkWeek {
	return WorkWeek{RestDays: [2]time.Weekday{first, second}}
}

func (w WorkWeek) IsRestDay(tp TimePoint) bool {
	wd := tp.Weekday()
	return wd == w.RestDays[0] || wd == w.RestDays[1]
}

func (w WorkWeek) IsWorkday(tp TimePoint) bool { return !w.IsRestDay(tp) }

// ParseWeekday accepts English weekday names ("friday", "Fri").
func ParseWeekday(s string) (time.Weekday, bool) {
	if len(s) < 3 {
		return 0, false
	}
	prefix := strings.ToLower(s[:3])
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()[:3]) == prefix {
			return d, true
		}
	}
	return 0, false
}

// =============================================================================
// HOLIDAY CALENDAR - Extra non-working dates
// =============================================================================

// Holiday is a company holiday that is not counted as a workday.
type Holiday struct {
	ID        string
	Date      TimePoint
	Name      string
	Recurring bool // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(date TimePoint) bool
}

// NoHolidays is the calendar used when holidays are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(TimePoint) bool { return false }

// HolidayList is a fixed, in-memory holiday calendar.
type HolidayList []Holiday

func (hl HolidayList) IsHoliday(date TimePoint) bool {
	for _, h := range hl {
		if h.Recurring {
			if h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
				return true
			}
			continue
		}
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

// MergeHolidays extends base with extra. List-backed (or nil/empty) calendars
// merge into one HolidayList so the result stays serializable.
func MergeHolidays(base HolidayCalendar, extra HolidayList) HolidayCalendar {
	switch b := base.(type) {
	case nil, NoHolidays:
		if len(extra) == 0 {
			return NoHolidays{}
		}
		return append(HolidayList{}, extra...)
	case HolidayList:
		merged := make(HolidayList, 0, len(b)+len(extra))
		return append(append(merged, b...), extra...)
	default:
		if len(extra) == 0 {
			return base
		}
		return calendars{base, extra}
	}
}

type calendars []HolidayCalendar

func (cs calendars) IsHoliday(date TimePoint) bool {
	for _, c := range cs {
		if c.IsHoliday(date) {
			return true
		}
	}
	return false
}

// =============================================================================
// WORKDAY COUNTER
// =============================================================================

// CountWorkdays counts the days in [start, end], both inclusive, that are not
// rest days. An end before start yields 0.
func CountWorkdays(start, end TimePoint, week WorkWeek) int {
	return CountWorkdaysWithHolidays(start, end, week, nil)
}

// CountWorkdaysWithHolidays is CountWorkdays that also skips calendar holidays.
func CountWorkdaysWithHolidays(start, end TimePoint, week WorkWeek, calendar HolidayCalendar) int {
	count := 0
	for current := start; current.BeforeOrEqual(end); current = current.AddDays(1) {
		if week.IsRestDay(current) {
			continue
		}
		if calendar != nil && calendar.IsHoliday(current) {
			continue
		}
		count++
	}
	return count
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t}
}
