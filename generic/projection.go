/*
projection.go - Run-rate forecasting for an in-progress period

PURPOSE:
  Answers "if the rep keeps the pace observed so far, where will the count
  land at period end?" The pace is measured per workday, not per calendar
  day, so a month that starts on a weekend does not dilute the rate.

KEY INSIGHT:
  Only a CURRENT period is extrapolated. A closed period is final and a
  future period has no observations; both project to the actual count.

FORMULA:
  dailyRate      = actual / workdaysElapsed        (0 when nothing elapsed)
  projectedCount = round(actual + dailyRate * workdaysRemaining)

  workdaysElapsed counts from the period start through today, inclusive.
  workdaysRemaining = totalWorkdays - workdaysElapsed, never negative.

SEE ALSO:
  - time.go: CountWorkdays
  - commission/engine.go: Uses projections to price projected tiers
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// WORKDAY WINDOW - Elapsed/remaining split of a period
// =============================================================================

// WorkdayWindow is the workday split of a period as seen from one day.
type WorkdayWindow struct {
	Status    PeriodStatus `json:"status"`
	Total     int          `json:"total"`
	Elapsed   int          `json:"elapsed"`
	Remaining int          `json:"remaining"`
}

// WindowInput holds what's needed to split a period into elapsed/remaining workdays.
type WindowInput struct {
	Period   Period
	Today    TimePoint
	Week     WorkWeek
	Holidays HolidayCalendar

	// TotalOverride replaces the counted total when the target row carries
	// its own workday count. Nil or non-positive means "count".
	TotalOverride *int
}

// NewWorkdayWindow computes the workday window for a period.
func NewWorkdayWindow(in WindowInput) WorkdayWindow {
	total := in.Period.Workdays(in.Week, in.Holidays)
	if in.TotalOverride != nil && *in.TotalOverride > 0 {
		total = *in.TotalOverride
	}

	status := in.Period.StatusAt(in.Today)
	w := WorkdayWindow{Status: status, Total: total}

	switch status {
	case PeriodFuture:
		w.Remaining = total
	case PeriodClosed:
		w.Elapsed = total
	case PeriodCurrent:
		w.Elapsed = CountWorkdaysWithHolidays(in.Period.Start, in.Today, in.Week, in.Holidays)
		if w.Elapsed > total {
			w.Elapsed = total
		}
		w.Remaining = total - w.Elapsed
	}
	return w
}

// =============================================================================
// PROJECTION
// =============================================================================

// Projection is the forecast of one count.
type Projection struct {
	Actual    int
	DailyRate decimal.Decimal
	Projected int
}

// Project forecasts a count over the window. Non-current windows are not
// extrapolated.
func (w WorkdayWindow) Project(actual int) Projection {
	p := Projection{Actual: actual, DailyRate: decimal.Zero, Projected: actual}
	if w.Status != PeriodCurrent || w.Elapsed == 0 {
		return p
	}

	a := decimal.NewFromInt(int64(actual))
	p.DailyRate = a.Div(decimal.NewFromInt(int64(w.Elapsed)))
	projected := a.Add(a.Mul(decimal.NewFromInt(int64(w.Remaining))).Div(decimal.NewFromInt(int64(w.Elapsed))))
	p.Projected = int(projected.Round(0).IntPart())
	return p
}
