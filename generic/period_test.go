package generic_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/generic"
)

func ils(v int64) generic.Money { return generic.NewMoneyFromInt(v, generic.ILS) }

// =============================================================================
// PERIOD KEYS
// =============================================================================

func TestQuarterOf(t *testing.T) {
	expected := map[time.Month]int{
		time.January: 1, time.February: 1, time.March: 1,
		time.April: 2, time.May: 2, time.June: 2,
		time.July: 3, time.August: 3, time.September: 3,
		time.October: 4, time.November: 4, time.December: 4,
	}
	for m, q := range expected {
		assert.Equal(t, q, generic.QuarterOf(m), m.String())
	}
}

func TestMonthKey_Periods(t *testing.T) {
	feb, err := generic.NewMonthKey(2024, 2)
	require.NoError(t, err)

	assert.Equal(t, "2024-02", feb.String())
	assert.True(t, feb.Period().End.Equal(day(2024, time.February, 29)), "leap year")
	assert.Equal(t, "2024-Q1", feb.Quarter().String())
	assert.Equal(t, generic.MonthKey{Year: 2024, Month: time.March}, feb.Next())

	jan := generic.MonthKey{Year: 2025, Month: time.January}
	assert.Equal(t, generic.MonthKey{Year: 2024, Month: time.December}, jan.Prev())
}

func TestQuarterKey_Periods(t *testing.T) {
	q3 := generic.QuarterKey{Year: 2025, Quarter: 3}

	p := q3.Period()
	assert.True(t, p.Start.Equal(day(2025, time.July, 1)))
	assert.True(t, p.End.Equal(day(2025, time.September, 30)))
	assert.Equal(t, []generic.MonthKey{
		{Year: 2025, Month: time.July},
		{Year: 2025, Month: time.August},
		{Year: 2025, Month: time.September},
	}, q3.Months())
}

func TestNewKeys_RejectOutOfRange(t *testing.T) {
	_, err := generic.NewMonthKey(2025, 13)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	_, err = generic.NewQuarterKey(2025, 0)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_StatusAt(t *testing.T) {
	sept := generic.MonthKey{Year: 2025, Month: time.September}.Period()

	assert.Equal(t, generic.PeriodFuture, sept.StatusAt(day(2025, time.August, 31)))
	assert.Equal(t, generic.PeriodCurrent, sept.StatusAt(day(2025, time.September, 1)))
	assert.Equal(t, generic.PeriodCurrent, sept.StatusAt(day(2025, time.September, 30)))
	assert.Equal(t, generic.PeriodClosed, sept.StatusAt(day(2025, time.October, 1)))
}

// =============================================================================
// TIERS
// =============================================================================

func TestRatio_AtLeastIsExact(t *testing.T) {
	assert.True(t, generic.NewRatio(9, 10).AtLeast(90))
	assert.False(t, generic.NewRatio(8, 9).AtLeast(90))
	assert.True(t, generic.NewRatio(7, 10).AtLeast(70))
	assert.False(t, generic.NewRatio(5, 0).AtLeast(0), "undefined ratio never reaches a tier")
}

func TestRatio_DisplayPercentCapped(t *testing.T) {
	r := generic.NewRatio(15, 10)
	assert.True(t, r.Percent().Equal(decimal.NewFromInt(150)))
	assert.True(t, r.DisplayPercent().Equal(decimal.NewFromInt(100)))
	assert.True(t, generic.NewRatio(3, 0).Percent().IsZero())
}

func TestTierLadder_HighestTierWins(t *testing.T) {
	// Tiers given out of order; the highest reached one pays, not the sum
	ladder := generic.TierLadder{Tiers: []generic.Tier{
		{MinPercent: 90, Payout: ils(1000)},
		{MinPercent: 100, Payout: ils(2000)},
	}}

	pay, tier := ladder.Payout(generic.NewRatio(10, 10), generic.ILS)
	assert.True(t, pay.Equal(ils(2000)))
	assert.Equal(t, 100, tier)

	pay, tier = ladder.Payout(generic.NewRatio(9, 10), generic.ILS)
	assert.True(t, pay.Equal(ils(1000)))
	assert.Equal(t, 90, tier)

	pay, tier = ladder.Payout(generic.NewRatio(8, 10), generic.ILS)
	assert.True(t, pay.IsZero())
	assert.Equal(t, -1, tier)

	assert.True(t, ladder.Monotonic())
}

func TestTierLadder_NonMonotonicDetected(t *testing.T) {
	ladder := generic.TierLadder{Tiers: []generic.Tier{
		{MinPercent: 100, Payout: ils(500)},
		{MinPercent: 90, Payout: ils(1000)},
	}}
	assert.False(t, ladder.Monotonic())
}

// =============================================================================
// PROJECTION
// =============================================================================

func septemberWindow(today generic.TimePoint) generic.WorkdayWindow {
	return generic.NewWorkdayWindow(generic.WindowInput{
		Period: generic.MonthKey{Year: 2025, Month: time.September}.Period(),
		Today:  today,
		Week:   generic.WorkWeekFriSat,
	})
}

func TestWorkdayWindow_ByStatus(t *testing.T) {
	future := septemberWindow(day(2025, time.August, 20))
	assert.Equal(t, generic.WorkdayWindow{Status: generic.PeriodFuture, Total: 22, Elapsed: 0, Remaining: 22}, future)

	current := septemberWindow(day(2025, time.September, 10))
	assert.Equal(t, generic.WorkdayWindow{Status: generic.PeriodCurrent, Total: 22, Elapsed: 8, Remaining: 14}, current)

	closed := septemberWindow(day(2025, time.October, 2))
	assert.Equal(t, generic.WorkdayWindow{Status: generic.PeriodClosed, Total: 22, Elapsed: 22, Remaining: 0}, closed)
}

func TestWorkdayWindow_OverrideCapsElapsed(t *testing.T) {
	// GIVEN: The target says the month has 5 workdays; 8 have already elapsed
	// THEN: Elapsed is capped at the total and nothing remains
	override := 5
	w := generic.NewWorkdayWindow(generic.WindowInput{
		Period:        generic.MonthKey{Year: 2025, Month: time.September}.Period(),
		Today:         day(2025, time.September, 10),
		Week:          generic.WorkWeekFriSat,
		TotalOverride: &override,
	})

	assert.Equal(t, 5, w.Total)
	assert.Equal(t, 5, w.Elapsed)
	assert.Equal(t, 0, w.Remaining)
}

func TestProject_CurrentPeriod(t *testing.T) {
	p := septemberWindow(day(2025, time.September, 10)).Project(4)

	assert.Equal(t, 11, p.Projected)
	assert.True(t, p.DailyRate.Equal(decimal.RequireFromString("0.5")))
}

func TestProject_RoundsHalfAwayFromZero(t *testing.T) {
	// 3 over 2 elapsed, 1 remaining: 3 + 1.5 = 4.5 -> 5
	w := generic.WorkdayWindow{Status: generic.PeriodCurrent, Total: 3, Elapsed: 2, Remaining: 1}
	assert.Equal(t, 5, w.Project(3).Projected)
}

func TestProject_NonCurrentNotExtrapolated(t *testing.T) {
	for _, today := range []generic.TimePoint{day(2025, time.August, 20), day(2025, time.October, 2)} {
		p := septemberWindow(today).Project(7)
		assert.Equal(t, 7, p.Projected)
		assert.True(t, p.DailyRate.IsZero())
	}
}

// =============================================================================
// MONEY AND CACHE KEYS
// =============================================================================

func TestMoney_ClampZero(t *testing.T) {
	assert.True(t, ils(200).Sub(ils(1000)).ClampZero().IsZero())
	assert.True(t, ils(1200).Sub(ils(1000)).ClampZero().Equal(ils(200)))
	assert.True(t, generic.SumMoney(generic.ILS).IsZero())
}

func TestCacheKey_Deterministic(t *testing.T) {
	k1, err := generic.CacheKey("breakdown", "plan", 1, map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	k2, err := generic.CacheKey("breakdown", "plan", 1, map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	k3, err := generic.CacheKey("breakdown", "plan", 2, map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
