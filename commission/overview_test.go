package commission_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

func TestProgressOf_CapsDisplayPercent(t *testing.T) {
	// GIVEN: 12 of 10 general, 1 of 4 CFD
	sept := at(2025, time.September, 3)
	deals := append(newClients("eq", 11, commission.ClientEQ, sept), newClients("cfd", 1, commission.ClientCFD, sept)...)
	b := compute(t, commission.BreakdownInput{
		Profile:       profile(0, 0),
		Deals:         deals,
		MonthlyTarget: monthlyTarget(2025, time.September, 10, 4),
		Context:       periodCtx(date(2025, time.October, 1), 2025, time.September),
	})

	// WHEN: Extracting the progress view
	p := commission.ProgressOf(b)

	// THEN: Raw percent is 120, display is capped at 100
	assert.True(t, p.Monthly.General.Percent.Equal(decimal.NewFromInt(120)))
	assert.True(t, p.Monthly.General.DisplayPercent.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.Monthly.General.Achieved)
	assert.Equal(t, 0, p.Monthly.General.Missing)

	assert.True(t, p.Monthly.CFD.Percent.Equal(decimal.NewFromInt(25)))
	assert.False(t, p.Monthly.CFD.Achieved)
	assert.Equal(t, 3, p.Monthly.CFD.Missing)

	assertMoney(t, 2000, p.Monthly.Bonus)
	assert.Equal(t, "2025-Q3", p.Quarterly.Key)
	assert.False(t, p.Quarterly.HasTarget)
}

func TestBuildOverview_SumsAndSorts(t *testing.T) {
	// GIVEN: Two reps, one with a bigger payable total
	ctx := periodCtx(date(2025, time.October, 3), 2025, time.September)
	sept := at(2025, time.September, 3)

	low := compute(t, commission.BreakdownInput{
		Profile: profile(6000, 0),
		Deals:   newClients("eq", 1, commission.ClientEQ, sept),
		Context: ctx,
	})

	p2 := profile(7000, 0)
	p2.RepID = "rep-2"
	highDeals := newClients("cfd", 2, commission.ClientCFD, sept)
	for i := range highDeals {
		highDeals[i].RepID = "rep-2"
	}
	high := compute(t, commission.BreakdownInput{
		Profile:       p2,
		Deals:         highDeals,
		MonthlyTarget: &commission.MonthlyTarget{RepID: "rep-2", Year: 2025, Month: 9, TargetAmounts: commission.TargetAmounts{GeneralTargetAmount: 2}},
		Context:       ctx,
	})

	// WHEN: Building the overview
	o := commission.BuildOverview(ctx, generic.ILS, []commission.RepRow{
		{RepID: rep, FullName: "Dana Levi", Breakdown: low},
		{RepID: "rep-2", FullName: "Noa Cohen", Breakdown: high},
	})

	// THEN: Totals add up and the highest payable comes first
	assert.Equal(t, 2, o.Reps)
	assert.Equal(t, 3, o.NewClients)
	assert.Equal(t, 1, o.NewEQClients)
	assert.Equal(t, 2, o.NewCFDClients)
	assert.Equal(t, 1, o.RepsOnTarget)
	assert.True(t, o.DepositTotal.Value.Equal(decimal.NewFromInt(15000)))

	// low: 6000 + 400; high: 7000 + 800 + 2000
	assertMoney(t, 6400+9800, o.PayableTotal)
	assertMoney(t, 400+2800, o.BonusTotal)

	require.Len(t, o.Rows, 2)
	assert.Equal(t, generic.RepID("rep-2"), o.Rows[0].RepID)
}

func TestBuildOverview_Empty(t *testing.T) {
	o := commission.BuildOverview(periodCtx(date(2025, time.October, 3), 2025, time.September), generic.ILS, nil)

	assert.Equal(t, 0, o.Reps)
	assert.NotNil(t, o.Rows)
	assertMoney(t, 0, o.PayableTotal)
}
