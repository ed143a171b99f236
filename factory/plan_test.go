package factory_test

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
)

func presetJSON(t *testing.T, id string) factory.PlanJSON {
	t.Helper()
	raw, ok := commission.PresetJSON(id)
	require.True(t, ok)
	var pj factory.PlanJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &pj))
	return pj
}

func eqDeal(src commission.TrafficSource, deposit int64) commission.Deal {
	return commission.Deal{
		ClientType:     commission.ClientEQ,
		TrafficSource:  src,
		InitialDeposit: decimal.NewFromInt(deposit),
		IsNewClient:    true,
		CreatedAt:      time.Date(2025, time.September, 2, 10, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// PRESETS
// =============================================================================

func TestParsePlan_Presets(t *testing.T) {
	f := factory.NewPlanFactory()

	tests := []struct {
		id      string
		version int
		aff12k  int64
	}{
		{commission.PlanIDTiered2025Affiliate, 3, 900},
		{commission.PlanIDTiered2025, 2, 1200},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			raw, ok := commission.PresetJSON(tt.id)
			require.True(t, ok)

			plan, err := f.ParsePlan(raw)
			require.NoError(t, err)

			assert.Equal(t, tt.id, plan.ID)
			assert.Equal(t, tt.version, plan.Version)
			assert.Equal(t, generic.WorkWeekFriSat, plan.WorkWeek)

			bonus := commission.NewEngine(*plan).DealBonus(eqDeal(commission.SourceAFF, 12000))
			assert.True(t, decimal.NewFromInt(tt.aff12k).Equal(bonus.Value), "AFF 12000 pays %s", bonus)
		})
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	// GIVEN: The canonical plan with a holiday and a time zone
	f := factory.NewPlanFactory()
	pj := presetJSON(t, commission.PlanIDTiered2025Affiliate)
	pj.Holidays = []factory.HolidayJSON{{Date: "2025-09-23", Name: "Rosh Hashana"}}
	pj.TimeZone = "Asia/Jerusalem"

	plan, err := f.FromJSON(pj)
	require.NoError(t, err)

	// WHEN: Converting back and parsing again
	back, err := f.ToJSON(plan)
	require.NoError(t, err)
	again, err := f.FromJSON(back)
	require.NoError(t, err)

	// THEN: Nothing is lost
	assert.Equal(t, pj.ID, back.ID)
	assert.Equal(t, pj.Version, back.Version)
	assert.Equal(t, pj.DealRules.Type, back.DealRules.Type)
	assert.Equal(t, "2025-09-30", back.Monthly.Accelerator.ValidUntil)
	assert.Equal(t, "2025-07-01", back.Quarterly.StartsOn)
	assert.Equal(t, []string{"friday", "saturday"}, back.RestDays)
	assert.Equal(t, "Asia/Jerusalem", back.TimeZone)
	require.Len(t, back.Holidays, 1)
	assert.True(t, again.Holidays.IsHoliday(generic.NewTimePoint(2025, time.September, 23)))

	for _, d := range []commission.Deal{
		eqDeal(commission.SourceAFF, 9999),
		eqDeal(commission.SourceAFF, 10000),
		eqDeal(commission.SourceORG, 12000),
		eqDeal(commission.SourceRFF, 2000),
	} {
		want := commission.NewEngine(*plan).DealBonus(d)
		got := commission.NewEngine(*again).DealBonus(d)
		assert.True(t, want.Equal(got), "%s %s: %s != %s", d.TrafficSource, d.InitialDeposit, want, got)
	}
}

// =============================================================================
// REJECTIONS
// =============================================================================

func TestFromJSON_Rejects(t *testing.T) {
	f := factory.NewPlanFactory()

	tests := []struct {
		name   string
		mutate func(*factory.PlanJSON)
		want   error
	}{
		{
			name:   "missing id",
			mutate: func(pj *factory.PlanJSON) { pj.ID = " " },
			want:   generic.ErrInvalidInput,
		},
		{
			name:   "unknown rule set",
			mutate: func(pj *factory.PlanJSON) { pj.DealRules.Type = "flat-2024" },
			want:   generic.ErrUnknownRuleSet,
		},
		{
			name: "unknown traffic source",
			mutate: func(pj *factory.PlanJSON) {
				pj.DealRules.SourceBase["SEO"] = decimal.NewFromInt(300)
			},
			want: generic.ErrInvalidInput,
		},
		{
			name: "ladder pays less at a higher tier",
			mutate: func(pj *factory.PlanJSON) {
				pj.Monthly.General = []factory.TierJSON{
					{MinPercent: 100, Payout: decimal.NewFromInt(500)},
					{MinPercent: 90, Payout: decimal.NewFromInt(1000)},
				}
			},
			want: generic.ErrInvalidInput,
		},
		{
			name:   "three rest days",
			mutate: func(pj *factory.PlanJSON) { pj.RestDays = []string{"friday", "saturday", "sunday"} },
			want:   generic.ErrInvalidInput,
		},
		{
			name:   "unknown rest day",
			mutate: func(pj *factory.PlanJSON) { pj.RestDays = []string{"friday", "caturday"} },
			want:   generic.ErrInvalidInput,
		},
		{
			name:   "unknown time zone",
			mutate: func(pj *factory.PlanJSON) { pj.TimeZone = "Mars/Olympus" },
			want:   generic.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pj := presetJSON(t, commission.PlanIDTiered2025Affiliate)
			tt.mutate(&pj)

			_, err := f.FromJSON(pj)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParsePlan_MalformedJSON(t *testing.T) {
	_, err := factory.NewPlanFactory().ParsePlan(`{"id": `)
	assert.Error(t, err)
}

func TestFromJSON_CustomWorkWeek(t *testing.T) {
	pj := presetJSON(t, commission.PlanIDTiered2025)
	pj.RestDays = []string{"Sat", "Sun"}

	plan, err := factory.NewPlanFactory().FromJSON(pj)

	require.NoError(t, err)
	assert.Equal(t, generic.WorkWeekSatSun, plan.WorkWeek)
}
