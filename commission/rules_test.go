package commission_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const rep = generic.RepID("rep-1")

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

// at returns noon UTC on the given day.
func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func ils(v int64) generic.Money {
	return generic.NewMoneyFromInt(v, generic.ILS)
}

func newDeal(id string, ct commission.ClientType, src commission.TrafficSource, deposit string, created time.Time) commission.Deal {
	return commission.Deal{
		ID:             generic.DealID(id),
		RepID:          rep,
		ClientType:     ct,
		TrafficSource:  src,
		InitialDeposit: decimal.RequireFromString(deposit),
		IsNewClient:    true,
		CreatedAt:      created,
	}
}

// assertMoney compares through String so that equal decimals with a
// different internal exponent still match.
func assertMoney(t *testing.T, want int64, got generic.Money, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, ils(want).String(), got.String(), msgAndArgs...)
}

// =============================================================================
// DEAL BONUS SCENARIOS
// =============================================================================

func TestDealBonus_Scenarios(t *testing.T) {
	sept := at(2025, time.September, 3)

	tests := []struct {
		name     string
		deal     commission.Deal
		expected int64
	}{
		{"A: EQ 5000 RFF pays the channel tier", newDeal("a", commission.ClientEQ, commission.SourceRFF, "5000", sept), 700},
		{"B: EQ 12000 ORG pays large base plus large EQ", newDeal("b", commission.ClientEQ, commission.SourceORG, "12000", sept), 1200},
		{"C: EQ 2000 AFF is gated", newDeal("c", commission.ClientEQ, commission.SourceAFF, "2000", sept), 0},
		{"D: CFD 1000 PPC has no minimum", newDeal("d", commission.ClientCFD, commission.SourcePPC, "1000", sept), 700},
	}

	for _, rules := range []commission.RuleSet{commission.NewTiered2025Rules(), commission.NewTiered2025AffiliateRules()} {
		for _, tt := range tests {
			t.Run(rules.Name()+"/"+tt.name, func(t *testing.T) {
				assertMoney(t, tt.expected, rules.DealBonus(tt.deal))
			})
		}
	}
}

func TestDealBonus_MinimumGateBoundary(t *testing.T) {
	// GIVEN: EQ deals just under and exactly at the 2950 minimum
	// THEN: Under pays nothing, at the minimum pays the ORG tier
	rules := commission.NewTiered2025AffiliateRules()
	sept := at(2025, time.September, 3)

	assertMoney(t, 0, rules.DealBonus(newDeal("under", commission.ClientEQ, commission.SourceORG, "2949.99", sept)))
	assertMoney(t, 400, rules.DealBonus(newDeal("at", commission.ClientEQ, commission.SourceORG, "2950", sept)))
}

func TestDealBonus_GateNeverAppliesToCFD(t *testing.T) {
	rules := commission.NewTiered2025AffiliateRules()
	sept := at(2025, time.September, 3)

	for _, deposit := range []string{"0", "1", "2949.99", "2950", "9999.99"} {
		for _, src := range commission.TrafficSources {
			d := newDeal("cfd", commission.ClientCFD, src, deposit, sept)
			assert.True(t, rules.DealBonus(d).IsPositive(), "CFD %s deposit %s should earn a bonus", src, deposit)
		}
	}
}

func TestDealBonus_LargeDepositBaseIgnoresChannel(t *testing.T) {
	// GIVEN: CFD deals at or above 10000 from every channel
	// THEN: Base is 700 and there is no large EQ bonus
	rules := commission.NewTiered2025AffiliateRules()
	sept := at(2025, time.September, 3)

	for _, src := range commission.TrafficSources {
		assertMoney(t, 700, rules.DealBonus(newDeal("cfd", commission.ClientCFD, src, "10000", sept)), src)
	}
}

func TestDealBonus_AffiliateOverride(t *testing.T) {
	// GIVEN: AFF + EQ + deposit >= 10000
	// WHEN: Priced by the latest and the previous rule versions
	// THEN: Latest pays a flat 900, previous pays 700 + 500
	sept := at(2025, time.September, 3)
	d := newDeal("aff", commission.ClientEQ, commission.SourceAFF, "10000", sept)

	assertMoney(t, 900, commission.NewTiered2025AffiliateRules().DealBonus(d))
	assertMoney(t, 1200, commission.NewTiered2025Rules().DealBonus(d))

	// Non-AFF large EQ deals are unaffected by the override
	for _, src := range []commission.TrafficSource{commission.SourceRFF, commission.SourcePPC, commission.SourceORG} {
		large := newDeal("eq", commission.ClientEQ, src, "25000", sept)
		assertMoney(t, 1200, commission.NewTiered2025AffiliateRules().DealBonus(large), src)
	}

	// AFF under the threshold keeps the channel tier
	small := newDeal("aff-small", commission.ClientEQ, commission.SourceAFF, "9999", sept)
	assertMoney(t, 400, commission.NewTiered2025AffiliateRules().DealBonus(small))
}

func TestDealBonus_DoesNotReadNewClientFlag(t *testing.T) {
	// Filtering new clients is the aggregator's job
	rules := commission.NewTiered2025AffiliateRules()
	d := newDeal("old", commission.ClientEQ, commission.SourceRFF, "5000", at(2025, time.September, 3))
	d.IsNewClient = false

	assertMoney(t, 700, rules.DealBonus(d))
}
