/*
rules.go - Deal Bonus Calculator

PURPOSE:
  Prices a single deal. The rule set is a strategy so that historical rule
  versions can be reinstated for back-dated payroll without touching the
  aggregator.

TIERED RULES (evaluated in order):
  1. Minimum deposit gate: EQ deals under $2,950 earn nothing.
     CFD deals have no minimum.
  2. Base tier:
       deposit >= $10,000          -> 700
       RFF or PPC                  -> 700
       ORG or AFF                  -> 400
  3. Large EQ bonus: EQ with deposit >= $10,000 adds 500.

AFFILIATE OVERRIDE (latest revision):
  AFF + EQ + deposit >= $10,000 pays a flat 900 and skips the large EQ bonus.
  TieredRules.AffiliateLargeEQBase switches this on.

  Deposits are compared in USD; payouts are fixed ILS amounts.

SEE ALSO:
  - plans.go: Which rule version each plan uses
  - factory/plan.go: Building TieredRules from JSON
*/
package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// RuleSet prices one deal. Implementations must be pure and total over
// validated deals.
type RuleSet interface {
	// Name identifies the rule version (e.g. "tiered-2025-affiliate").
	Name() string

	// DealBonus returns the deal's bonus in the payout currency.
	DealBonus(d Deal) generic.Money
}

// =============================================================================
// TIERED RULES
// =============================================================================

// TieredRules is the tiered deposit/channel rule family.
type TieredRules struct {
	Version  string
	Currency generic.Currency

	// EQMinimumDeposit gates EQ deals (USD). CFD deals are never gated.
	EQMinimumDeposit decimal.Decimal

	// LargeDepositThreshold (USD) switches to LargeDepositBase regardless of channel.
	LargeDepositThreshold decimal.Decimal
	LargeDepositBase      decimal.Decimal

	// SourceBase is the base bonus for deposits under the threshold.
	SourceBase map[TrafficSource]decimal.Decimal

	// LargeEQBonus is added for EQ deals at or above the threshold.
	LargeEQBonus decimal.Decimal

	// AffiliateLargeEQBase, when set, replaces base + large EQ bonus for
	// AFF EQ deals at or above the threshold.
	AffiliateLargeEQBase *decimal.Decimal
}

var _ RuleSet = (*TieredRules)(nil)

func (r *TieredRules) Name() string { return r.Version }

func (r *TieredRules) DealBonus(d Deal) generic.Money {
	zero := generic.ZeroMoney(r.Currency)
	deposit := d.InitialDeposit
	large := deposit.GreaterThanOrEqual(r.LargeDepositThreshold)

	// 1. Minimum deposit gate
	if d.ClientType == ClientEQ && deposit.LessThan(r.EQMinimumDeposit) {
		return zero
	}

	// Affiliate override replaces steps 2 and 3
	if r.AffiliateLargeEQBase != nil && d.ClientType == ClientEQ && d.TrafficSource == SourceAFF && large {
		return generic.Money{Value: *r.AffiliateLargeEQBase, Currency: r.Currency}
	}

	// 2. Base tier
	var base decimal.Decimal
	if large {
		base = r.LargeDepositBase
	} else {
		base = r.sourceBase(d.TrafficSource)
	}

	// 3. Large EQ bonus
	bonus := base
	if d.ClientType == ClientEQ && large {
		bonus = bonus.Add(r.LargeEQBonus)
	}
	return generic.Money{Value: bonus, Currency: r.Currency}
}

func (r *TieredRules) sourceBase(s TrafficSource) decimal.Decimal {
	switch s {
	case SourceAFF, SourceRFF, SourcePPC, SourceORG:
		return r.SourceBase[s]
	default:
		return decimal.Zero
	}
}

// =============================================================================
// RULE VERSIONS
// =============================================================================

const (
	RulesTiered2025          = "tiered-2025"
	RulesTiered2025Affiliate = "tiered-2025-affiliate"
)

// NewTiered2025Rules returns the tiered rules without the affiliate override.
func NewTiered2025Rules() *TieredRules {
	return &TieredRules{
		Version:               RulesTiered2025,
		Currency:              generic.ILS,
		EQMinimumDeposit:      decimal.NewFromInt(2950),
		LargeDepositThreshold: decimal.NewFromInt(10000),
		LargeDepositBase:      decimal.NewFromInt(700),
		SourceBase: map[TrafficSource]decimal.Decimal{
			SourceRFF: decimal.NewFromInt(700),
			SourcePPC: decimal.NewFromInt(700),
			SourceORG: decimal.NewFromInt(400),
			SourceAFF: decimal.NewFromInt(400),
		},
		LargeEQBonus: decimal.NewFromInt(500),
	}
}

// NewTiered2025AffiliateRules returns the latest rules: tiered with the
// AFF + large EQ override at 900.
func NewTiered2025AffiliateRules() *TieredRules {
	r := NewTiered2025Rules()
	r.Version = RulesTiered2025Affiliate
	override := decimal.NewFromInt(900)
	r.AffiliateLargeEQBase = &override
	return r
}
