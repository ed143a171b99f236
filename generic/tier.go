/*
tier.go - Achievement ratios and tiered payouts

PURPOSE:
  A quota track pays a fixed amount once the achieved count reaches a
  percentage of its target. Several thresholds form a ladder; the highest
  threshold reached wins, lower ones are not added on top.

KEY CONCEPTS:
  - Ratio: count / target, carried as an exact fraction
  - Tier: minimum percentage + payout
  - TierLadder: tiers evaluated from the highest threshold down

EXACTNESS:
  Thresholds are compared as count*100 >= percent*target in integers, so
  9 of 10 is exactly 90% with no rounding at the boundary.

EXAMPLE:
  ladder := TierLadder{Tiers: []Tier{
      {MinPercent: 100, Payout: ils(2000)},
      {MinPercent: 90, Payout: ils(1000)},
  }}
  payout, _ := ladder.Payout(NewRatio(9, 10)) // 1000

SEE ALSO:
  - commission/achievement.go: Monthly and quarterly ladders
*/
package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATIO
// =============================================================================

// Ratio is an achieved count against a target count.
type Ratio struct {
	Count  int
	Target int
}

func NewRatio(count, target int) Ratio { return Ratio{Count: count, Target: target} }

// Defined reports whether the ratio has a positive denominator.
func (r Ratio) Defined() bool { return r.Target > 0 }

// AtLeast reports whether the ratio reaches percent. Undefined ratios never do.
func (r Ratio) AtLeast(percent int) bool {
	if !r.Defined() {
		return false
	}
	return int64(r.Count)*100 >= int64(percent)*int64(r.Target)
}

// Percent returns the achievement percentage, uncapped.
func (r Ratio) Percent() decimal.Decimal {
	if !r.Defined() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Count)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(r.Target)))
}

// DisplayPercent caps the percentage at 100 for progress bars.
func (r Ratio) DisplayPercent() decimal.Decimal {
	p := r.Percent()
	hundred := decimal.NewFromInt(100)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// =============================================================================
// TIER LADDER
// =============================================================================

type Tier struct {
	MinPercent int
	Payout     Money
}

type TierLadder struct {
	Tiers []Tier
}

// Payout returns the payout of the highest tier the ratio reaches, and that
// tier's threshold. When no tier is reached it returns zero and -1.
func (l TierLadder) Payout(r Ratio, currency Currency) (Money, int) {
	for _, t := range l.sorted() {
		if r.AtLeast(t.MinPercent) {
			return t.Payout, t.MinPercent
		}
	}
	return ZeroMoney(currency), -1
}

// Monotonic reports whether a higher threshold never pays less than a lower one.
func (l TierLadder) Monotonic() bool {
	tiers := l.sorted()
	for i := 1; i < len(tiers); i++ {
		if tiers[i-1].Payout.LessThan(tiers[i].Payout) {
			return false
		}
	}
	return true
}

func (l TierLadder) sorted() []Tier {
	tiers := make([]Tier, len(l.Tiers))
	copy(tiers, l.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinPercent > tiers[j].MinPercent })
	return tiers
}
