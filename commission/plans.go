/*
plans.go - Commission plan definitions

PURPOSE:
  A Plan bundles every rule the aggregator needs: the deal rule set, the
  monthly and quarterly tier ladders, the temporary 70% accelerator, the
  quarterly program start, the KPI amounts and the work week. Swapping the
  plan swaps the whole rule version; nothing in engine.go is hardcoded.

AVAILABLE PLANS:
  Plan2025Affiliate (canonical, latest):
    - Tiered deal rules with AFF + large EQ -> 900
    - Monthly general: 100% -> 2000, 90% -> 1000
    - Monthly CFD:     100% -> 1000, 90% -> 500
    - Accelerator: general >= 70% -> 2000, while today <= 2025-09-30
    - Quarterly (from 2025-07-01) general: 100% -> 6000, 90% -> 3000
    - Quarterly CFD: 100% -> 3000, 90% -> 1500
    - KPI: 600 per met flag, up to 1600 for excellence (proportional)

  Plan2025:
    - Same as above with the previous deal rules (no affiliate override)

EXAMPLE:
  plan := commission.Plan2025Affiliate()
  engine := commission.NewEngine(plan)

SEE ALSO:
  - rules.go: Deal rule sets
  - factory/plan.go: JSON plan definitions
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// PLAN
// =============================================================================

// Plan is a complete, versioned commission rule set.
type Plan struct {
	ID       string
	Name     string
	Version  int
	Currency generic.Currency

	DealRules RuleSet
	Monthly   MonthlySchedule
	Quarterly QuarterlySchedule
	KPI       KPISchedule

	// Calendar used for deal dating and workday counting.
	WorkWeek generic.WorkWeek
	Holidays generic.HolidayCalendar
	Location *time.Location
}

// MonthlySchedule prices monthly quota achievement.
type MonthlySchedule struct {
	General     generic.TierLadder
	CFD         generic.TierLadder
	Accelerator *Accelerator
}

// Accelerator is a temporary bonus paid when the general ratio reaches
// MinPercent. It is gated on the reference day ("today"), not on the month
// being computed: once ValidUntil has passed it is never paid, even when
// recomputing a month that fell inside the window.
type Accelerator struct {
	MinPercent int
	Payout     generic.Money
	ValidUntil generic.TimePoint // inclusive
}

// ActiveOn reports whether the accelerator can still be paid on today.
func (a *Accelerator) ActiveOn(today generic.TimePoint) bool {
	return a != nil && today.BeforeOrEqual(a.ValidUntil)
}

// QuarterlySchedule prices quarterly quota achievement.
type QuarterlySchedule struct {
	General generic.TierLadder
	CFD     generic.TierLadder

	// StartsOn is the program start. Before it (judged by today) no
	// quarterly bonus is paid. Nil means always active.
	StartsOn *generic.TimePoint
}

// ActiveOn reports whether the quarterly program runs on today.
func (q QuarterlySchedule) ActiveOn(today generic.TimePoint) bool {
	return q.StartsOn == nil || today.AfterOrEqual(*q.StartsOn)
}

// KPISchedule prices the monthly KPI record.
type KPISchedule struct {
	FlagBonus     generic.Money // per met boolean KPI
	ExcellenceMax generic.Money // paid in full at a score of 100
}

// Bonus returns FlagBonus per met flag plus round(ExcellenceMax * score / 100).
func (s KPISchedule) Bonus(k *KpiRecord) generic.Money {
	total := s.FlagBonus.Zero()
	if k == nil {
		return total
	}
	total = total.Add(s.FlagBonus.Mul(decimal.NewFromInt(int64(k.FlagsMet()))))
	if k.ExcellenceScore > 0 {
		excellence := s.ExcellenceMax.Value.
			Mul(decimal.NewFromInt(int64(k.ExcellenceScore))).
			Div(decimal.NewFromInt(100)).
			Round(0)
		total = total.Add(generic.Money{Value: excellence, Currency: total.Currency})
	}
	return total
}

func (p Plan) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p Plan) holidays() generic.HolidayCalendar {
	if p.Holidays == nil {
		return generic.NoHolidays{}
	}
	return p.Holidays
}

// =============================================================================
// BUILT-IN PLANS
// =============================================================================

const (
	PlanIDTiered2025          = "plan-2025"
	PlanIDTiered2025Affiliate = "plan-2025-affiliate"
)

// Plan2025Affiliate is the canonical plan (latest rule revision).
func Plan2025Affiliate() Plan {
	p := basePlan2025()
	p.ID = PlanIDTiered2025Affiliate
	p.Name = "Tiered 2025 with affiliate override"
	p.Version = 3
	p.DealRules = NewTiered2025AffiliateRules()
	return p
}

// Plan2025 is the previous revision without the affiliate override.
func Plan2025() Plan {
	p := basePlan2025()
	p.ID = PlanIDTiered2025
	p.Name = "Tiered 2025"
	p.Version = 2
	p.DealRules = NewTiered2025Rules()
	return p
}

func basePlan2025() Plan {
	acceleratorUntil := generic.NewTimePoint(2025, time.September, 30)
	quarterlyStart := generic.NewTimePoint(2025, time.July, 1)

	return Plan{
		Currency: generic.ILS,
		Monthly: MonthlySchedule{
			General: ladder(100, 2000, 90, 1000),
			CFD:     ladder(100, 1000, 90, 500),
			Accelerator: &Accelerator{
				MinPercent: 70,
				Payout:     ils(2000),
				ValidUntil: acceleratorUntil,
			},
		},
		Quarterly: QuarterlySchedule{
			General:  ladder(100, 6000, 90, 3000),
			CFD:      ladder(100, 3000, 90, 1500),
			StartsOn: &quarterlyStart,
		},
		KPI: KPISchedule{
			FlagBonus:     ils(600),
			ExcellenceMax: ils(1600),
		},
		WorkWeek: generic.WorkWeekFriSat,
		Holidays: generic.NoHolidays{},
		Location: time.UTC,
	}
}

// ladder builds a tier ladder from (percent, payout) pairs.
func ladder(pairs ...int64) generic.TierLadder {
	var l generic.TierLadder
	for i := 0; i+1 < len(pairs); i += 2 {
		l.Tiers = append(l.Tiers, generic.Tier{MinPercent: int(pairs[i]), Payout: ils(pairs[i+1])})
	}
	return l
}

func ils(v int64) generic.Money { return generic.NewMoneyFromInt(v, generic.ILS) }
