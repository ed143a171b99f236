/*
Package factory provides JSON to Go plan conversion.

PURPOSE:
  Converts JSON plan definitions into commission.Plan values. This lets
  payroll reinstate an older rule version, or roll out a new one, without
  code changes: the plan is a document stored next to the data.

JSON SCHEMA:
  {
    "id": "plan-2025-affiliate",
    "name": "Tiered 2025 with affiliate override",
    "version": 3,
    "currency": "ILS",
    "deal_rules": {
      "type": "tiered-2025-affiliate",
      "eq_minimum_deposit": 2950,
      "large_deposit_threshold": 10000,
      "large_deposit_base": 700,
      "source_base": {"RFF": 700, "PPC": 700, "ORG": 400, "AFF": 400},
      "large_eq_bonus": 500,
      "affiliate_large_eq_base": 900
    },
    "monthly": {
      "general": [{"min_percent": 100, "payout": 2000}, {"min_percent": 90, "payout": 1000}],
      "cfd": [{"min_percent": 100, "payout": 1000}, {"min_percent": 90, "payout": 500}],
      "accelerator": {"min_percent": 70, "payout": 2000, "valid_until": "2025-09-30"}
    },
    "quarterly": {
      "general": [...], "cfd": [...], "starts_on": "2025-07-01"
    },
    "kpi": {"flag_bonus": 600, "excellence_max": 1600},
    "rest_days": ["friday", "saturday"],
    "holidays": [{"date": "2025-09-23", "name": "Rosh Hashana"}],
    "time_zone": "Asia/Jerusalem"
  }

RULE SET TYPES:
  tiered-2025            Tiered rules without the affiliate override
  tiered-2025-affiliate  Tiered rules; affiliate_large_eq_base defaults to 900

  Any other type fails with generic.ErrUnknownRuleSet.

USAGE:
  f := factory.NewPlanFactory()
  plan, err := f.ParsePlan(commission.Plan2025AffiliateJSON())
  engine := commission.NewEngine(*plan)

SEE ALSO:
  - commission/plans.go: Plan type and Go presets
  - commission/factory.go: JSON presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a plan.
type PlanJSON struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Version   int           `json:"version"`
	Currency  string        `json:"currency,omitempty"`
	DealRules DealRulesJSON `json:"deal_rules"`
	Monthly   MonthlyJSON   `json:"monthly"`
	Quarterly QuarterlyJSON `json:"quarterly"`
	KPI       KPIJSON       `json:"kpi"`
	RestDays  []string      `json:"rest_days,omitempty"`
	Holidays  []HolidayJSON `json:"holidays,omitempty"`
	TimeZone  string        `json:"time_zone,omitempty"`
}

// DealRulesJSON configures the deal rule set.
type DealRulesJSON struct {
	Type                  string                     `json:"type"`
	EQMinimumDeposit      decimal.Decimal            `json:"eq_minimum_deposit"`
	LargeDepositThreshold decimal.Decimal            `json:"large_deposit_threshold"`
	LargeDepositBase      decimal.Decimal            `json:"large_deposit_base"`
	SourceBase            map[string]decimal.Decimal `json:"source_base"`
	LargeEQBonus          decimal.Decimal            `json:"large_eq_bonus"`
	AffiliateLargeEQBase  *decimal.Decimal           `json:"affiliate_large_eq_base,omitempty"`
}

// TierJSON is one ladder step.
type TierJSON struct {
	MinPercent int             `json:"min_percent"`
	Payout     decimal.Decimal `json:"payout"`
}

// AcceleratorJSON configures the temporary monthly accelerator.
type AcceleratorJSON struct {
	MinPercent int             `json:"min_percent"`
	Payout     decimal.Decimal `json:"payout"`
	ValidUntil string          `json:"valid_until"`
}

type MonthlyJSON struct {
	General     []TierJSON       `json:"general"`
	CFD         []TierJSON       `json:"cfd"`
	Accelerator *AcceleratorJSON `json:"accelerator,omitempty"`
}

type QuarterlyJSON struct {
	General  []TierJSON `json:"general"`
	CFD      []TierJSON `json:"cfd"`
	StartsOn string     `json:"starts_on,omitempty"`
}

type KPIJSON struct {
	FlagBonus     decimal.Decimal `json:"flag_bonus"`
	ExcellenceMax decimal.Decimal `json:"excellence_max"`
}

type HolidayJSON struct {
	Date      string `json:"date"`
	Name      string `json:"name,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts JSON plans to commission.Plan values.
type PlanFactory struct{}

func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON string into a Plan.
func (f *PlanFactory) ParsePlan(jsonStr string) (*commission.Plan, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PlanJSON to a Plan.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*commission.Plan, error) {
	if strings.TrimSpace(pj.ID) == "" {
		return nil, fmt.Errorf("%w: plan id is required", generic.ErrInvalidInput)
	}

	currency := generic.Currency(pj.Currency)
	if currency == "" {
		currency = generic.ILS
	}

	rules, err := parseDealRules(pj.DealRules, currency)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", pj.ID, err)
	}

	plan := &commission.Plan{
		ID:        pj.ID,
		Name:      pj.Name,
		Version:   pj.Version,
		Currency:  currency,
		DealRules: rules,
		Monthly: commission.MonthlySchedule{
			General: parseLadder(pj.Monthly.General, currency),
			CFD:     parseLadder(pj.Monthly.CFD, currency),
		},
		Quarterly: commission.QuarterlySchedule{
			General: parseLadder(pj.Quarterly.General, currency),
			CFD:     parseLadder(pj.Quarterly.CFD, currency),
		},
		KPI: commission.KPISchedule{
			FlagBonus:     generic.Money{Value: pj.KPI.FlagBonus, Currency: currency},
			ExcellenceMax: generic.Money{Value: pj.KPI.ExcellenceMax, Currency: currency},
		},
	}

	for name, l := range map[string]generic.TierLadder{
		"monthly.general":   plan.Monthly.General,
		"monthly.cfd":       plan.Monthly.CFD,
		"quarterly.general": plan.Quarterly.General,
		"quarterly.cfd":     plan.Quarterly.CFD,
	} {
		if !l.Monotonic() {
			return nil, fmt.Errorf("%w: plan %s: %s tiers pay less at a higher threshold", generic.ErrInvalidInput, pj.ID, name)
		}
	}

	if aj := pj.Monthly.Accelerator; aj != nil {
		until, err := generic.ParseDay(aj.ValidUntil)
		if err != nil {
			return nil, fmt.Errorf("plan %s: accelerator valid_until: %w", pj.ID, err)
		}
		plan.Monthly.Accelerator = &commission.Accelerator{
			MinPercent: aj.MinPercent,
			Payout:     generic.Money{Value: aj.Payout, Currency: currency},
			ValidUntil: until,
		}
	}

	if pj.Quarterly.StartsOn != "" {
		start, err := generic.ParseDay(pj.Quarterly.StartsOn)
		if err != nil {
			return nil, fmt.Errorf("plan %s: quarterly starts_on: %w", pj.ID, err)
		}
		plan.Quarterly.StartsOn = &start
	}

	plan.WorkWeek, err = parseRestDays(pj.RestDays)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", pj.ID, err)
	}

	plan.Holidays, err = parseHolidays(pj.Holidays)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", pj.ID, err)
	}

	plan.Location = time.UTC
	if pj.TimeZone != "" {
		loc, err := time.LoadLocation(pj.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("%w: plan %s: time zone %q", generic.ErrInvalidInput, pj.ID, pj.TimeZone)
		}
		plan.Location = loc
	}

	return plan, nil
}

// ToJSON converts a Plan back to PlanJSON. Only tiered rule sets can be
// represented.
func (f *PlanFactory) ToJSON(plan *commission.Plan) (PlanJSON, error) {
	pj := PlanJSON{
		ID:       plan.ID,
		Name:     plan.Name,
		Version:  plan.Version,
		Currency: string(plan.Currency),
		Monthly: MonthlyJSON{
			General: ladderJSON(plan.Monthly.General),
			CFD:     ladderJSON(plan.Monthly.CFD),
		},
		Quarterly: QuarterlyJSON{
			General: ladderJSON(plan.Quarterly.General),
			CFD:     ladderJSON(plan.Quarterly.CFD),
		},
		KPI: KPIJSON{
			FlagBonus:     plan.KPI.FlagBonus.Value,
			ExcellenceMax: plan.KPI.ExcellenceMax.Value,
		},
		RestDays: []string{
			strings.ToLower(plan.WorkWeek.RestDays[0].String()),
			strings.ToLower(plan.WorkWeek.RestDays[1].String()),
		},
	}

	rules, ok := plan.DealRules.(*commission.TieredRules)
	if !ok {
		return PlanJSON{}, fmt.Errorf("%w: %s", generic.ErrUnknownRuleSet, plan.DealRules.Name())
	}
	pj.DealRules = DealRulesJSON{
		Type:                  rules.Version,
		EQMinimumDeposit:      rules.EQMinimumDeposit,
		LargeDepositThreshold: rules.LargeDepositThreshold,
		LargeDepositBase:      rules.LargeDepositBase,
		SourceBase:            make(map[string]decimal.Decimal, len(rules.SourceBase)),
		LargeEQBonus:          rules.LargeEQBonus,
		AffiliateLargeEQBase:  rules.AffiliateLargeEQBase,
	}
	for src, v := range rules.SourceBase {
		pj.DealRules.SourceBase[string(src)] = v
	}

	if a := plan.Monthly.Accelerator; a != nil {
		pj.Monthly.Accelerator = &AcceleratorJSON{
			MinPercent: a.MinPercent,
			Payout:     a.Payout.Value,
			ValidUntil: a.ValidUntil.String(),
		}
	}
	if plan.Quarterly.StartsOn != nil {
		pj.Quarterly.StartsOn = plan.Quarterly.StartsOn.String()
	}
	if hl, ok := plan.Holidays.(generic.HolidayList); ok {
		for _, h := range hl {
			pj.Holidays = append(pj.Holidays, HolidayJSON{Date: h.Date.String(), Name: h.Name, Recurring: h.Recurring})
		}
	}
	if plan.Location != nil {
		pj.TimeZone = plan.Location.String()
	}
	return pj, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDealRules(rj DealRulesJSON, currency generic.Currency) (commission.RuleSet, error) {
	switch rj.Type {
	case commission.RulesTiered2025, commission.RulesTiered2025Affiliate:
	default:
		return nil, fmt.Errorf("%w: %q", generic.ErrUnknownRuleSet, rj.Type)
	}

	rules := &commission.TieredRules{
		Version:               rj.Type,
		Currency:              currency,
		EQMinimumDeposit:      rj.EQMinimumDeposit,
		LargeDepositThreshold: rj.LargeDepositThreshold,
		LargeDepositBase:      rj.LargeDepositBase,
		SourceBase:            make(map[commission.TrafficSource]decimal.Decimal, len(rj.SourceBase)),
		LargeEQBonus:          rj.LargeEQBonus,
	}
	for name, v := range rj.SourceBase {
		src, err := commission.ParseTrafficSource(strings.ToUpper(name))
		if err != nil {
			return nil, err
		}
		rules.SourceBase[src] = v
	}

	if rj.Type == commission.RulesTiered2025Affiliate {
		override := decimal.NewFromInt(900)
		if rj.AffiliateLargeEQBase != nil {
			override = *rj.AffiliateLargeEQBase
		}
		rules.AffiliateLargeEQBase = &override
	}
	return rules, nil
}

func parseLadder(tiers []TierJSON, currency generic.Currency) generic.TierLadder {
	var l generic.TierLadder
	for _, t := range tiers {
		l.Tiers = append(l.Tiers, generic.Tier{
			MinPercent: t.MinPercent,
			Payout:     generic.Money{Value: t.Payout, Currency: currency},
		})
	}
	return l
}

func ladderJSON(l generic.TierLadder) []TierJSON {
	out := make([]TierJSON, 0, len(l.Tiers))
	for _, t := range l.Tiers {
		out = append(out, TierJSON{MinPercent: t.MinPercent, Payout: t.Payout.Value})
	}
	return out
}

func parseRestDays(days []string) (generic.WorkWeek, error) {
	if len(days) == 0 {
		return generic.WorkWeekFriSat, nil
	}
	if len(days) != 2 {
		return generic.WorkWeek{}, fmt.Errorf("%w: rest_days needs exactly two days, got %d", generic.ErrInvalidInput, len(days))
	}
	first, ok := generic.ParseWeekday(days[0])
	if !ok {
		return generic.WorkWeek{}, fmt.Errorf("%w: unknown weekday %q", generic.ErrInvalidInput, days[0])
	}
	second, ok := generic.ParseWeekday(days[1])
	if !ok {
		return generic.WorkWeek{}, fmt.Errorf("%w: unknown weekday %q", generic.ErrInvalidInput, days[1])
	}
	return generic.NewWorkWeek(first, second), nil
}

func parseHolidays(hs []HolidayJSON) (generic.HolidayCalendar, error) {
	if len(hs) == 0 {
		return generic.NoHolidays{}, nil
	}
	list := make(generic.HolidayList, 0, len(hs))
	for _, h := range hs {
		d, err := generic.ParseDay(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		list = append(list, generic.Holiday{Date: d, Name: h.Name, Recurring: h.Recurring})
	}
	return list, nil
}
