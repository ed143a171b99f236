/*
engine.go - Compensation Aggregator

PURPOSE:
  Turns a rep's profile, deals, period targets and KPI record into a
  Breakdown: base salary, deal bonuses, deduction, quota-achievement
  bonuses, KPI bonus, grand total and the projected variants for a period
  still in progress.

KEY INSIGHT:
  The engine never reads the clock. "Today" arrives in PeriodContext, so the
  same input always yields the same Breakdown and results can be cached
  under a hash of the input (see cache.go).

STEPS:
  1. Keep new-client deals created in the month; split by client type
  2. Sum deal bonuses per line: eqRaw, cfd
  3. eqBonus = max(0, eqRaw - deduction); cfd is never reduced
  4. Monthly tiers (general, CFD) + 70% accelerator, if a monthly target exists
  5. Quarterly tiers, if a quarterly target exists and the program has started
  6. KPI bonus
  7. Projection of the counts over the remaining workdays of a current period
  8. total = base + eq + cfd + achievement bonuses + kpi

DEAL SELECTION:
  Callers may pass the whole quarter's deals (or more). The engine uses the
  deals created in the month for the EQ/CFD bonuses and monthly counts, and
  the deals created in the quarter for quarterly counts. Days are taken in
  the plan's time zone.

SEE ALSO:
  - rules.go: Deal Bonus Calculator
  - plans.go: Tier ladders, accelerator, KPI amounts
  - generic/projection.go: Workday window and run-rate projection
*/
package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// INPUT
// =============================================================================

// PeriodContext names the month being computed and the reference day.
type PeriodContext struct {
	Today generic.TimePoint
	Month generic.MonthKey
}

// BreakdownInput is everything the aggregator reads. Nil targets or KPI mean
// "no row for this period", which yields zero for those bonuses.
type BreakdownInput struct {
	Profile         Profile
	Deals           []Deal
	MonthlyTarget   *MonthlyTarget
	QuarterlyTarget *QuarterlyTarget
	KPI             *KpiRecord
	Context         PeriodContext
}

// =============================================================================
// OUTPUT
// =============================================================================

// Breakdown is the auditable salary computation for one rep and one month.
type Breakdown struct {
	RepID    generic.RepID        `json:"rep_id"`
	PlanID   string               `json:"plan_id"`
	RuleSet  string               `json:"rule_set"`
	Month    string               `json:"month"`
	Quarter  string               `json:"quarter"`
	Today    string               `json:"today"`
	Currency generic.Currency     `json:"currency"`
	Status   generic.PeriodStatus `json:"status"`

	BaseSalary       generic.Money `json:"base_salary"`
	EQBonusRaw       generic.Money `json:"eq_bonus_raw"`
	DeductionApplied generic.Money `json:"deduction_applied"`
	EQBonus          generic.Money `json:"eq_bonus"`
	CFDBonus         generic.Money `json:"cfd_bonus"`

	Deals         []DealLine    `json:"deals"`
	NewClients    int           `json:"new_clients"`
	NewEQClients  int           `json:"new_eq_clients"`
	NewCFDClients int           `json:"new_cfd_clients"`
	DepositTotal  generic.Money `json:"deposit_total"`

	Monthly   PeriodAchievement `json:"monthly"`
	Quarterly PeriodAchievement `json:"quarterly"`

	KPIBonus generic.Money `json:"kpi_bonus"`

	Total          generic.Money `json:"total"`
	ProjectedTotal generic.Money `json:"projected_total"`
}

// DealLine is one priced new-client deal of the month.
type DealLine struct {
	DealID        generic.DealID `json:"deal_id"`
	ClientType    ClientType     `json:"client_type"`
	TrafficSource TrafficSource  `json:"traffic_source"`
	Deposit       generic.Money  `json:"deposit"`
	Day           string         `json:"day"`
	Bonus         generic.Money  `json:"bonus"`
}

// PeriodAchievement is the quota result of one period (month or quarter).
type PeriodAchievement struct {
	Kind      generic.PeriodKind   `json:"kind"`
	Key       string               `json:"key"`
	Start     string               `json:"start"`
	End       string               `json:"end"`
	Status    generic.PeriodStatus `json:"status"`
	HasTarget bool                 `json:"has_target"`

	// Active is false when the schedule does not run on today (quarterly
	// program not started yet).
	Active bool                  `json:"active"`
	Window generic.WorkdayWindow `json:"workdays"`

	General TrackResult `json:"general"`
	CFD     TrackResult `json:"cfd"`

	Accelerator          generic.Money `json:"accelerator"`
	ProjectedAccelerator generic.Money `json:"projected_accelerator"`

	Bonus          generic.Money `json:"bonus"`
	ProjectedBonus generic.Money `json:"projected_bonus"`
}

// TrackResult is one quota track (general or CFD) of one period.
type TrackResult struct {
	Target         int             `json:"target"`
	Actual         int             `json:"actual"`
	Percent        decimal.Decimal `json:"percent"`
	DisplayPercent decimal.Decimal `json:"display_percent"`
	Achieved       bool            `json:"achieved"`
	TierPercent    int             `json:"tier_percent"`
	Bonus          generic.Money   `json:"bonus"`

	DailyRate        decimal.Decimal `json:"daily_rate"`
	Projected        int             `json:"projected"`
	ProjectedPercent decimal.Decimal `json:"projected_percent"`
	ProjectedTier    int             `json:"projected_tier_percent"`
	ProjectedBonus   generic.Money   `json:"projected_bonus"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes breakdowns under one plan. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	Plan Plan
}

func NewEngine(plan Plan) *Engine {
	return &Engine{Plan: plan}
}

// DealBonus prices a single deal under the plan's rule set.
func (e *Engine) DealBonus(d Deal) generic.Money {
	return e.Plan.DealRules.DealBonus(d)
}

// Compute validates the input and returns the breakdown. Validation failures
// are returned as generic.ValidationErrors.
func (e *Engine) Compute(in BreakdownInput) (*Breakdown, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	return e.compute(in), nil
}

func (e *Engine) compute(in BreakdownInput) *Breakdown {
	plan := e.Plan
	cur := plan.Currency
	loc := plan.location()
	month := in.Context.Month
	quarter := month.Quarter()
	today := in.Context.Today
	monthPeriod := month.Period()
	quarterPeriod := quarter.Period()

	b := &Breakdown{
		RepID:    in.Profile.RepID,
		PlanID:   plan.ID,
		RuleSet:  plan.DealRules.Name(),
		Month:    month.String(),
		Quarter:  quarter.String(),
		Today:    today.String(),
		Currency: cur,
		Status:   monthPeriod.StatusAt(today),

		BaseSalary:   generic.Money{Value: in.Profile.BaseSalary, Currency: cur},
		EQBonusRaw:   generic.ZeroMoney(cur),
		CFDBonus:     generic.ZeroMoney(cur),
		DepositTotal: generic.ZeroMoney(generic.USD),
		Deals:        []DealLine{},
	}

	// Steps 1-2: new clients of the month, priced per line
	var quarterAll, quarterCFD int
	for _, d := range in.Deals {
		if !d.IsNewClient {
			continue
		}
		day := d.Day(loc)
		if quarterPeriod.Contains(day) {
			quarterAll++
			if d.ClientType == ClientCFD {
				quarterCFD++
			}
		}
		if !monthPeriod.Contains(day) {
			continue
		}

		bonus := e.DealBonus(d)
		b.Deals = append(b.Deals, DealLine{
			DealID:        d.ID,
			ClientType:    d.ClientType,
			TrafficSource: d.TrafficSource,
			Deposit:       d.Deposit(),
			Day:           day.String(),
			Bonus:         bonus,
		})
		b.NewClients++
		b.DepositTotal = b.DepositTotal.Add(d.Deposit())

		switch d.ClientType {
		case ClientEQ:
			b.NewEQClients++
			b.EQBonusRaw = b.EQBonusRaw.Add(bonus)
		case ClientCFD:
			b.NewCFDClients++
			b.CFDBonus = b.CFDBonus.Add(bonus)
		}
	}

	// Step 3: deduction only reduces the EQ line, never below zero
	deduction := generic.Money{Value: in.Profile.DeductionAmount, Currency: cur}
	b.EQBonus = b.EQBonusRaw.Sub(deduction).ClampZero()
	b.DeductionApplied = b.EQBonusRaw.Sub(b.EQBonus)

	// Steps 4-5, 7: achievement and projection
	var monthlyAmounts, quarterlyAmounts *TargetAmounts
	if in.MonthlyTarget != nil {
		monthlyAmounts = &in.MonthlyTarget.TargetAmounts
	}
	if in.QuarterlyTarget != nil {
		quarterlyAmounts = &in.QuarterlyTarget.TargetAmounts
	}

	b.Monthly = e.achievement(achievementInput{
		kind:        generic.KindMonth,
		key:         month.String(),
		period:      monthPeriod,
		today:       today,
		target:      monthlyAmounts,
		all:         b.NewClients,
		cfd:         b.NewCFDClients,
		active:      true,
		general:     plan.Monthly.General,
		cfdLadder:   plan.Monthly.CFD,
		accelerator: plan.Monthly.Accelerator,
	})
	b.Quarterly = e.achievement(achievementInput{
		kind:      generic.KindQuarter,
		key:       quarter.String(),
		period:    quarterPeriod,
		today:     today,
		target:    quarterlyAmounts,
		all:       quarterAll,
		cfd:       quarterCFD,
		active:    plan.Quarterly.ActiveOn(today),
		general:   plan.Quarterly.General,
		cfdLadder: plan.Quarterly.CFD,
	})

	// Step 6: KPI
	b.KPIBonus = plan.KPI.Bonus(in.KPI)
	if b.KPIBonus.Currency == "" {
		b.KPIBonus = generic.ZeroMoney(cur)
	}

	// Step 8: totals
	fixed := generic.SumMoney(cur, b.BaseSalary, b.EQBonus, b.CFDBonus, b.KPIBonus)
	b.Total = fixed.Add(b.Monthly.Bonus).Add(b.Quarterly.Bonus)
	b.ProjectedTotal = fixed.Add(b.Monthly.ProjectedBonus).Add(b.Quarterly.ProjectedBonus)

	return b
}

// =============================================================================
// ACHIEVEMENT
// =============================================================================

type achievementInput struct {
	kind        generic.PeriodKind
	key         string
	period      generic.Period
	today       generic.TimePoint
	target      *TargetAmounts
	all         int
	cfd         int
	active      bool
	general     generic.TierLadder
	cfdLadder   generic.TierLadder
	accelerator *Accelerator
}

func (e *Engine) achievement(in achievementInput) PeriodAchievement {
	cur := e.Plan.Currency
	zero := generic.ZeroMoney(cur)

	a := PeriodAchievement{
		Kind:                 in.kind,
		Key:                  in.key,
		Start:                in.period.Start.String(),
		End:                  in.period.End.String(),
		Status:               in.period.StatusAt(in.today),
		HasTarget:            in.target != nil,
		Active:               in.active,
		Accelerator:          zero,
		ProjectedAccelerator: zero,
		Bonus:                zero,
		ProjectedBonus:       zero,
	}

	var override *int
	if in.target != nil {
		override = in.target.WorkdaysInPeriod
	}
	a.Window = generic.NewWorkdayWindow(generic.WindowInput{
		Period:        in.period,
		Today:         in.today,
		Week:          e.Plan.WorkWeek,
		Holidays:      e.Plan.holidays(),
		TotalOverride: override,
	})

	generalTarget, cfdTarget := 0, 0
	if in.target != nil {
		generalTarget = in.target.GeneralTargetAmount
		cfdTarget = in.target.CFDTarget()
	}

	pays := in.active && in.target != nil
	a.General = e.track(generalTarget, in.all, a.Window, in.general, pays)
	a.CFD = e.track(cfdTarget, in.cfd, a.Window, in.cfdLadder, pays)

	if pays && in.accelerator.ActiveOn(in.today) {
		if generic.NewRatio(in.all, generalTarget).AtLeast(in.accelerator.MinPercent) {
			a.Accelerator = in.accelerator.Payout
		}
		if generic.NewRatio(a.General.Projected, generalTarget).AtLeast(in.accelerator.MinPercent) {
			a.ProjectedAccelerator = in.accelerator.Payout
		}
	}

	a.Bonus = generic.SumMoney(cur, a.General.Bonus, a.CFD.Bonus, a.Accelerator)
	a.ProjectedBonus = generic.SumMoney(cur, a.General.ProjectedBonus, a.CFD.ProjectedBonus, a.ProjectedAccelerator)
	return a
}

// track evaluates one ladder against actual and projected counts. A zero
// target leaves the track undefined: no percent, no bonus.
func (e *Engine) track(target, actual int, window generic.WorkdayWindow, ladder generic.TierLadder, pays bool) TrackResult {
	cur := e.Plan.Currency
	proj := window.Project(actual)

	ratio := generic.NewRatio(actual, target)
	projRatio := generic.NewRatio(proj.Projected, target)

	t := TrackResult{
		Target:           target,
		Actual:           actual,
		Percent:          ratio.Percent(),
		DisplayPercent:   ratio.DisplayPercent(),
		Achieved:         ratio.AtLeast(100),
		TierPercent:      -1,
		Bonus:            generic.ZeroMoney(cur),
		DailyRate:        proj.DailyRate,
		Projected:        proj.Projected,
		ProjectedPercent: projRatio.Percent(),
		ProjectedTier:    -1,
		ProjectedBonus:   generic.ZeroMoney(cur),
	}
	if !pays {
		return t
	}
	t.Bonus, t.TierPercent = ladder.Payout(ratio, cur)
	t.ProjectedBonus, t.ProjectedTier = ladder.Payout(projRatio, cur)
	return t
}
