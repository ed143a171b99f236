/*
Package commission implements the sales-commission rules on top of the
generic engine.

PURPOSE:
  Sales representatives log client deals. This package turns a rep's deals,
  profile (base salary, deduction), period targets and KPI flags into a
  payable salary broken down into auditable components.

COMPONENTS:
  - Deal Bonus Calculator (rules.go): one deal -> bonus, via a RuleSet
  - Compensation Aggregator (engine.go): everything -> Breakdown
  - Validation (validate.go): rejects ill-formed input before computing

PRODUCT LINES:
  EQ:  Equities. Deposits under the minimum earn nothing.
  CFD: Contracts for difference. No minimum deposit.

TRAFFIC SOURCES:
  AFF: Affiliate     RFF: Referral
  PPC: Paid ads      ORG: Organic

CURRENCIES:
  Deposits are recorded in USD. Bonuses and salary are paid in ILS. The deal
  rules compare USD deposits against USD thresholds and pay fixed ILS
  amounts; no conversion happens anywhere.

EXAMPLE FLOW:
  1. Rep logs an EQ deal, $12,000, organic, new client
  2. Engine pays 700 (large deposit base) + 500 (large EQ) = 1,200 ILS
  3. Profile deduction of 1,000 leaves an EQ bonus of 200 ILS
  4. Monthly/quarterly tier bonuses and KPI bonus are added on top

SEE ALSO:
  - plans.go: Built-in commission plans
  - factory.go: JSON presets for the plan factory
  - generic/: Money, calendar, tiers, projection
*/
package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// ENUMS
// =============================================================================

// ClientType is the product line a deal is booked under.
type ClientType string

const (
	ClientEQ  ClientType = "EQ"
	ClientCFD ClientType = "CFD"
)

// ClientTypes lists every client type.
var ClientTypes = []ClientType{ClientEQ, ClientCFD}

func (c ClientType) Valid() bool {
	switch c {
	case ClientEQ, ClientCFD:
		return true
	default:
		return false
	}
}

func ParseClientType(s string) (ClientType, error) {
	c := ClientType(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown client type %q", generic.ErrInvalidInput, s)
	}
	return c, nil
}

// TrafficSource is the acquisition channel of a deal.
type TrafficSource string

const (
	SourceAFF TrafficSource = "AFF" // affiliate
	SourceRFF TrafficSource = "RFF" // referral
	SourcePPC TrafficSource = "PPC" // paid ads
	SourceORG TrafficSource = "ORG" // organic
)

var TrafficSources = []TrafficSource{SourceAFF, SourceRFF, SourcePPC, SourceORG}

func (s TrafficSource) Valid() bool {
	switch s {
	case SourceAFF, SourceRFF, SourcePPC, SourceORG:
		return true
	default:
		return false
	}
}

func ParseTrafficSource(s string) (TrafficSource, error) {
	t := TrafficSource(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown traffic source %q", generic.ErrInvalidInput, s)
	}
	return t, nil
}

// =============================================================================
// DEAL
// =============================================================================

// Deal is one client acquisition event. InitialDeposit is in USD.
type Deal struct {
	ID             generic.DealID  `json:"id"`
	RepID          generic.RepID   `json:"sales_rep_id"`
	ClientType     ClientType      `json:"client_type" validate:"required,oneof=EQ CFD"`
	TrafficSource  TrafficSource   `json:"traffic_source" validate:"required,oneof=AFF RFF PPC ORG"`
	InitialDeposit decimal.Decimal `json:"initial_deposit" validate:"gte=0"`
	IsNewClient    bool            `json:"is_new_client"`
	CreatedAt      time.Time       `json:"created_at" validate:"required"`

	// Descriptive fields. The rules never read them.
	ClientName           string `json:"client_name,omitempty" validate:"max=200"`
	ClientPhone          string `json:"client_phone,omitempty" validate:"max=50"`
	ClientLink           string `json:"client_link,omitempty" validate:"omitempty,url"`
	Campaign             string `json:"campaign,omitempty" validate:"max=200"`
	AffiliateName        string `json:"affiliate_name,omitempty" validate:"max=200"`
	Notes                string `json:"notes,omitempty" validate:"max=2000"`
	CompletedWithin4Days bool   `json:"completed_within_4_days"`
}

// Day returns the calendar day the deal was created on in loc.
func (d Deal) Day(loc *time.Location) generic.TimePoint {
	return generic.DayOf(d.CreatedAt, loc)
}

// Deposit returns the initial deposit as USD money.
func (d Deal) Deposit() generic.Money {
	return generic.Money{Value: d.InitialDeposit, Currency: generic.USD}
}

// =============================================================================
// REPRESENTATIVE PROFILE
// =============================================================================

// Profile is a rep's pay configuration. Amounts are in the payout currency.
type Profile struct {
	RepID           generic.RepID   `json:"id" validate:"required"`
	FullName        string          `json:"full_name" validate:"max=200"`
	Email           string          `json:"email,omitempty" validate:"omitempty,email"`
	BaseSalary      decimal.Decimal `json:"base_salary" validate:"gte=0"`
	DeductionAmount decimal.Decimal `json:"deduction_amount" validate:"gte=0"`
}

// =============================================================================
// PERIOD TARGETS
// =============================================================================

// TargetAmounts is the quota content shared by monthly and quarterly rows.
type TargetAmounts struct {
	// GeneralTargetAmount is the combined EQ+CFD new-client count for 100%.
	GeneralTargetAmount int `json:"general_target_amount" validate:"gte=1"`

	// CFDTargetAmount is the CFD-only new-client count for 100%. Nil or zero
	// disables the CFD track for the period.
	CFDTargetAmount *int `json:"cfd_target_amount,omitempty" validate:"omitempty,gte=0"`

	// WorkdaysInPeriod overrides the counted workdays when set.
	WorkdaysInPeriod *int `json:"workdays_in_period,omitempty" validate:"omitempty,gte=1,lte=92"`
}

// CFDTarget returns the CFD target, 0 when unset.
func (t TargetAmounts) CFDTarget() int {
	if t.CFDTargetAmount == nil {
		return 0
	}
	return *t.CFDTargetAmount
}

// MonthlyTarget is one rep's quota for one calendar month.
type MonthlyTarget struct {
	ID    string        `json:"id"`
	RepID generic.RepID `json:"sales_rep_id"`
	Year  int           `json:"year" validate:"gte=2000,lte=9999"`
	Month int           `json:"month" validate:"gte=1,lte=12"`
	TargetAmounts
}

func (t MonthlyTarget) Key() generic.MonthKey {
	return generic.MonthKey{Year: t.Year, Month: time.Month(t.Month)}
}

// QuarterlyTarget is one rep's quota for one fiscal quarter.
type QuarterlyTarget struct {
	ID      string        `json:"id"`
	RepID   generic.RepID `json:"sales_rep_id"`
	Year    int           `json:"year" validate:"gte=2000,lte=9999"`
	Quarter int           `json:"quarter" validate:"gte=1,lte=4"`
	TargetAmounts
}

func (t QuarterlyTarget) Key() generic.QuarterKey {
	return generic.QuarterKey{Year: t.Year, Quarter: t.Quarter}
}

// =============================================================================
// KPI RECORD
// =============================================================================

// KpiRecord holds a rep's monthly KPI flags.
type KpiRecord struct {
	RepID generic.RepID `json:"sales_rep_id"`
	Year  int           `json:"year" validate:"gte=2000,lte=9999"`
	Month int           `json:"month" validate:"gte=1,lte=12"`

	AvgCallTimeMet   bool `json:"avg_call_time_minutes"`
	AvgCallsCountMet bool `json:"avg_calls_count"`
	PPCConversionMet bool `json:"ppc_conversion_rate"`
	AFFConversionMet bool `json:"aff_conversion_rate"`
	ExcellenceScore  int  `json:"work_excellence" validate:"gte=0,lte=100"`
}

func (k KpiRecord) Key() generic.MonthKey {
	return generic.MonthKey{Year: k.Year, Month: time.Month(k.Month)}
}

// FlagsMet counts the boolean KPIs that were met.
func (k KpiRecord) FlagsMet() int {
	n := 0
	for _, met := range []bool{k.AvgCallTimeMet, k.AvgCallsCountMet, k.PPCConversionMet, k.AFFConversionMet} {
		if met {
			n++
		}
	}
	return n
}
