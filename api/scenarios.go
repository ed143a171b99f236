/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates reps, deals, targets
	and KPI rows that demonstrate specific pay rules.

AVAILABLE SCENARIOS:

	september-team:     Three reps in September 2025, one over target
	affiliate-override: Large affiliate EQ deals priced by the override
	accelerator:        A rep between 70% and 90% while the accelerator runs

HOW SCENARIOS WORK:
 1. Reset database (clear all rep data; plans are kept)
 2. Create rep profiles
 3. Log deals
 4. Set monthly/quarterly targets and KPI rows

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "september-team"}

	GET /api/reps/dana/breakdown?year=2025&month=9&today=2025-10-01

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a builder returning []scenarioRep to 'scenarioBuilders'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Endpoints to inspect the loaded data
  - commission/plans.go: The rules the scenarios exercise
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "september-team",
		Name:        "September Team",
		Description: "Three reps in September 2025: one over both targets, one short, one with a deduction larger than their EQ bonus",
	},
	{
		ID:          "affiliate-override",
		Name:        "Affiliate Override",
		Description: "Affiliate EQ deals around the 10,000 USD threshold next to an organic deal of the same size",
	},
	{
		ID:          "accelerator",
		Name:        "Accelerator Window",
		Description: "A rep at 80% of target in September 2025; the accelerator pays only while it is still valid",
	},
}

// scenarioRep is everything one rep contributes to a scenario.
type scenarioRep struct {
	profile   commission.Profile
	deals     []commission.Deal
	monthly   []commission.MonthlyTarget
	quarterly []commission.QuarterlyTarget
	kpis      []commission.KpiRecord
}

var scenarioBuilders = map[string]func() []scenarioRep{
	"september-team":     septemberTeamScenario,
	"affiliate-override": affiliateOverrideScenario,
	"accelerator":        acceleratorScenario,
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	build, ok := scenarioBuilders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	reps := build()
	if err := h.loadScenario(r.Context(), req.ScenarioID, reps); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	ids := make([]string, len(reps))
	for i, rep := range reps {
		ids[i] = string(rep.profile.RepID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"reps":     ids,
	})
}

// ResetDatabase clears all rep data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, id string, reps []scenarioRep) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}

	for _, rep := range reps {
		if err := h.Store.CreateProfile(ctx, rep.profile); err != nil {
			return err
		}
		for _, d := range rep.deals {
			if _, err := h.Store.SaveDeal(ctx, d); err != nil {
				return err
			}
		}
		for _, t := range rep.monthly {
			if _, err := h.Store.SaveMonthlyTarget(ctx, t); err != nil {
				return err
			}
		}
		for _, t := range rep.quarterly {
			if _, err := h.Store.SaveQuarterlyTarget(ctx, t); err != nil {
				return err
			}
		}
		for _, k := range rep.kpis {
			if err := h.Store.SaveKpi(ctx, k); err != nil {
				return err
			}
		}
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// septemberTeamScenario: on 2025-10-01 Dana's September pays
// 6000 base + 3100 EQ (4100 - 1000) + 1400 CFD + 3000 monthly + 3080 KPI = 16580.
func septemberTeamScenario() []scenarioRep {
	dana := scenarioRep{profile: repProfile("dana", "Dana Levi", 6000, 1000)}
	dana.deals = append(dana.deals, scenarioDeals("dana", "eq-org", 8, commission.ClientEQ, commission.SourceORG, 5000, day(2025, time.September, 1))...)
	dana.deals = append(dana.deals, scenarioDeals("dana", "eq-aff", 1, commission.ClientEQ, commission.SourceAFF, 12000, day(2025, time.September, 15))...)
	dana.deals = append(dana.deals, scenarioDeals("dana", "cfd-ppc", 2, commission.ClientCFD, commission.SourcePPC, 3000, day(2025, time.September, 21))...)
	dana.monthly = []commission.MonthlyTarget{monthlyTarget("dana", 2025, 9, 10, 2)}
	dana.quarterly = []commission.QuarterlyTarget{quarterlyTarget("dana", 2025, 3, 30, 6)}
	dana.kpis = []commission.KpiRecord{{
		RepID: "dana", Year: 2025, Month: 9,
		AvgCallTimeMet: true, AvgCallsCountMet: true, PPCConversionMet: true,
		ExcellenceScore: 80,
	}}

	noa := scenarioRep{profile: repProfile("noa", "Noa Cohen", 7000, 0)}
	noa.deals = append(noa.deals, scenarioDeals("noa", "eq-rff", 4, commission.ClientEQ, commission.SourceRFF, 3500, day(2025, time.September, 2))...)
	noa.deals = append(noa.deals, scenarioDeals("noa", "cfd-org", 1, commission.ClientCFD, commission.SourceORG, 800, day(2025, time.September, 10))...)
	noa.monthly = []commission.MonthlyTarget{monthlyTarget("noa", 2025, 9, 10, 3)}

	yossi := scenarioRep{profile: repProfile("yossi", "Yossi Mizrahi", 5500, 1500)}
	yossi.deals = append(yossi.deals, scenarioDeals("yossi", "aug-eq", 6, commission.ClientEQ, commission.SourceORG, 4000, day(2025, time.August, 3))...)
	yossi.deals = append(yossi.deals, scenarioDeals("yossi", "sep-eq", 2, commission.ClientEQ, commission.SourcePPC, 3000, day(2025, time.September, 7))...)
	yossi.deals = append(yossi.deals, scenarioDeals("yossi", "sep-small", 1, commission.ClientEQ, commission.SourcePPC, 1000, day(2025, time.September, 8))...)
	yossi.monthly = []commission.MonthlyTarget{
		monthlyTarget("yossi", 2025, 8, 6, 0),
		monthlyTarget("yossi", 2025, 9, 6, 0),
	}

	return []scenarioRep{dana, noa, yossi}
}

// affiliateOverrideScenario: 9999 AFF pays the AFF base, 10000 and 12000 AFF
// pay the override, the organic 12000 pays 700 + 500.
func affiliateOverrideScenario() []scenarioRep {
	avi := scenarioRep{profile: repProfile("avi", "Avi Peretz", 6000, 0)}
	for i, deposit := range []int64{9999, 10000, 12000} {
		avi.deals = append(avi.deals, scenarioDeals("avi", fmt.Sprintf("aff-%d", i), 1, commission.ClientEQ, commission.SourceAFF, deposit, day(2025, time.September, 2+i))...)
	}
	avi.deals = append(avi.deals, scenarioDeals("avi", "org", 1, commission.ClientEQ, commission.SourceORG, 12000, day(2025, time.September, 8))...)
	return []scenarioRep{avi}
}

// acceleratorScenario: 8 of 10 new clients. Viewed on 2025-09-30 the
// accelerator pays 2000; viewed on 2025-10-01 it doesn't.
func acceleratorScenario() []scenarioRep {
	maya := scenarioRep{profile: repProfile("maya", "Maya Friedman", 6000, 0)}
	maya.deals = scenarioDeals("maya", "eq", 8, commission.ClientEQ, commission.SourceORG, 5000, day(2025, time.September, 1))
	maya.monthly = []commission.MonthlyTarget{monthlyTarget("maya", 2025, 9, 10, 0)}
	return []scenarioRep{maya}
}

// =============================================================================
// HELPERS
// =============================================================================

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func repProfile(id, name string, base, deduction int64) commission.Profile {
	return commission.Profile{
		RepID:           generic.RepID(id),
		FullName:        name,
		BaseSalary:      decimal.NewFromInt(base),
		DeductionAmount: decimal.NewFromInt(deduction),
	}
}

// scenarioDeals creates n new-client deals, one per day from start.
func scenarioDeals(rep, prefix string, n int, ct commission.ClientType, src commission.TrafficSource, deposit int64, start time.Time) []commission.Deal {
	deals := make([]commission.Deal, n)
	for i := range deals {
		deals[i] = commission.Deal{
			ID:             generic.DealID(fmt.Sprintf("%s-%s-%d", rep, prefix, i+1)),
			RepID:          generic.RepID(rep),
			ClientType:     ct,
			TrafficSource:  src,
			InitialDeposit: decimal.NewFromInt(deposit),
			IsNewClient:    true,
			CreatedAt:      start.AddDate(0, 0, i),
			ClientName:     fmt.Sprintf("Client %s %d", prefix, i+1),
		}
	}
	return deals
}

func monthlyTarget(rep string, year, month, general, cfd int) commission.MonthlyTarget {
	return commission.MonthlyTarget{
		RepID: generic.RepID(rep), Year: year, Month: month,
		TargetAmounts: targetAmounts(general, cfd),
	}
}

func quarterlyTarget(rep string, year, quarter, general, cfd int) commission.QuarterlyTarget {
	return commission.QuarterlyTarget{
		RepID: generic.RepID(rep), Year: year, Quarter: quarter,
		TargetAmounts: targetAmounts(general, cfd),
	}
}

func targetAmounts(general, cfd int) commission.TargetAmounts {
	t := commission.TargetAmounts{GeneralTargetAmount: general}
	if cfd > 0 {
		t.CFDTargetAmount = &cfd
	}
	return t
}
