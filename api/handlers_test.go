/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Rep profile creation, update and error statuses
- Deal logging and per-deal pricing
- Breakdowns over a loaded scenario, cache invalidation, holidays
- Snapshots, month close idempotency
- Plan registration and activation
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/commission"
	memstore "github.com/warp/commission-engine/generic/store"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var october1 = time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "commission.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.Now = func() time.Time { return october1 }
	h.Cache = memstore.NewMemoryCache()
	h.CacheTTL = time.Minute
	return h, NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "%s: want %d, got %s", field, want, got)
}

var dana = map[string]any{
	"id":               "dana",
	"full_name":        "Dana Levi",
	"base_salary":      6000,
	"deduction_amount": 1000,
}

// =============================================================================
// REPS
// =============================================================================

func TestCreateRep_ThenDuplicate(t *testing.T) {
	// GIVEN: An empty store
	_, router := setupTestHandler(t)

	// WHEN: Creating the same rep twice
	first := do(t, router, http.MethodPost, "/api/reps", dana)
	second := do(t, router, http.MethodPost, "/api/reps", dana)

	// THEN: The first succeeds and the second conflicts
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	rep := decode[RepDTO](t, first)
	assert.Equal(t, "dana", rep.ID)
	assertAmount(t, 6000, rep.BaseSalary, "base_salary")

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, second).Error)
}

func TestCreateRep_Invalid(t *testing.T) {
	_, router := setupTestHandler(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"missing id", map[string]any{"full_name": "No Id", "base_salary": 5000}},
		{"negative salary", map[string]any{"id": "x", "base_salary": -1}},
		{"bad email", map[string]any{"id": "x", "email": "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/reps", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetRep_NotFound(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/api/reps/ghost", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRep_KeepsOmittedFields(t *testing.T) {
	// GIVEN: Dana with a 1000 deduction
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/reps", dana).Code)

	// WHEN: Only the base salary changes
	rec := do(t, router, http.MethodPut, "/api/reps/dana", map[string]any{"base_salary": 6500})

	// THEN: The deduction is untouched
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode[RepDTO](t, rec)
	assertAmount(t, 6500, rep.BaseSalary, "base_salary")
	assertAmount(t, 1000, rep.DeductionAmount, "deduction_amount")
	assert.Equal(t, "Dana Levi", rep.FullName)
}

// =============================================================================
// DEALS
// =============================================================================

func TestCreateDeal_PricedByActivePlan(t *testing.T) {
	// GIVEN: A rep under the affiliate-override plan
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/reps", dana).Code)

	tests := []struct {
		name    string
		source  string
		deposit int64
		bonus   int64
	}{
		{"affiliate below threshold", "AFF", 9999, 400},
		{"affiliate at threshold", "AFF", 10000, 900},
		{"organic large deposit", "ORG", 12000, 1200},
		{"organic under minimum", "ORG", 2949, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN: Logging an EQ deal
			rec := do(t, router, http.MethodPost, "/api/reps/dana/deals", map[string]any{
				"client_type":     "EQ",
				"traffic_source":  tt.source,
				"initial_deposit": tt.deposit,
				"created_at":      "2025-09-15T10:00:00Z",
			})

			// THEN: It's stored as a new client and priced per the rules
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			deal := decode[DealDTO](t, rec)
			assert.NotEmpty(t, deal.ID)
			assert.True(t, deal.IsNewClient)
			assertAmount(t, tt.bonus, deal.Bonus.Value, "bonus")
		})
	}

	list := do(t, router, http.MethodGet, "/api/reps/dana/deals?year=2025&month=9", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decode[[]DealDTO](t, list), len(tests))

	august := do(t, router, http.MethodGet, "/api/reps/dana/deals?year=2025&month=8", nil)
	assert.Empty(t, decode[[]DealDTO](t, august))
}

func TestCreateDeal_Rejected(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/reps", dana).Code)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{
			name:   "unknown client type",
			path:   "/api/reps/dana/deals",
			body:   map[string]any{"client_type": "FX", "traffic_source": "ORG", "initial_deposit": 5000},
			status: http.StatusBadRequest,
		},
		{
			name:   "negative deposit",
			path:   "/api/reps/dana/deals",
			body:   map[string]any{"client_type": "EQ", "traffic_source": "ORG", "initial_deposit": -5},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad created_at",
			path:   "/api/reps/dana/deals",
			body:   map[string]any{"client_type": "EQ", "traffic_source": "ORG", "initial_deposit": 5000, "created_at": "15/09/2025"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown rep",
			path:   "/api/reps/ghost/deals",
			body:   map[string]any{"client_type": "EQ", "traffic_source": "ORG", "initial_deposit": 5000},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteDeal(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/reps", dana).Code)

	created := do(t, router, http.MethodPost, "/api/reps/dana/deals", map[string]any{
		"client_type": "CFD", "traffic_source": "PPC", "initial_deposit": 3000,
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	id := decode[DealDTO](t, created).ID

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/deals/"+string(id), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/deals/"+string(id), nil).Code)
}

// =============================================================================
// BREAKDOWN
// =============================================================================

func TestBreakdown_SeptemberTeam(t *testing.T) {
	// GIVEN: The september-team scenario
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	// WHEN: Viewing Dana's September after the month closed
	rec := do(t, router, http.MethodGet, "/api/reps/dana/breakdown?year=2025&month=9&today=2025-10-01", nil)

	// THEN: Every line matches the plan
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[commission.Breakdown](t, rec)

	assert.Equal(t, "2025-09", b.Month)
	assert.Equal(t, 11, b.NewClients)
	assert.Equal(t, 2, b.NewCFDClients)
	assertAmount(t, 4100, b.EQBonusRaw.Value, "eq_bonus_raw")
	assertAmount(t, 1000, b.DeductionApplied.Value, "deduction_applied")
	assertAmount(t, 3100, b.EQBonus.Value, "eq_bonus")
	assertAmount(t, 1400, b.CFDBonus.Value, "cfd_bonus")
	assertAmount(t, 3000, b.Monthly.Bonus.Value, "monthly bonus")
	assertAmount(t, 0, b.Monthly.Accelerator.Value, "accelerator")
	assertAmount(t, 0, b.Quarterly.Bonus.Value, "quarterly bonus")
	assertAmount(t, 3080, b.KPIBonus.Value, "kpi_bonus")
	assertAmount(t, 16580, b.Total.Value, "total")
	assert.Equal(t, 22, b.Monthly.Window.Total)
}

func TestBreakdown_DeductionNeverNegative(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	// Yossi: 2 x 700 EQ against a 1500 deduction
	rec := do(t, router, http.MethodGet, "/api/reps/yossi/breakdown?year=2025&month=9&today=2025-10-01", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[commission.Breakdown](t, rec)
	assertAmount(t, 1400, b.EQBonusRaw.Value, "eq_bonus_raw")
	assertAmount(t, 1400, b.DeductionApplied.Value, "deduction_applied")
	assertAmount(t, 0, b.EQBonus.Value, "eq_bonus")
}

func TestBreakdown_AcceleratorWindow(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "accelerator")

	tests := []struct {
		today       string
		accelerator int64
	}{
		{"2025-09-30", 2000},
		{"2025-10-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.today, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/reps/maya/breakdown?year=2025&month=9&today="+tt.today, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			b := decode[commission.Breakdown](t, rec)
			assertAmount(t, tt.accelerator, b.Monthly.Accelerator.Value, "accelerator")
			assertAmount(t, 0, b.Monthly.General.Bonus.Value, "general bonus")
		})
	}
}

func TestBreakdown_Errors(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown rep", "/api/reps/ghost/breakdown?year=2025&month=9", http.StatusNotFound},
		{"month out of range", "/api/reps/dana/breakdown?year=2025&month=13", http.StatusBadRequest},
		{"month not a number", "/api/reps/dana/breakdown?year=2025&month=sep", http.StatusBadRequest},
		{"bad today", "/api/reps/dana/breakdown?year=2025&month=9&today=01-10-2025", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestBreakdown_CacheSeesNewDeals(t *testing.T) {
	// GIVEN: A cached breakdown
	_, router := setupTestHandler(t)
	loadScenario(t, router, "accelerator")
	path := "/api/reps/maya/breakdown?year=2025&month=9&today=2025-09-30"

	before := decode[commission.Breakdown](t, do(t, router, http.MethodGet, path, nil))
	require.Equal(t, 8, before.NewClients)

	// WHEN: Two more deals reach the monthly target
	for i := 0; i < 2; i++ {
		rec := do(t, router, http.MethodPost, "/api/reps/maya/deals", map[string]any{
			"client_type": "EQ", "traffic_source": "ORG", "initial_deposit": 5000,
			"created_at": "2025-09-29T08:00:00Z",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// THEN: The next read is recomputed
	after := decode[commission.Breakdown](t, do(t, router, http.MethodGet, path, nil))
	assert.Equal(t, 10, after.NewClients)
	assertAmount(t, 2000, after.Monthly.General.Bonus.Value, "general bonus")
}

func TestBreakdown_StoredHolidayShortensMonth(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "accelerator")

	rec := do(t, router, http.MethodPost, "/api/holidays", HolidayDTO{Date: "2025-09-10", Name: "Company day"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	b := decode[commission.Breakdown](t, do(t, router, http.MethodGet, "/api/reps/maya/breakdown?year=2025&month=9&today=2025-09-30", nil))
	assert.Equal(t, 21, b.Monthly.Window.Total)

	holidays := decode[map[string][]HolidayDTO](t, do(t, router, http.MethodGet, "/api/holidays", nil))
	require.Len(t, holidays["holidays"], 1)
	assert.Equal(t, "2025-09-10", holidays["holidays"][0].Date)
}

func TestProgress_SeptemberTeam(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	rec := do(t, router, http.MethodGet, "/api/reps/dana/progress?year=2025&month=9&today=2025-10-01", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"2025-09"`)
}

// =============================================================================
// SNAPSHOTS AND MONTH CLOSE
// =============================================================================

func TestCreateSnapshot_OpenMonthRejected(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	rec := do(t, router, http.MethodPost, "/api/reps/dana/snapshots?year=2025&month=9&today=2025-09-15", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestCreateSnapshot_ClosedMonth(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	rec := do(t, router, http.MethodPost, "/api/reps/dana/snapshots?year=2025&month=9&today=2025-10-01", nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[SnapshotDTO](t, rec)
	assert.Equal(t, "2025-09", snap.Month)
	assert.Equal(t, "manual", snap.Reason)
	assertAmount(t, 16580, snap.Total.Value, "total")
}

func TestCloseMonth_Idempotent(t *testing.T) {
	// GIVEN: Three reps and a clock on October 1st
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	// WHEN: Closing the previous month twice
	first := do(t, router, http.MethodPost, "/api/admin/close", nil)
	second := do(t, router, http.MethodPost, "/api/admin/close", nil)

	// THEN: One completed run, one snapshot per rep
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	run := decode[CloseRunDTO](t, first)
	assert.Equal(t, "2025-09", run.Month)
	assert.Equal(t, sqlite.CloseCompleted, run.Status)
	assert.Equal(t, 3, run.Reps)
	assert.Equal(t, 3, run.Snapshots)

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, run.ID, decode[CloseRunDTO](t, second).ID)

	runs := decode[map[string][]CloseRunDTO](t, do(t, router, http.MethodGet, "/api/admin/close-runs", nil))
	assert.Len(t, runs["runs"], 1)

	snaps := decode[[]SnapshotDTO](t, do(t, router, http.MethodGet, "/api/reps/dana/snapshots", nil))
	require.Len(t, snaps, 1)
	assertAmount(t, 16580, snaps[0].Total.Value, "total")

	// AND: A forced re-close replaces snapshots rather than adding
	forced := do(t, router, http.MethodPost, "/api/admin/close?year=2025&month=9&force=true", nil)
	require.Equal(t, http.StatusOK, forced.Code, forced.Body.String())
	assert.Len(t, decode[[]SnapshotDTO](t, do(t, router, http.MethodGet, "/api/reps/dana/snapshots", nil)), 1)
}

func TestCloseMonth_CurrentMonthRejected(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	rec := do(t, router, http.MethodPost, "/api/admin/close?year=2025&month=10", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

// =============================================================================
// PLANS AND OVERVIEW
// =============================================================================

func TestCreatePlan_Activate(t *testing.T) {
	// GIVEN: The previous revision, without the affiliate override
	h, router := setupTestHandler(t)
	loadScenario(t, router, "affiliate-override")
	preset, ok := commission.PresetJSON(commission.PlanIDTiered2025)
	require.True(t, ok)

	// WHEN: Registering and activating it
	rec := do(t, router, http.MethodPost, "/api/plans?activate=true", preset)

	// THEN: It's stored, active and prices affiliates at the AFF base
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decode[PlanDTO](t, rec)
	assert.Equal(t, commission.PlanIDTiered2025, plan.ID)
	assert.True(t, plan.Active)
	assert.Equal(t, commission.PlanIDTiered2025, h.ActivePlan().ID)

	deals := decode[[]DealDTO](t, do(t, router, http.MethodGet, "/api/reps/avi/deals", nil))
	for _, d := range deals {
		if d.TrafficSource == commission.SourceAFF && d.InitialDeposit.Equal(decimal.NewFromInt(10000)) {
			assertAmount(t, 1200, d.Bonus.Value, "bonus without override")
		}
	}

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/plans/"+commission.PlanIDTiered2025, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/plans/plan-1999", nil).Code)
}

func TestCreatePlan_Invalid(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/plans", `{"id": "broken", "deal_rules": {"type": "nope"}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestOverview_SeptemberTeam(t *testing.T) {
	_, router := setupTestHandler(t)
	loadScenario(t, router, "september-team")

	rec := do(t, router, http.MethodGet, "/api/admin/overview?year=2025&month=9&today=2025-10-01", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o := decode[commission.Overview](t, rec)
	assert.Equal(t, 3, o.Reps)
	assert.Len(t, o.Rows, 3)
	assert.GreaterOrEqual(t, o.RepsOnTarget, 1)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_LoadAndReset(t *testing.T) {
	_, router := setupTestHandler(t)

	for _, s := range scenarios {
		loadScenario(t, router, s.ID)
		current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
		assert.Equal(t, s.ID, current.ID)
	}

	unknown := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, unknown.Code)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/reset", nil).Code)
	reps := decode[[]RepDTO](t, do(t, router, http.MethodGet, "/api/reps", nil))
	assert.Empty(t, reps)
	assert.True(t, strings.HasPrefix(do(t, router, http.MethodGet, "/api/scenarios/current", nil).Body.String(), "null"))
}
