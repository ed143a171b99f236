/*
handlers.go - HTTP API handlers for the compensation engine

PURPOSE:
  Exposes the compensation engine via REST API. Handles HTTP
  request/response, JSON serialization, loads engine input from the store
  and delegates all pay math to the commission package.

ENDPOINTS:
  Reps:
    GET    /api/reps                          List reps
    POST   /api/reps                          Create rep profile
    GET    /api/reps/{id}                     Get rep profile
    PUT    /api/reps/{id}                     Update salary / deduction

  Deals:
    GET    /api/reps/{id}/deals               List (optional ?year&month)
    POST   /api/reps/{id}/deals               Log a deal
    DELETE /api/deals/{id}                    Delete a deal

  Targets and KPIs:
    GET/PUT /api/reps/{id}/targets/monthly    Monthly quota
    GET/PUT /api/reps/{id}/targets/quarterly  Quarterly quota
    GET/PUT /api/reps/{id}/kpis               Monthly KPI flags

  Compensation:
    GET    /api/reps/{id}/breakdown?year&month[&today]  Full breakdown
    GET    /api/reps/{id}/progress?year&month[&today]   Progress view
    GET    /api/reps/{id}/snapshots           Frozen breakdowns
    POST   /api/reps/{id}/snapshots?year&month Freeze a closed month

  Plans:
    GET    /api/plans                         List stored plans
    POST   /api/plans                         Register plan JSON
    GET    /api/plans/{id}                    Get one plan

  Admin:
    GET    /api/admin/overview?year&month     Team table
    POST   /api/admin/close?year&month        Run month close now
    GET    /api/admin/close-runs              Close run history

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - PlanFactory: JSON to Plan conversion
  - Cache: Optional breakdown cache (memory or Redis)
  - The active plan, swapped atomically when a new one is activated

REQUEST FLOW:
  1. Parse HTTP request (period from ?year&month, reference day from ?today)
  2. Load profile, quarter deals, targets and KPI row from the store
  3. Compute through the cached engine (which validates first)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON {error, details}:
  - 400: Validation errors, invalid input, open period
  - 404: Rep, deal or plan not found
  - 409: Duplicate rep
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Month close
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	PlanFactory *factory.PlanFactory

	// Cache memoizes breakdowns. Nil disables memoization.
	Cache    generic.Cache
	CacheTTL time.Duration

	// Calendar overrides from configuration. Nil keeps the plan's own.
	Location *time.Location
	WorkWeek *generic.WorkWeek

	// Now is the clock for requests that don't pin ?today.
	Now func() time.Time

	mu   sync.RWMutex
	plan *commission.Plan

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store. The canonical
// built-in plan is active until ActivatePlan is called.
func NewHandler(store *sqlite.Store) *Handler {
	plan := commission.Plan2025Affiliate()
	return &Handler{
		Store:       store,
		PlanFactory: factory.NewPlanFactory(),
		Now:         time.Now,
		plan:        &plan,
	}
}

// ActivatePlan makes the plan with the given ID active. Stored plans win;
// built-in presets are stored on first activation.
func (h *Handler) ActivatePlan(ctx context.Context, id string) error {
	record, err := h.Store.GetPlan(ctx, id)
	if err != nil {
		return err
	}

	var configJSON string
	if record != nil {
		configJSON = record.ConfigJSON
	} else {
		preset, ok := commission.PresetJSON(id)
		if !ok {
			return fmt.Errorf("%w: plan %s", generic.ErrNotFound, id)
		}
		configJSON = preset
	}

	plan, err := h.PlanFactory.ParsePlan(configJSON)
	if err != nil {
		return err
	}

	if record == nil {
		if err := h.Store.SavePlan(ctx, sqlite.PlanRecord{
			ID:         plan.ID,
			Name:       plan.Name,
			ConfigJSON: configJSON,
			Version:    plan.Version,
		}); err != nil {
			return err
		}
	} else if record.Version > plan.Version {
		// Re-saved documents bump the stored version; use it so cached
		// breakdowns of the previous content are never served.
		plan.Version = record.Version
	}

	h.mu.Lock()
	h.plan = plan
	h.mu.Unlock()
	return nil
}

// ActivePlan returns the plan used for computations.
func (h *Handler) ActivePlan() *commission.Plan {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.plan
}

// engine builds a cached engine over the active plan with configured
// calendar overrides and stored holidays applied.
func (h *Handler) engine(ctx context.Context) (*commission.CachedEngine, error) {
	plan := *h.ActivePlan()
	if h.Location != nil {
		plan.Location = h.Location
	}
	if h.WorkWeek != nil {
		plan.WorkWeek = *h.WorkWeek
	}

	stored, err := h.Store.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	plan.Holidays = generic.MergeHolidays(plan.Holidays, stored)

	return commission.NewCachedEngine(commission.NewEngine(plan), h.Cache, h.CacheTTL), nil
}

func (h *Handler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	if loc := h.ActivePlan().Location; loc != nil {
		return loc
	}
	return time.UTC
}

// today is the current calendar day in the business time zone.
func (h *Handler) today() generic.TimePoint {
	return generic.DayOf(h.Now(), h.location())
}

// =============================================================================
// INPUT LOADING
// =============================================================================

// periodFromQuery reads ?year&month (default: the month of today) and
// ?today (default: the current day).
func (h *Handler) periodFromQuery(r *http.Request) (commission.PeriodContext, error) {
	q := r.URL.Query()

	today := h.today()
	if v := q.Get("today"); v != "" {
		d, err := generic.ParseDay(v)
		if err != nil {
			return commission.PeriodContext{}, fmt.Errorf("%w: today %q (use YYYY-MM-DD)", generic.ErrInvalidInput, v)
		}
		today = d
	}

	month, err := monthFromQuery(r, today)
	if err != nil {
		return commission.PeriodContext{}, err
	}
	return commission.PeriodContext{Today: today, Month: month}, nil
}

func monthFromQuery(r *http.Request, fallback generic.TimePoint) (generic.MonthKey, error) {
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		return generic.MonthKey{Year: fallback.Year(), Month: fallback.Month()}, nil
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return generic.MonthKey{}, fmt.Errorf("%w: year %q", generic.ErrInvalidPeriod, q.Get("year"))
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		return generic.MonthKey{}, fmt.Errorf("%w: month %q", generic.ErrInvalidPeriod, q.Get("month"))
	}
	return generic.NewMonthKey(year, month)
}

// dayRange converts an inclusive day period into the [from, to) instants
// bounding it in loc.
func dayRange(p generic.Period, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(p.End.Year(), p.End.Month(), p.End.Day()+1, 0, 0, 0, 0, loc)
	return from, to
}

// loadInput gathers everything the engine reads for one rep and month.
// Deals cover the whole quarter so quarterly counts see every month.
func (h *Handler) loadInput(ctx context.Context, repID generic.RepID, pc commission.PeriodContext) (commission.BreakdownInput, error) {
	profile, err := h.Store.GetProfile(ctx, repID)
	if err != nil {
		return commission.BreakdownInput{}, err
	}

	from, to := dayRange(pc.Month.Quarter().Period(), h.location())
	deals, err := h.Store.ListDeals(ctx, repID, from, to)
	if err != nil {
		return commission.BreakdownInput{}, err
	}

	monthly, err := h.Store.GetMonthlyTarget(ctx, repID, pc.Month)
	if err != nil {
		return commission.BreakdownInput{}, err
	}
	quarterly, err := h.Store.GetQuarterlyTarget(ctx, repID, pc.Month.Quarter())
	if err != nil {
		return commission.BreakdownInput{}, err
	}
	kpi, err := h.Store.GetKpi(ctx, repID, pc.Month)
	if err != nil {
		return commission.BreakdownInput{}, err
	}

	return commission.BreakdownInput{
		Profile:         *profile,
		Deals:           deals,
		MonthlyTarget:   monthly,
		QuarterlyTarget: quarterly,
		KPI:             kpi,
		Context:         pc,
	}, nil
}

func (h *Handler) computeBreakdown(ctx context.Context, engine *commission.CachedEngine, repID generic.RepID, pc commission.PeriodContext) (*commission.Breakdown, error) {
	in, err := h.loadInput(ctx, repID, pc)
	if err != nil {
		return nil, err
	}
	return engine.Compute(ctx, in)
}

// =============================================================================
// REP HANDLERS
// =============================================================================

// ListReps returns all rep profiles.
func (h *Handler) ListReps(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reps", err)
		return
	}

	dtos := make([]RepDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = toRepDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRep returns a single rep profile.
func (h *Handler) GetRep(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProfile(r.Context(), generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get rep", err)
		return
	}
	writeJSON(w, http.StatusOK, toRepDTO(*p))
}

// CreateRep creates a new rep profile.
func (h *Handler) CreateRep(w http.ResponseWriter, r *http.Request) {
	var req CreateRepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := commission.Profile{
		RepID:           generic.RepID(req.ID),
		FullName:        req.FullName,
		Email:           req.Email,
		BaseSalary:      req.BaseSalary,
		DeductionAmount: req.DeductionAmount,
	}
	if err := commission.ValidateProfile(p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rep", err)
		return
	}

	if err := h.Store.CreateProfile(r.Context(), p); err != nil {
		writeDomainError(w, "Failed to create rep", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepDTO(p))
}

// UpdateRep changes a rep's pay configuration.
func (h *Handler) UpdateRep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpdateRepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Store.GetProfile(ctx, generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get rep", err)
		return
	}

	if req.FullName != nil {
		p.FullName = *req.FullName
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.BaseSalary != nil {
		p.BaseSalary = *req.BaseSalary
	}
	if req.DeductionAmount != nil {
		p.DeductionAmount = *req.DeductionAmount
	}
	if err := commission.ValidateProfile(*p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rep", err)
		return
	}

	if err := h.Store.SaveProfile(ctx, *p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update rep", err)
		return
	}
	writeJSON(w, http.StatusOK, toRepDTO(*p))
}

// =============================================================================
// DEAL HANDLERS
// =============================================================================

// ListDeals returns a rep's deals, optionally limited to ?year&month.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	repID := generic.RepID(chi.URLParam(r, "id"))

	var from, to time.Time
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		month, err := monthFromQuery(r, h.today())
		if err != nil {
			writeDomainError(w, "Invalid period", err)
			return
		}
		from, to = dayRange(month.Period(), h.location())
	}

	deals, err := h.Store.ListDeals(ctx, repID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deals", err)
		return
	}

	engine := commission.NewEngine(*h.ActivePlan())
	dtos := make([]DealDTO, len(deals))
	for i, d := range deals {
		dtos[i] = DealDTO{Deal: d, Bonus: engine.DealBonus(d)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDeal logs a deal for a rep.
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	repID := generic.RepID(chi.URLParam(r, "id"))

	var req CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deal, err := req.toDeal(repID, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid created_at format (use RFC 3339)", err)
		return
	}
	if err := commission.ValidateDeal(deal); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deal", err)
		return
	}

	deal.ID, err = h.Store.SaveDeal(r.Context(), deal)
	if err != nil {
		writeDomainError(w, "Failed to save deal", err)
		return
	}

	bonus := commission.NewEngine(*h.ActivePlan()).DealBonus(deal)
	writeJSON(w, http.StatusCreated, DealDTO{Deal: deal, Bonus: bonus})
}

// DeleteDeal removes a deal.
func (h *Handler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDeal(r.Context(), generic.DealID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete deal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// TARGET AND KPI HANDLERS
// =============================================================================

// ListMonthlyTargets returns a rep's monthly targets.
func (h *Handler) ListMonthlyTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.Store.ListMonthlyTargets(r.Context(), generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list targets", err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// PutMonthlyTarget upserts a rep's target for one month.
func (h *Handler) PutMonthlyTarget(w http.ResponseWriter, r *http.Request) {
	var req MonthlyTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t := commission.MonthlyTarget{
		RepID:         generic.RepID(chi.URLParam(r, "id")),
		Year:          req.Year,
		Month:         req.Month,
		TargetAmounts: req.TargetAmounts,
	}
	if err := commission.ValidateMonthlyTarget(t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target", err)
		return
	}

	id, err := h.Store.SaveMonthlyTarget(r.Context(), t)
	if err != nil {
		writeDomainError(w, "Failed to save target", err)
		return
	}
	t.ID = id
	writeJSON(w, http.StatusOK, t)
}

// ListQuarterlyTargets returns a rep's quarterly targets.
func (h *Handler) ListQuarterlyTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.Store.ListQuarterlyTargets(r.Context(), generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list targets", err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// PutQuarterlyTarget upserts a rep's target for one quarter.
func (h *Handler) PutQuarterlyTarget(w http.ResponseWriter, r *http.Request) {
	var req QuarterlyTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t := commission.QuarterlyTarget{
		RepID:         generic.RepID(chi.URLParam(r, "id")),
		Year:          req.Year,
		Quarter:       req.Quarter,
		TargetAmounts: req.TargetAmounts,
	}
	if err := commission.ValidateQuarterlyTarget(t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target", err)
		return
	}

	id, err := h.Store.SaveQuarterlyTarget(r.Context(), t)
	if err != nil {
		writeDomainError(w, "Failed to save target", err)
		return
	}
	t.ID = id
	writeJSON(w, http.StatusOK, t)
}

// ListKpis returns a rep's KPI rows.
func (h *Handler) ListKpis(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.Store.ListKpis(r.Context(), generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list KPIs", err)
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

// PutKpi upserts a rep's KPI flags for one month.
func (h *Handler) PutKpi(w http.ResponseWriter, r *http.Request) {
	var req KpiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	k := commission.KpiRecord{
		RepID:            generic.RepID(chi.URLParam(r, "id")),
		Year:             req.Year,
		Month:            req.Month,
		AvgCallTimeMet:   req.AvgCallTimeMet,
		AvgCallsCountMet: req.AvgCallsCountMet,
		PPCConversionMet: req.PPCConversionMet,
		AFFConversionMet: req.AFFConversionMet,
		ExcellenceScore:  req.ExcellenceScore,
	}
	if err := commission.ValidateKpi(k); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid KPI", err)
		return
	}

	if err := h.Store.SaveKpi(r.Context(), k); err != nil {
		writeDomainError(w, "Failed to save KPI", err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// =============================================================================
// COMPENSATION HANDLERS
// =============================================================================

// GetBreakdown computes a rep's breakdown for a month.
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	b, ok := h.breakdownFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GetProgress returns the progress view of a rep's month and quarter.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	b, ok := h.breakdownFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, commission.ProgressOf(b))
}

func (h *Handler) breakdownFromRequest(w http.ResponseWriter, r *http.Request) (*commission.Breakdown, bool) {
	ctx := r.Context()

	pc, err := h.periodFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return nil, false
	}

	engine, err := h.engine(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load plan", err)
		return nil, false
	}

	b, err := h.computeBreakdown(ctx, engine, generic.RepID(chi.URLParam(r, "id")), pc)
	if err != nil {
		writeDomainError(w, "Failed to compute breakdown", err)
		return nil, false
	}
	return b, true
}

// ListSnapshots returns a rep's frozen breakdowns, newest first.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Store.ListSnapshots(r.Context(), generic.RepID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = toSnapshotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSnapshot freezes a rep's breakdown for a closed month.
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pc, err := h.periodFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}

	engine, err := h.engine(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load plan", err)
		return
	}

	snap, err := h.snapshotRep(ctx, engine, generic.RepID(chi.URLParam(r, "id")), pc, generic.SnapshotManual)
	if err != nil {
		writeDomainError(w, "Failed to snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// snapshotRep computes and stores one rep's breakdown for a closed month.
func (h *Handler) snapshotRep(ctx context.Context, engine *commission.CachedEngine, repID generic.RepID, pc commission.PeriodContext, reason generic.SnapshotReason) (generic.Snapshot, error) {
	if status := pc.Month.Period().StatusAt(pc.Today); status != generic.PeriodClosed {
		return generic.Snapshot{}, fmt.Errorf("%w: %s is %s on %s", generic.ErrPeriodNotClosed, pc.Month, status, pc.Today)
	}

	b, err := h.computeBreakdown(ctx, engine, repID, pc)
	if err != nil {
		return generic.Snapshot{}, err
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return generic.Snapshot{}, err
	}

	snap := generic.Snapshot{
		RepID:   repID,
		Month:   pc.Month,
		PlanID:  b.PlanID,
		TakenAt: h.Now(),
		Total:   b.Total,
		Payload: payload,
		Reason:  reason,
	}
	if err := h.Store.SaveSnapshot(ctx, snap); err != nil {
		return generic.Snapshot{}, err
	}
	return snap, nil
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all stored plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	active := h.ActivePlan().ID
	dtos := make([]PlanDTO, len(records))
	for i, p := range records {
		dtos[i] = toPlanDTO(p, active)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns a single plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	record, err := h.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(*record, h.ActivePlan().ID))
}

// CreatePlan registers a plan document. ?activate=true makes it active;
// re-registering the active plan reloads it.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req factory.PlanJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Validate by parsing
	plan, err := h.PlanFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid plan configuration", err)
		return
	}

	configJSON, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode plan", err)
		return
	}

	record := sqlite.PlanRecord{
		ID:         plan.ID,
		Name:       plan.Name,
		ConfigJSON: string(configJSON),
		Version:    plan.Version,
	}
	if err := h.Store.SavePlan(ctx, record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}

	if r.URL.Query().Get("activate") == "true" || plan.ID == h.ActivePlan().ID {
		if err := h.ActivatePlan(ctx, plan.ID); err != nil {
			writeDomainError(w, "Failed to activate plan", err)
			return
		}
	}

	stored, err := h.Store.GetPlan(ctx, plan.ID)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(*stored, h.ActivePlan().ID))
}

func toPlanDTO(p sqlite.PlanRecord, activeID string) PlanDTO {
	var config factory.PlanJSON
	json.Unmarshal([]byte(p.ConfigJSON), &config)

	return PlanDTO{
		ID:        p.ID,
		Name:      p.Name,
		Config:    config,
		Version:   p.Version,
		Active:    p.ID == activeID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetOverview returns the team table for a month.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pc, err := h.periodFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}

	engine, err := h.engine(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load plan", err)
		return
	}

	profiles, err := h.Store.ListProfiles(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reps", err)
		return
	}

	rows := make([]commission.RepRow, 0, len(profiles))
	for _, p := range profiles {
		b, err := h.computeBreakdown(ctx, engine, p.RepID, pc)
		if err != nil {
			writeDomainError(w, fmt.Sprintf("Failed to compute breakdown for %s", p.RepID), err)
			return
		}
		rows = append(rows, commission.RepRow{RepID: p.RepID, FullName: p.FullName, Breakdown: b})
	}

	writeJSON(w, http.StatusOK, commission.BuildOverview(pc, engine.Engine.Plan.Currency, rows))
}

// TriggerClose runs the month close now. ?force=true re-closes a month
// that already has a completed run.
func (h *Handler) TriggerClose(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	previous := generic.MonthKey{Year: today.Year(), Month: today.Month()}.Prev()
	month, err := monthFromQuery(r, previous.Period().Start)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}

	run, err := h.CloseMonth(r.Context(), month, generic.SnapshotManual, r.URL.Query().Get("force") == "true")
	if err != nil {
		writeDomainError(w, "Month close failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toCloseRunDTO(run))
}

// ListCloseRuns returns close run history.
// GET /api/admin/close-runs
func (h *Handler) ListCloseRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListCloseRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get close runs", err)
		return
	}

	dtos := make([]CloseRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toCloseRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns all stored holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{
			ID:        hol.ID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a holiday excluded from workday counts.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}

	date, err := generic.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{ID: req.ID, Date: date, Name: req.Name, Recurring: req.Recurring}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created"})
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicate):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
