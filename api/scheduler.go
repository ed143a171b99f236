/*
scheduler.go - Automated month close

PURPOSE:
  Once a month is over, payroll needs the figure that was actually paid.
  The close freezes every rep's breakdown for the previous month as a
  snapshot and records a close run for audit and UI display.

DESIGN:
  - Cron-driven (robfig/cron, seconds field first), in the business time zone
  - Default spec "0 5 0 1 * *": 00:05 on the first of every month
  - Closing a month that already has a completed run is skipped unless forced
  - One rep failing doesn't stop the others; the run is marked failed with
    the first error and the rest are still snapshotted
  - POST /api/admin/close runs the same code on demand

USAGE:
  scheduler, err := NewCloseScheduler(handler, "0 5 0 1 * *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerClose endpoint (manual close)
  - generic/snapshot.go: Snapshot type
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
	"github.com/warp/commission-engine/store/sqlite"
)

// CloseScheduler runs the month close on a cron schedule.
type CloseScheduler struct {
	Handler *Handler
	Spec    string

	cron *cron.Cron
}

// NewCloseScheduler creates a scheduler firing on spec in the handler's time zone.
func NewCloseScheduler(h *Handler, spec string) (*CloseScheduler, error) {
	cs := &CloseScheduler{
		Handler: h,
		Spec:    spec,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(h.location())),
	}
	if _, err := cs.cron.AddFunc(spec, cs.RunNow); err != nil {
		return nil, fmt.Errorf("register close task %q: %w", spec, err)
	}
	return cs, nil
}

// Start begins the scheduler.
func (cs *CloseScheduler) Start() {
	cs.cron.Start()
	log.Printf("[Scheduler] Started with spec %q", cs.Spec)
}

// Stop stops the scheduler and waits for a running close to finish.
func (cs *CloseScheduler) Stop() {
	<-cs.cron.Stop().Done()
	log.Println("[Scheduler] Stopped")
}

// NextRun returns when the close will fire next.
func (cs *CloseScheduler) NextRun() time.Time {
	entries := cs.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow closes the previous month.
func (cs *CloseScheduler) RunNow() {
	today := cs.Handler.today()
	month := generic.MonthKey{Year: today.Year(), Month: today.Month()}.Prev()

	log.Printf("[Scheduler] Closing %s", month)

	run, err := cs.Handler.CloseMonth(context.Background(), month, generic.SnapshotPeriodClose, false)
	if err != nil {
		log.Printf("[Scheduler] Close %s failed: %v", month, err)
		return
	}
	log.Printf("[Scheduler] Close %s %s: %d reps, %d snapshots", month, run.Status, run.Reps, run.Snapshots)
}

// CloseMonth snapshots every rep's breakdown for a closed month and records
// the run. A month with a completed run is returned as is unless force is set.
func (h *Handler) CloseMonth(ctx context.Context, month generic.MonthKey, reason generic.SnapshotReason, force bool) (sqlite.CloseRun, error) {
	today := h.today()
	if status := month.Period().StatusAt(today); status != generic.PeriodClosed {
		return sqlite.CloseRun{}, fmt.Errorf("%w: %s is %s on %s", generic.ErrPeriodNotClosed, month, status, today)
	}

	if !force {
		done, err := h.Store.IsCloseComplete(ctx, month)
		if err != nil {
			return sqlite.CloseRun{}, err
		}
		if done {
			existing, err := h.Store.GetCloseRun(ctx, month)
			if err != nil || existing == nil {
				return sqlite.CloseRun{}, err
			}
			log.Printf("[Scheduler] %s already closed, skipping", month)
			return *existing, nil
		}
	}

	// One run row per month; a re-close keeps its ID.
	runID := uuid.NewString()
	if existing, err := h.Store.GetCloseRun(ctx, month); err != nil {
		return sqlite.CloseRun{}, err
	} else if existing != nil {
		runID = existing.ID
	}

	engine, err := h.engine(ctx)
	if err != nil {
		return sqlite.CloseRun{}, err
	}

	startTime := h.Now()
	run := sqlite.CloseRun{
		ID:        runID,
		Month:     month,
		PlanID:    engine.Engine.Plan.ID,
		Status:    sqlite.CloseRunning,
		StartedAt: &startTime,
		CreatedAt: startTime,
	}
	if err := h.Store.SaveCloseRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	profiles, err := h.Store.ListProfiles(ctx)
	if err != nil {
		return h.failRun(ctx, run, err)
	}

	pc := commission.PeriodContext{Today: today, Month: month}
	var firstErr error
	for _, p := range profiles {
		run.Reps++
		if _, err := h.snapshotRep(ctx, engine, p.RepID, pc, reason); err != nil {
			log.Printf("[Scheduler] Snapshot %s/%s failed: %v", p.RepID, month, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("rep %s: %w", p.RepID, err)
			}
			continue
		}
		run.Snapshots++
	}
	if firstErr != nil {
		return h.failRun(ctx, run, firstErr)
	}

	completedTime := h.Now()
	run.Status = sqlite.CloseCompleted
	run.CompletedAt = &completedTime
	if err := h.Store.SaveCloseRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to update run record: %w", err)
	}
	return run, nil
}

// failRun records a failed run. The returned error is nil once the failure
// is recorded; callers read it from run.Error.
func (h *Handler) failRun(ctx context.Context, run sqlite.CloseRun, cause error) (sqlite.CloseRun, error) {
	completedTime := h.Now()
	run.Status = sqlite.CloseFailed
	run.Error = cause.Error()
	run.CompletedAt = &completedTime
	if err := h.Store.SaveCloseRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to update run record: %w", err)
	}
	return run, nil
}
