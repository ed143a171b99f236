package commission

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// PROGRESS VIEW - Quota progress derived from a breakdown
// =============================================================================

// Progress is the quota progress shown to a rep: per period, per track,
// the count against target with a capped percentage for progress bars.
type Progress struct {
	RepID     generic.RepID  `json:"rep_id"`
	Today     string         `json:"today"`
	Monthly   PeriodProgress `json:"monthly"`
	Quarterly PeriodProgress `json:"quarterly"`
}

// PeriodProgress is one period of the progress view.
type PeriodProgress struct {
	Key       string               `json:"key"`
	Status    generic.PeriodStatus `json:"status"`
	HasTarget bool                 `json:"has_target"`
	Active    bool                 `json:"active"`

	General TrackProgress `json:"general"`
	CFD     TrackProgress `json:"cfd"`

	WorkdaysElapsed   int `json:"workdays_elapsed"`
	WorkdaysRemaining int `json:"workdays_remaining"`

	// Bonus is the achievement bonus earned so far, accelerator included.
	Bonus          generic.Money `json:"bonus"`
	ProjectedBonus generic.Money `json:"projected_bonus"`
}

// TrackProgress is one track of the progress view.
type TrackProgress struct {
	Count          int             `json:"count"`
	Target         int             `json:"target"`
	Percent        decimal.Decimal `json:"percent"`
	DisplayPercent decimal.Decimal `json:"display_percent"`
	Achieved       bool            `json:"achieved"`
	Projected      int             `json:"projected"`

	// Missing is how many more new clients reach 100%.
	Missing int `json:"missing"`
}

// ProgressOf extracts the progress view from a breakdown.
func ProgressOf(b *Breakdown) Progress {
	return Progress{
		RepID:     b.RepID,
		Today:     b.Today,
		Monthly:   periodProgress(b.Monthly),
		Quarterly: periodProgress(b.Quarterly),
	}
}

func periodProgress(a PeriodAchievement) PeriodProgress {
	return PeriodProgress{
		Key:               a.Key,
		Status:            a.Status,
		HasTarget:         a.HasTarget,
		Active:            a.Active,
		General:           trackProgress(a.General),
		CFD:               trackProgress(a.CFD),
		WorkdaysElapsed:   a.Window.Elapsed,
		WorkdaysRemaining: a.Window.Remaining,
		Bonus:             a.Bonus,
		ProjectedBonus:    a.ProjectedBonus,
	}
}

func trackProgress(t TrackResult) TrackProgress {
	missing := t.Target - t.Actual
	if missing < 0 {
		missing = 0
	}
	return TrackProgress{
		Count:          t.Actual,
		Target:         t.Target,
		Percent:        t.Percent,
		DisplayPercent: t.DisplayPercent,
		Achieved:       t.Achieved,
		Projected:      t.Projected,
		Missing:        missing,
	}
}
