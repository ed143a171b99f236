package generic

import (
	"context"
	"time"
)

// =============================================================================
// SNAPSHOT - Frozen compensation result for a closed month
// =============================================================================

// Snapshot captures a computed result for one rep and one month.
// Used for:
//   - Payroll (the figure that was actually paid)
//   - Audit trail (which plan produced it, when)
//   - Fast reads of closed months
//
// The payload is the domain's serialized breakdown; generic only stores it.
type Snapshot struct {
	ID      string
	RepID   RepID
	Month   MonthKey
	PlanID  string
	TakenAt time.Time
	Total   Money
	Payload []byte
	Reason  SnapshotReason
}

type SnapshotReason string

const (
	SnapshotPeriodClose SnapshotReason = "period_close" // Scheduled month close
	SnapshotManual      SnapshotReason = "manual"       // Admin triggered
)

// =============================================================================
// SNAPSHOT STORE - Persistence for snapshots
// =============================================================================

type SnapshotStore interface {
	// SaveSnapshot stores a snapshot, replacing any existing one for the same rep and month.
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error

	// GetSnapshot returns nil, nil when no snapshot exists.
	GetSnapshot(ctx context.Context, repID RepID, month MonthKey) (*Snapshot, error)

	// ListSnapshots returns a rep's snapshots, newest month first.
	ListSnapshots(ctx context.Context, repID RepID) ([]Snapshot, error)
}
