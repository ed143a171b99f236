/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific defaults (is_new_client, created_at)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Reps:       RepDTO, CreateRepRequest, UpdateRepRequest
  Deals:      DealDTO, CreateDealRequest
  Targets:    MonthlyTargetRequest, QuarterlyTargetRequest
  KPIs:       KpiRequest
  Plans:      PlanDTO (wraps factory.PlanJSON)
  Snapshots:  SnapshotDTO
  Close runs: CloseRunDTO
  Holidays:   HolidayDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs are pure data carriers. Handlers convert them into commission types
  and run the commission validators, so the API and the engine share one
  set of rules.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON type
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// REPS
// =============================================================================

// RepDTO represents a rep profile in API responses.
type RepDTO struct {
	ID              string          `json:"id"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email,omitempty"`
	BaseSalary      decimal.Decimal `json:"base_salary"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
}

// CreateRepRequest is the request to create a rep profile.
type CreateRepRequest struct {
	ID              string          `json:"id"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email"`
	BaseSalary      decimal.Decimal `json:"base_salary"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
}

// UpdateRepRequest changes pay configuration. Omitted fields keep their value.
type UpdateRepRequest struct {
	FullName        *string          `json:"full_name"`
	Email           *string          `json:"email"`
	BaseSalary      *decimal.Decimal `json:"base_salary"`
	DeductionAmount *decimal.Decimal `json:"deduction_amount"`
}

func toRepDTO(p commission.Profile) RepDTO {
	return RepDTO{
		ID:              string(p.RepID),
		FullName:        p.FullName,
		Email:           p.Email,
		BaseSalary:      p.BaseSalary,
		DeductionAmount: p.DeductionAmount,
	}
}

// =============================================================================
// DEALS
// =============================================================================

// DealDTO represents a deal in API responses, priced under the active plan.
type DealDTO struct {
	commission.Deal
	Bonus generic.Money `json:"bonus"`
}

// CreateDealRequest is the request to log a deal. IsNewClient defaults to
// true and CreatedAt to the current time.
type CreateDealRequest struct {
	ID                   string          `json:"id"`
	ClientType           string          `json:"client_type"`
	TrafficSource        string          `json:"traffic_source"`
	InitialDeposit       decimal.Decimal `json:"initial_deposit"`
	IsNewClient          *bool           `json:"is_new_client"`
	CreatedAt            string          `json:"created_at"`
	ClientName           string          `json:"client_name"`
	ClientPhone          string          `json:"client_phone"`
	ClientLink           string          `json:"client_link"`
	Campaign             string          `json:"campaign"`
	AffiliateName        string          `json:"affiliate_name"`
	Notes                string          `json:"notes"`
	CompletedWithin4Days bool            `json:"completed_within_4_days"`
}

func (req CreateDealRequest) toDeal(repID generic.RepID, now time.Time) (commission.Deal, error) {
	created := now
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return commission.Deal{}, err
		}
		created = t
	}
	isNew := true
	if req.IsNewClient != nil {
		isNew = *req.IsNewClient
	}
	return commission.Deal{
		ID:                   generic.DealID(req.ID),
		RepID:                repID,
		ClientType:           commission.ClientType(req.ClientType),
		TrafficSource:        commission.TrafficSource(req.TrafficSource),
		InitialDeposit:       req.InitialDeposit,
		IsNewClient:          isNew,
		CreatedAt:            created,
		ClientName:           req.ClientName,
		ClientPhone:          req.ClientPhone,
		ClientLink:           req.ClientLink,
		Campaign:             req.Campaign,
		AffiliateName:        req.AffiliateName,
		Notes:                req.Notes,
		CompletedWithin4Days: req.CompletedWithin4Days,
	}, nil
}

// =============================================================================
// TARGETS AND KPIS
// =============================================================================

// MonthlyTargetRequest upserts a rep's target for one month.
type MonthlyTargetRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	commission.TargetAmounts
}

// QuarterlyTargetRequest upserts a rep's target for one quarter.
type QuarterlyTargetRequest struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
	commission.TargetAmounts
}

// KpiRequest upserts a rep's KPI flags for one month.
type KpiRequest struct {
	Year             int  `json:"year"`
	Month            int  `json:"month"`
	AvgCallTimeMet   bool `json:"avg_call_time_minutes"`
	AvgCallsCountMet bool `json:"avg_calls_count"`
	PPCConversionMet bool `json:"ppc_conversion_rate"`
	AFFConversionMet bool `json:"aff_conversion_rate"`
	ExcellenceScore  int  `json:"work_excellence"`
}

// =============================================================================
// PLANS
// =============================================================================

// PlanDTO represents a stored plan in API responses.
type PlanDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Config    factory.PlanJSON `json:"config"`
	Version   int              `json:"version"`
	Active    bool             `json:"active"`
	CreatedAt string           `json:"created_at,omitempty"`
}

// =============================================================================
// SNAPSHOTS AND CLOSE RUNS
// =============================================================================

// SnapshotDTO represents a frozen breakdown.
type SnapshotDTO struct {
	ID        string          `json:"id"`
	RepID     string          `json:"rep_id"`
	Month     string          `json:"month"`
	PlanID    string          `json:"plan_id"`
	Total     generic.Money   `json:"total"`
	Reason    string          `json:"reason"`
	TakenAt   string          `json:"taken_at"`
	Breakdown json.RawMessage `json:"breakdown"`
}

func toSnapshotDTO(s generic.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:        s.ID,
		RepID:     string(s.RepID),
		Month:     s.Month.String(),
		PlanID:    s.PlanID,
		Total:     s.Total,
		Reason:    string(s.Reason),
		TakenAt:   s.TakenAt.Format(time.RFC3339),
		Breakdown: json.RawMessage(s.Payload),
	}
}

// CloseRunDTO represents one month-close execution.
type CloseRunDTO struct {
	ID          string `json:"id"`
	Month       string `json:"month"`
	PlanID      string `json:"plan_id"`
	Status      string `json:"status"`
	Reps        int    `json:"reps"`
	Snapshots   int    `json:"snapshots"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toCloseRunDTO(r sqlite.CloseRun) CloseRunDTO {
	dto := CloseRunDTO{
		ID:        r.ID,
		Month:     r.Month.String(),
		PlanID:    r.PlanID,
		Status:    r.Status,
		Reps:      r.Reps,
		Snapshots: r.Snapshots,
		Error:     r.Error,
	}
	if r.StartedAt != nil {
		dto.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a company holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
