/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists everything the compensation engine reads (profiles, deals,
  targets, KPI rows, plan documents) and what the surrounding application
  writes after computing (breakdown snapshots, month-close runs). The
  engine itself never touches this package; the API loads a complete
  input from here and hands it over.

INTERFACES IMPLEMENTED:
  generic.SnapshotStore: Breakdown snapshots of closed months

KEY TABLES:
  profiles:           Rep pay configuration (base salary, deduction)
  deals:              Client deals, one row per acquisition
  monthly_targets:    Quota per rep per month (UNIQUE rep+year+month)
  quarterly_targets:  Quota per rep per quarter (UNIQUE rep+year+quarter)
  monthly_kpis:       KPI flags per rep per month (UNIQUE rep+year+month)
  plans:              Plan JSON documents (versioned)
  holidays:           Company holidays excluded from workday counts
  breakdown_snapshots: Frozen breakdowns (UNIQUE rep+year+month)
  close_runs:         Month-close executions (UNIQUE year+month)

TARGET UNIQUENESS:
  At most one target row exists per (rep, period key). Saving a target for
  a key that already has one updates that row in place.

AMOUNTS AND TIMES:
  Decimals are stored as TEXT to keep exact values. Deal timestamps are
  stored in UTC with a fixed-width layout so range queries can compare
  strings.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block.

USAGE:
  store, err := sqlite.New("./data/commission.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/snapshot.go: SnapshotStore interface
  - generic/store/memory.go: In-memory implementation for testing
  - api/handlers.go: Loads engine input from this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

// timeLayout is fixed-width so stored UTC timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.SnapshotStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rep profiles
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		base_salary TEXT NOT NULL DEFAULT '0',
		deduction_amount TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Deals
	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		client_type TEXT NOT NULL,
		traffic_source TEXT NOT NULL,
		initial_deposit TEXT NOT NULL,
		is_new_client BOOLEAN NOT NULL DEFAULT TRUE,
		client_name TEXT,
		client_phone TEXT,
		client_link TEXT,
		campaign TEXT,
		affiliate_name TEXT,
		notes TEXT,
		completed_within_4_days BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Hot path: one rep's deals over a month or quarter
	CREATE INDEX IF NOT EXISTS idx_deals_rep_created
		ON deals(sales_rep_id, created_at);

	-- Monthly targets
	CREATE TABLE IF NOT EXISTS monthly_targets (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		general_target_amount INTEGER NOT NULL,
		cfd_target_amount INTEGER,
		workdays_in_period INTEGER,
		updated_at TEXT NOT NULL,
		UNIQUE(sales_rep_id, year, month)
	);

	-- Quarterly targets
	CREATE TABLE IF NOT EXISTS quarterly_targets (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		general_target_amount INTEGER NOT NULL,
		cfd_target_amount INTEGER,
		workdays_in_period INTEGER,
		updated_at TEXT NOT NULL,
		UNIQUE(sales_rep_id, year, quarter)
	);

	-- Monthly KPIs
	CREATE TABLE IF NOT EXISTS monthly_kpis (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		avg_call_time_minutes BOOLEAN NOT NULL DEFAULT FALSE,
		avg_calls_count BOOLEAN NOT NULL DEFAULT FALSE,
		ppc_conversion_rate BOOLEAN NOT NULL DEFAULT FALSE,
		aff_conversion_rate BOOLEAN NOT NULL DEFAULT FALSE,
		work_excellence INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE(sales_rep_id, year, month)
	);

	-- Plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);

	-- Breakdown snapshots (closed months)
	CREATE TABLE IF NOT EXISTS breakdown_snapshots (
		id TEXT PRIMARY KEY,
		sales_rep_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		plan_id TEXT NOT NULL,
		total_value TEXT NOT NULL,
		currency TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		reason TEXT NOT NULL,
		taken_at TEXT NOT NULL,
		UNIQUE(sales_rep_id, year, month)
	);

	-- Month-close runs
	CREATE TABLE IF NOT EXISTS close_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reps INTEGER DEFAULT 0,
		snapshots INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_close_runs_status
		ON close_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROFILE STORE
// =============================================================================

// CreateProfile inserts a new profile. An existing ID yields generic.ErrDuplicate.
func (s *Store) CreateProfile(ctx context.Context, p commission.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, email, base_salary, deduction_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.RepID), p.FullName, nullString(p.Email),
		p.BaseSalary.String(), p.DeductionAmount.String(), now, now,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: profile %s", generic.ErrDuplicate, p.RepID)
	}
	return err
}

// SaveProfile inserts or updates a profile.
func (s *Store) SaveProfile(ctx context.Context, p commission.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO profiles (id, full_name, email, base_salary, deduction_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			base_salary = excluded.base_salary,
			deduction_amount = excluded.deduction_amount,
			updated_at = excluded.updated_at
	`

	now := nowString()
	_, err := s.db.ExecContext(ctx, query,
		string(p.RepID), p.FullName, nullString(p.Email),
		p.BaseSalary.String(), p.DeductionAmount.String(), now, now,
	)
	return err
}

// GetProfile retrieves a profile by rep ID. Missing profiles return generic.ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, id generic.RepID) (*commission.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, full_name, email, base_salary, deduction_amount FROM profiles WHERE id = ?",
		string(id),
	)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rep %s", generic.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]commission.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, full_name, email, base_salary, deduction_amount FROM profiles ORDER BY full_name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []commission.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile and, through cascades, its deals, targets and KPIs.
func (s *Store) DeleteProfile(ctx context.Context, id generic.RepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", string(id))
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (commission.Profile, error) {
	var p commission.Profile
	var id, base, deduction string
	var email sql.NullString
	if err := row.Scan(&id, &p.FullName, &email, &base, &deduction); err != nil {
		return p, err
	}
	p.RepID = generic.RepID(id)
	p.Email = email.String
	p.BaseSalary = parseDecimal(base)
	p.DeductionAmount = parseDecimal(deduction)
	return p, nil
}

// =============================================================================
// DEAL STORE
// =============================================================================

// SaveDeal inserts or replaces a deal. An empty ID is assigned a new UUID,
// which is returned.
func (s *Store) SaveDeal(ctx context.Context, d commission.Deal) (generic.DealID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = generic.DealID(uuid.NewString())
	}

	query := `
		INSERT INTO deals (id, sales_rep_id, client_type, traffic_source, initial_deposit, is_new_client,
			client_name, client_phone, client_link, campaign, affiliate_name, notes,
			completed_within_4_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_type = excluded.client_type,
			traffic_source = excluded.traffic_source,
			initial_deposit = excluded.initial_deposit,
			is_new_client = excluded.is_new_client,
			client_name = excluded.client_name,
			client_phone = excluded.client_phone,
			client_link = excluded.client_link,
			campaign = excluded.campaign,
			affiliate_name = excluded.affiliate_name,
			notes = excluded.notes,
			completed_within_4_days = excluded.completed_within_4_days,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(d.ID), string(d.RepID), string(d.ClientType), string(d.TrafficSource),
		d.InitialDeposit.String(), d.IsNewClient,
		nullString(d.ClientName), nullString(d.ClientPhone), nullString(d.ClientLink),
		nullString(d.Campaign), nullString(d.AffiliateName), nullString(d.Notes),
		d.CompletedWithin4Days, formatTime(d.CreatedAt),
	)
	if isForeignKeyError(err) {
		return "", fmt.Errorf("%w: rep %s", generic.ErrNotFound, d.RepID)
	}
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// GetDeal retrieves a deal by ID.
func (s *Store) GetDeal(ctx context.Context, id generic.DealID) (*commission.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, dealSelect+" WHERE id = ?", string(id))
	if err != nil {
		return nil, err
	}
	deals, err := scanDeals(rows)
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, fmt.Errorf("%w: deal %s", generic.ErrNotFound, id)
	}
	return &deals[0], nil
}

// ListDeals returns a rep's deals created in [from, to), oldest first.
// Zero bounds are open.
func (s *Store) ListDeals(ctx context.Context, repID generic.RepID, from, to time.Time) ([]commission.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := dealSelect + " WHERE sales_rep_id = ?"
	args := []any{string(repID)}
	if !from.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += " AND created_at < ?"
		args = append(args, formatTime(to))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanDeals(rows)
}

// DeleteDeal removes a deal.
func (s *Store) DeleteDeal(ctx context.Context, id generic.DealID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM deals WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: deal %s", generic.ErrNotFound, id)
	}
	return nil
}

const dealSelect = `
	SELECT id, sales_rep_id, client_type, traffic_source, initial_deposit, is_new_client,
		client_name, client_phone, client_link, campaign, affiliate_name, notes,
		completed_within_4_days, created_at
	FROM deals`

func scanDeals(rows *sql.Rows) ([]commission.Deal, error) {
	defer rows.Close()

	deals := []commission.Deal{}
	for rows.Next() {
		var d commission.Deal
		var id, repID, clientType, source, deposit, createdAt string
		var name, phone, link, campaign, affiliate, notes sql.NullString
		if err := rows.Scan(
			&id, &repID, &clientType, &source, &deposit, &d.IsNewClient,
			&name, &phone, &link, &campaign, &affiliate, &notes,
			&d.CompletedWithin4Days, &createdAt,
		); err != nil {
			return nil, err
		}
		d.ID = generic.DealID(id)
		d.RepID = generic.RepID(repID)
		d.ClientType = commission.ClientType(clientType)
		d.TrafficSource = commission.TrafficSource(source)
		d.InitialDeposit = parseDecimal(deposit)
		d.ClientName = name.String
		d.ClientPhone = phone.String
		d.ClientLink = link.String
		d.Campaign = campaign.String
		d.AffiliateName = affiliate.String
		d.Notes = notes.String
		d.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// =============================================================================
// TARGET STORE
// =============================================================================

// SaveMonthlyTarget upserts the target for (rep, year, month) and returns its ID.
func (s *Store) SaveMonthlyTarget(ctx context.Context, t commission.MonthlyTarget) (string, error) {
	query := `
		INSERT INTO monthly_targets (id, sales_rep_id, year, month, general_target_amount,
			cfd_target_amount, workdays_in_period, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sales_rep_id, year, month) DO UPDATE SET
			general_target_amount = excluded.general_target_amount,
			cfd_target_amount = excluded.cfd_target_amount,
			workdays_in_period = excluded.workdays_in_period,
			updated_at = excluded.updated_at
	`
	return s.saveTarget(ctx, "monthly_targets", "month", query, t.ID, t.RepID, t.Year, t.Month, t.TargetAmounts)
}

// SaveQuarterlyTarget upserts the target for (rep, year, quarter) and returns its ID.
func (s *Store) SaveQuarterlyTarget(ctx context.Context, t commission.QuarterlyTarget) (string, error) {
	query := `
		INSERT INTO quarterly_targets (id, sales_rep_id, year, quarter, general_target_amount,
			cfd_target_amount, workdays_in_period, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sales_rep_id, year, quarter) DO UPDATE SET
			general_target_amount = excluded.general_target_amount,
			cfd_target_amount = excluded.cfd_target_amount,
			workdays_in_period = excluded.workdays_in_period,
			updated_at = excluded.updated_at
	`
	return s.saveTarget(ctx, "quarterly_targets", "quarter", query, t.ID, t.RepID, t.Year, t.Quarter, t.TargetAmounts)
}

func (s *Store) saveTarget(ctx context.Context, table, periodCol, query, id string, repID generic.RepID, year, period int, amounts commission.TargetAmounts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, query,
		id, string(repID), year, period, amounts.GeneralTargetAmount,
		nullInt(amounts.CFDTargetAmount), nullInt(amounts.WorkdaysInPeriod), nowString(),
	)
	if isForeignKeyError(err) {
		return "", fmt.Errorf("%w: rep %s", generic.ErrNotFound, repID)
	}
	if err != nil {
		return "", err
	}

	// On conflict the existing row keeps its ID.
	var stored string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM "+table+" WHERE sales_rep_id = ? AND year = ? AND "+periodCol+" = ?",
		string(repID), year, period,
	).Scan(&stored)
	return stored, err
}

// GetMonthlyTarget returns the target for a month, or nil when none is set.
func (s *Store) GetMonthlyTarget(ctx context.Context, repID generic.RepID, month generic.MonthKey) (*commission.MonthlyTarget, error) {
	targets, err := s.listMonthlyTargets(ctx, " AND year = ? AND month = ?", string(repID), month.Year, int(month.Month))
	if err != nil || len(targets) == 0 {
		return nil, err
	}
	return &targets[0], nil
}

// ListMonthlyTargets returns all monthly targets of a rep, newest first.
func (s *Store) ListMonthlyTargets(ctx context.Context, repID generic.RepID) ([]commission.MonthlyTarget, error) {
	return s.listMonthlyTargets(ctx, "", string(repID))
}

func (s *Store) listMonthlyTargets(ctx context.Context, where string, args ...any) ([]commission.MonthlyTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sales_rep_id, year, month, general_target_amount, cfd_target_amount, workdays_in_period
		FROM monthly_targets WHERE sales_rep_id = ?`+where+` ORDER BY year DESC, month DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := []commission.MonthlyTarget{}
	for rows.Next() {
		var t commission.MonthlyTarget
		var repID string
		var cfd, workdays sql.NullInt64
		if err := rows.Scan(&t.ID, &repID, &t.Year, &t.Month, &t.GeneralTargetAmount, &cfd, &workdays); err != nil {
			return nil, err
		}
		t.RepID = generic.RepID(repID)
		t.CFDTargetAmount = intPtr(cfd)
		t.WorkdaysInPeriod = intPtr(workdays)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetQuarterlyTarget returns the target for a quarter, or nil when none is set.
func (s *Store) GetQuarterlyTarget(ctx context.Context, repID generic.RepID, quarter generic.QuarterKey) (*commission.QuarterlyTarget, error) {
	targets, err := s.listQuarterlyTargets(ctx, " AND year = ? AND quarter = ?", string(repID), quarter.Year, quarter.Quarter)
	if err != nil || len(targets) == 0 {
		return nil, err
	}
	return &targets[0], nil
}

// ListQuarterlyTargets returns all quarterly targets of a rep, newest first.
func (s *Store) ListQuarterlyTargets(ctx context.Context, repID generic.RepID) ([]commission.QuarterlyTarget, error) {
	return s.listQuarterlyTargets(ctx, "", string(repID))
}

func (s *Store) listQuarterlyTargets(ctx context.Context, where string, args ...any) ([]commission.QuarterlyTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sales_rep_id, year, quarter, general_target_amount, cfd_target_amount, workdays_in_period
		FROM quarterly_targets WHERE sales_rep_id = ?`+where+` ORDER BY year DESC, quarter DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := []commission.QuarterlyTarget{}
	for rows.Next() {
		var t commission.QuarterlyTarget
		var repID string
		var cfd, workdays sql.NullInt64
		if err := rows.Scan(&t.ID, &repID, &t.Year, &t.Quarter, &t.GeneralTargetAmount, &cfd, &workdays); err != nil {
			return nil, err
		}
		t.RepID = generic.RepID(repID)
		t.CFDTargetAmount = intPtr(cfd)
		t.WorkdaysInPeriod = intPtr(workdays)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// =============================================================================
// KPI STORE
// =============================================================================

// SaveKpi upserts the KPI row for (rep, year, month).
func (s *Store) SaveKpi(ctx context.Context, k commission.KpiRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO monthly_kpis (id, sales_rep_id, year, month, avg_call_time_minutes, avg_calls_count,
			ppc_conversion_rate, aff_conversion_rate, work_excellence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sales_rep_id, year, month) DO UPDATE SET
			avg_call_time_minutes = excluded.avg_call_time_minutes,
			avg_calls_count = excluded.avg_calls_count,
			ppc_conversion_rate = excluded.ppc_conversion_rate,
			aff_conversion_rate = excluded.aff_conversion_rate,
			work_excellence = excluded.work_excellence,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), string(k.RepID), k.Year, k.Month,
		k.AvgCallTimeMet, k.AvgCallsCountMet, k.PPCConversionMet, k.AFFConversionMet,
		k.ExcellenceScore, nowString(),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: rep %s", generic.ErrNotFound, k.RepID)
	}
	return err
}

// GetKpi returns the KPI row for a month, or nil when none is recorded.
func (s *Store) GetKpi(ctx context.Context, repID generic.RepID, month generic.MonthKey) (*commission.KpiRecord, error) {
	kpis, err := s.listKpis(ctx, " AND year = ? AND month = ?", string(repID), month.Year, int(month.Month))
	if err != nil || len(kpis) == 0 {
		return nil, err
	}
	return &kpis[0], nil
}

// ListKpis returns all KPI rows of a rep, newest first.
func (s *Store) ListKpis(ctx context.Context, repID generic.RepID) ([]commission.KpiRecord, error) {
	return s.listKpis(ctx, "", string(repID))
}

func (s *Store) listKpis(ctx context.Context, where string, args ...any) ([]commission.KpiRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sales_rep_id, year, month, avg_call_time_minutes, avg_calls_count,
			ppc_conversion_rate, aff_conversion_rate, work_excellence
		FROM monthly_kpis WHERE sales_rep_id = ?`+where+` ORDER BY year DESC, month DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kpis := []commission.KpiRecord{}
	for rows.Next() {
		var k commission.KpiRecord
		var repID string
		if err := rows.Scan(&repID, &k.Year, &k.Month, &k.AvgCallTimeMet, &k.AvgCallsCountMet,
			&k.PPCConversionMet, &k.AFFConversionMet, &k.ExcellenceScore); err != nil {
			return nil, err
		}
		k.RepID = generic.RepID(repID)
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

// =============================================================================
// PLAN STORE
// =============================================================================

// PlanRecord is a stored plan with its JSON config.
type PlanRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SavePlan saves a plan record. Re-saving an ID bumps its stored version.
func (s *Store) SavePlan(ctx context.Context, plan PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO plans (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = plans.version + 1,
			updated_at = excluded.updated_at
	`

	now := nowString()
	version := plan.Version
	if version < 1 {
		version = 1
	}
	_, err := s.db.ExecContext(ctx, query, plan.ID, plan.Name, plan.ConfigJSON, version, now, now)
	return err
}

// GetPlan retrieves a plan by ID, or nil when it doesn't exist.
func (s *Store) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PlanRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM plans WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &p, nil
}

// ListPlans returns all plans.
func (s *Store) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM plans ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []PlanRecord{}
	for rows.Next() {
		var p PlanRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday saves a holiday. An empty ID is assigned a new UUID.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	query := `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query, h.ID, h.Date.String(), h.Name, h.Recurring, nowString())
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns every stored holiday as a calendar.
func (s *Store) ListHolidays(ctx context.Context) (generic.HolidayList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, date, name, recurring FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holidays := generic.HolidayList{}
	for rows.Next() {
		var h generic.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		h.Date, err = generic.ParseDay(dateStr)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// SNAPSHOT STORE (generic.SnapshotStore interface)
// =============================================================================

// SaveSnapshot stores a breakdown snapshot, replacing any for the same rep and month.
func (s *Store) SaveSnapshot(ctx context.Context, snap generic.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}

	query := `
		INSERT INTO breakdown_snapshots (id, sales_rep_id, year, month, plan_id, total_value, currency,
			payload_json, reason, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sales_rep_id, year, month) DO UPDATE SET
			plan_id = excluded.plan_id,
			total_value = excluded.total_value,
			currency = excluded.currency,
			payload_json = excluded.payload_json,
			reason = excluded.reason,
			taken_at = excluded.taken_at
	`

	_, err := s.db.ExecContext(ctx, query,
		snap.ID, string(snap.RepID), snap.Month.Year, int(snap.Month.Month), snap.PlanID,
		snap.Total.Value.String(), string(snap.Total.Currency),
		string(snap.Payload), string(snap.Reason), formatTime(snap.TakenAt),
	)
	return err
}

// GetSnapshot returns the snapshot for a rep and month, or nil when none exists.
func (s *Store) GetSnapshot(ctx context.Context, repID generic.RepID, month generic.MonthKey) (*generic.Snapshot, error) {
	snaps, err := s.listSnapshots(ctx, " AND year = ? AND month = ?", string(repID), month.Year, int(month.Month))
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// ListSnapshots returns a rep's snapshots, newest month first.
func (s *Store) ListSnapshots(ctx context.Context, repID generic.RepID) ([]generic.Snapshot, error) {
	return s.listSnapshots(ctx, "", string(repID))
}

func (s *Store) listSnapshots(ctx context.Context, where string, args ...any) ([]generic.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sales_rep_id, year, month, plan_id, total_value, currency, payload_json, reason, taken_at
		FROM breakdown_snapshots WHERE sales_rep_id = ?`+where+` ORDER BY year DESC, month DESC`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []generic.Snapshot{}
	for rows.Next() {
		var snap generic.Snapshot
		var repID, total, currency, payload, reason, takenAt string
		var month int
		if err := rows.Scan(&snap.ID, &repID, &snap.Month.Year, &month, &snap.PlanID,
			&total, &currency, &payload, &reason, &takenAt); err != nil {
			return nil, err
		}
		snap.RepID = generic.RepID(repID)
		snap.Month.Month = time.Month(month)
		snap.Total = generic.Money{Value: parseDecimal(total), Currency: generic.Currency(currency)}
		snap.Payload = []byte(payload)
		snap.Reason = generic.SnapshotReason(reason)
		snap.TakenAt, _ = time.Parse(timeLayout, takenAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// =============================================================================
// CLOSE RUNS STORE
// =============================================================================

// Close run statuses.
const (
	CloseRunning   = "running"
	CloseCompleted = "completed"
	CloseFailed    = "failed"
)

// CloseRun records one execution of the month close.
type CloseRun struct {
	ID          string
	Month       generic.MonthKey
	PlanID      string
	Status      string // running, completed, failed
	Reps        int
	Snapshots   int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveCloseRun upserts the run for its month.
func (s *Store) SaveCloseRun(ctx context.Context, r CloseRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO close_runs (id, year, month, plan_id, status, reps, snapshots, error,
			started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			reps = excluded.reps,
			snapshots = excluded.snapshots,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Month.Year, int(r.Month.Month), r.PlanID, r.Status, r.Reps, r.Snapshots,
		nullString(r.Error), nullTime(r.StartedAt), nullTime(r.CompletedAt), formatTime(r.CreatedAt),
	)
	return err
}

// ListCloseRuns returns close runs, newest month first. An empty status lists all.
func (s *Store) ListCloseRuns(ctx context.Context, status string) ([]CloseRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, year, month, plan_id, status, reps, snapshots, error, started_at, completed_at, created_at
		FROM close_runs`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY year DESC, month DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []CloseRun{}
	for rows.Next() {
		var r CloseRun
		var month int
		var errText, startedAt, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Month.Year, &month, &r.PlanID, &r.Status, &r.Reps, &r.Snapshots,
			&errText, &startedAt, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		r.Month.Month = time.Month(month)
		r.Error = errText.String
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		if startedAt.Valid {
			t, _ := time.Parse(timeLayout, startedAt.String)
			r.StartedAt = &t
		}
		if completedAt.Valid {
			t, _ := time.Parse(timeLayout, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetCloseRun returns the run for a month, or nil when the month was never closed.
func (s *Store) GetCloseRun(ctx context.Context, month generic.MonthKey) (*CloseRun, error) {
	runs, err := s.ListCloseRuns(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.Month == month {
			return &r, nil
		}
	}
	return nil, nil
}

// IsCloseComplete reports whether the month has a completed close run.
func (s *Store) IsCloseComplete(ctx context.Context, month generic.MonthKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM close_runs WHERE year = ? AND month = ? AND status = ?",
		month.Year, int(month.Month), CloseCompleted,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"deals", "monthly_targets", "quarterly_targets", "monthly_kpis",
		"breakdown_snapshots", "close_runs", "holidays", "profiles",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nowString() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
