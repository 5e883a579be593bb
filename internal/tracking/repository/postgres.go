package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/utils"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository stores tracking data in PostgreSQL through lib/pq.
type PostgresRepository struct {
	db   *sql.DB
	q    querier
	inTx bool
}

// NewPostgresRepository wraps an open connection pool. See
// internal/repository for building one against AWS RDS.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

// Migrate creates missing tables and indexes.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// WithinHousehold runs fn in a transaction holding a transaction-level
// advisory lock on the household. The lock serializes assignment and the
// sweep for one household while other households proceed in parallel.
func (r *PostgresRepository) WithinHousehold(ctx context.Context, householdID string, fn func(ctx context.Context, tx Store) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, householdID); err != nil {
		return fmt.Errorf("failed to lock household %s: %w", householdID, translateError(err))
	}

	if err := fn(ctx, &PostgresRepository{db: r.db, q: tx, inTx: true}); err != nil {
		return translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) GetHousehold(ctx context.Context, id string) (*domain.Household, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, name, population, audit_created_by, audit_created_at
		FROM households WHERE id = $1`, id)

	var h domain.Household
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Population, &h.AuditInfo.CreatedBy, &h.AuditInfo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan household: %w", err)
	}
	return &h, nil
}

// SaveHousehold inserts the household or updates name and population.
func (r *PostgresRepository) SaveHousehold(ctx context.Context, h *domain.Household) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("household %s validation failed: %w", h.ID, err)
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO households (id, user_id, name, population, audit_created_by, audit_created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, population = EXCLUDED.population,
		    audit_updated_by = $5, audit_updated_at = NOW()`,
		h.ID, h.UserID, h.Name, h.Population, h.AuditInfo.CreatedBy, h.AuditInfo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save household %s: %w", h.ID, err)
	}
	return nil
}

const periodColumns = `id, household_id, began, latest, status, litres_per_person_per_week, audit_created_by, audit_created_at`

func (r *PostgresRepository) FindPeriods(ctx context.Context, householdID string, near time.Time, window int) ([]*domain.TrackingPeriod, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM tracking_periods
		WHERE household_id = $1
		  AND began - $3::int <= $2::date
		  AND latest + $3::int >= $2::date
		ORDER BY CASE
		           WHEN $2::date < began THEN began - $2::date
		           WHEN $2::date > latest THEN $2::date - latest
		           ELSE 0
		         END,
		         audit_created_at DESC, id DESC`,
		householdID, utils.Day(near), window,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking periods: %w", err)
	}
	return scanPeriods(rows)
}

func (r *PostgresRepository) ListPeriods(ctx context.Context, householdID string) ([]*domain.TrackingPeriod, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM tracking_periods
		WHERE ($1 = '' OR household_id = $1)
		ORDER BY began, id`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking periods: %w", err)
	}
	return scanPeriods(rows)
}

func (r *PostgresRepository) GetPeriod(ctx context.Context, id string) (*domain.TrackingPeriod, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+periodColumns+` FROM tracking_periods WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking period: %w", err)
	}
	periods, err := scanPeriods(rows)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("tracking period %s: %w", id, domain.ErrNotFound)
	}
	return periods[0], nil
}

func (r *PostgresRepository) CreatePeriod(ctx context.Context, householdID string, began, latest time.Time) (*domain.TrackingPeriod, error) {
	p := domain.NewTrackingPeriod(householdID, began)
	p.Latest = utils.Day(latest)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("tracking period validation failed: %w", err)
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tracking_periods (`+periodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.HouseholdID, p.Began, p.Latest, string(p.Status), p.LitresPerPersonPerWeek,
		p.AuditInfo.CreatedBy, p.AuditInfo.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tracking period: %w", translateError(err))
	}
	return p, nil
}

func (r *PostgresRepository) UpdatePeriodBounds(ctx context.Context, periodID string, began, latest time.Time) error {
	began, latest = utils.Day(began), utils.Day(latest)
	if latest.Before(began) {
		return domain.Invalid("Latest", "latest %s is before began %s", utils.FormatDay(latest), utils.FormatDay(began))
	}

	return r.updatePeriod(ctx, periodID, `
		UPDATE tracking_periods
		SET began = $1, latest = $2, audit_updated_by = $3, audit_updated_at = $4
		WHERE id = $5`,
		began, latest, audit.SystemUser, time.Now().UTC(), periodID,
	)
}

func (r *PostgresRepository) UpdatePeriodStat(ctx context.Context, periodID string, value float64) error {
	return r.updatePeriod(ctx, periodID, `
		UPDATE tracking_periods
		SET litres_per_person_per_week = $1
		WHERE id = $2`,
		value, periodID,
	)
}

func (r *PostgresRepository) TransitionStatus(ctx context.Context, periodID string, from, to domain.PeriodStatus) error {
	if err := domain.CanTransition(from, to); err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE tracking_periods
		SET status = $1, audit_updated_by = $2, audit_updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(to), audit.SystemUser, time.Now().UTC(), periodID, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update status of tracking period %s: %w", periodID, translateError(err))
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: tracking period %s is not %s", domain.ErrConcurrencyConflict, periodID, from)
	}
	return nil
}

func (r *PostgresRepository) HasRecord(ctx context.Context, householdID string, day time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM waste_records WHERE household_id = $1 AND date = $2)`,
		householdID, utils.Day(day),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up waste record: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) AttachRecord(ctx context.Context, periodID string, record *domain.WasteRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("waste record validation failed: %w", err)
	}

	// The household check runs in SQL so a record can never join another
	// household's period.
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO waste_records (id, business_key, household_id, tracking_period_id, date, litres, audit_created_by, audit_created_at)
		SELECT $1, $2, $3, p.id, $4, $5, $6, $7
		FROM tracking_periods p
		WHERE p.id = $8 AND p.household_id = $3`,
		record.ID, record.BusinessKey, record.HouseholdID, record.Date, record.Litres,
		record.AuditInfo.CreatedBy, record.AuditInfo.CreatedAt, periodID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert waste record: %w", translateError(err))
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.Invalid("TrackingPeriodID", "period %s does not exist for household %s", periodID, record.HouseholdID)
	}

	record.TrackingPeriodID = periodID
	return nil
}

func (r *PostgresRepository) PeriodRecords(ctx context.Context, periodID string) ([]*domain.WasteRecord, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, business_key, household_id, tracking_period_id, date, litres, audit_created_by, audit_created_at
		FROM waste_records
		WHERE tracking_period_id = $1
		ORDER BY date`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query waste records: %w", err)
	}
	defer rows.Close()

	var records []*domain.WasteRecord
	for rows.Next() {
		rec := &domain.WasteRecord{}
		if err := rows.Scan(&rec.ID, &rec.BusinessKey, &rec.HouseholdID, &rec.TrackingPeriodID,
			&rec.Date, &rec.Litres, &rec.AuditInfo.CreatedBy, &rec.AuditInfo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waste record row: %w", err)
		}
		rec.Date = utils.Day(rec.Date)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read waste records: %w", err)
	}
	return records, nil
}

func (r *PostgresRepository) FindProgressPeriodsOlderThan(ctx context.Context, cutoff time.Time) ([]domain.PeriodMembership, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT p.id, p.household_id, p.began, p.latest, p.status, p.litres_per_person_per_week,
		       p.audit_created_by, p.audit_created_at, COUNT(w.id)
		FROM tracking_periods p
		LEFT JOIN waste_records w ON w.tracking_period_id = p.id
		WHERE p.status = $1 AND p.latest < $2
		GROUP BY p.id
		ORDER BY p.latest, p.id`,
		string(domain.StatusProgress), utils.Day(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale tracking periods: %w", err)
	}
	defer rows.Close()

	var out []domain.PeriodMembership
	for rows.Next() {
		p := &domain.TrackingPeriod{}
		var status string
		var members int
		if err := rows.Scan(&p.ID, &p.HouseholdID, &p.Began, &p.Latest, &status, &p.LitresPerPersonPerWeek,
			&p.AuditInfo.CreatedBy, &p.AuditInfo.CreatedAt, &members); err != nil {
			return nil, fmt.Errorf("failed to scan tracking period row: %w", err)
		}
		p.Status = domain.PeriodStatus(status)
		normalizeBounds(p)
		out = append(out, domain.PeriodMembership{Period: p, Members: members})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale tracking periods: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) FindCompletePeriods(ctx context.Context) ([]*domain.TrackingPeriod, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+periodColumns+`
		FROM tracking_periods
		WHERE status = $1
		ORDER BY began, id`, string(domain.StatusComplete))
	if err != nil {
		return nil, fmt.Errorf("failed to query complete tracking periods: %w", err)
	}
	return scanPeriods(rows)
}

func (r *PostgresRepository) SaveGlobalStats(ctx context.Context, g *domain.GlobalStats) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO global_stats (id, version, litres_per_person_per_week, period_count, calculated_at, audit_created_by, audit_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.Version, g.LitresPerPersonPerWeek, g.PeriodCount, g.CalculatedAt,
		g.AuditInfo.CreatedBy, g.AuditInfo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert global stats version %d: %w", g.Version, err)
	}
	return nil
}

func (r *PostgresRepository) LatestGlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, version, litres_per_person_per_week, period_count, calculated_at, audit_created_by, audit_created_at
		FROM global_stats
		ORDER BY calculated_at DESC, version DESC
		LIMIT 1`)

	var g domain.GlobalStats
	err := row.Scan(&g.ID, &g.Version, &g.LitresPerPersonPerWeek, &g.PeriodCount, &g.CalculatedAt,
		&g.AuditInfo.CreatedBy, &g.AuditInfo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("global stats: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan global stats: %w", err)
	}
	return &g, nil
}

func (r *PostgresRepository) updatePeriod(ctx context.Context, periodID, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update tracking period %s: %w", periodID, translateError(err))
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}
	return nil
}

func scanPeriods(rows *sql.Rows) ([]*domain.TrackingPeriod, error) {
	defer rows.Close()

	var periods []*domain.TrackingPeriod
	for rows.Next() {
		p := &domain.TrackingPeriod{}
		var status string
		if err := rows.Scan(&p.ID, &p.HouseholdID, &p.Began, &p.Latest, &status, &p.LitresPerPersonPerWeek,
			&p.AuditInfo.CreatedBy, &p.AuditInfo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking period row: %w", err)
		}
		p.Status = domain.PeriodStatus(status)
		normalizeBounds(p)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracking periods: %w", err)
	}
	return periods, nil
}

// normalizeBounds drops the zone pq attaches to DATE columns.
func normalizeBounds(p *domain.TrackingPeriod) {
	p.Began = utils.Day(p.Began)
	p.Latest = utils.Day(p.Latest)
}
