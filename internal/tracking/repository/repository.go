// Package repository persists households, waste records, tracking periods and
// global statistics.
//
// Two backends implement Repository:
//
//   - MemoryRepository keeps everything in maps; used in development and tests.
//   - PostgresRepository stores into PostgreSQL (optionally AWS RDS with IAM
//     authentication, see internal/repository).
//
// Writes that must not interleave for one household go through
// WithinHousehold.
package repository

import (
	"context"
	"time"

	"github.com/nholding/trashinator/internal/tracking/domain"
)

// Store is the set of storage operations the tracking core needs. Inside
// WithinHousehold it is bound to the household-scoped transaction.
type Store interface {
	GetHousehold(ctx context.Context, id string) (*domain.Household, error)
	SaveHousehold(ctx context.Context, h *domain.Household) error

	// FindPeriods returns the household's periods whose span, widened by
	// window days on both sides, contains near. Nearest first; equal distances
	// list the most recently created period first.
	FindPeriods(ctx context.Context, householdID string, near time.Time, window int) ([]*domain.TrackingPeriod, error)
	// ListPeriods returns the household's periods ordered by Began. An empty
	// householdID lists every period.
	ListPeriods(ctx context.Context, householdID string) ([]*domain.TrackingPeriod, error)
	GetPeriod(ctx context.Context, id string) (*domain.TrackingPeriod, error)
	CreatePeriod(ctx context.Context, householdID string, began, latest time.Time) (*domain.TrackingPeriod, error)
	UpdatePeriodBounds(ctx context.Context, periodID string, began, latest time.Time) error
	UpdatePeriodStat(ctx context.Context, periodID string, litresPerPersonPerWeek float64) error
	// TransitionStatus moves a period from → to. It fails with
	// ErrConcurrencyConflict when the period is no longer in from.
	TransitionStatus(ctx context.Context, periodID string, from, to domain.PeriodStatus) error

	// HasRecord reports whether the household already has a record for day.
	HasRecord(ctx context.Context, householdID string, day time.Time) (bool, error)
	// AttachRecord stores record as a member of the period and sets its
	// TrackingPeriodID.
	AttachRecord(ctx context.Context, periodID string, record *domain.WasteRecord) error
	PeriodRecords(ctx context.Context, periodID string) ([]*domain.WasteRecord, error)

	// FindProgressPeriodsOlderThan returns PROGRESS periods with Latest
	// strictly before cutoff, with their member counts.
	FindProgressPeriodsOlderThan(ctx context.Context, cutoff time.Time) ([]domain.PeriodMembership, error)
	FindCompletePeriods(ctx context.Context) ([]*domain.TrackingPeriod, error)

	SaveGlobalStats(ctx context.Context, g *domain.GlobalStats) error
	// LatestGlobalStats returns the most recent version, or ErrNotFound.
	LatestGlobalStats(ctx context.Context) (*domain.GlobalStats, error)
}

// Repository is a Store that can also run household-scoped transactions.
type Repository interface {
	Store

	// WithinHousehold runs fn with exclusive access to the household's
	// tracking periods. Postgres runs fn in one transaction and rolls back
	// when fn fails.
	WithinHousehold(ctx context.Context, householdID string, fn func(ctx context.Context, tx Store) error) error
}
