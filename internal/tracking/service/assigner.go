package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/repository"
	"github.com/nholding/trashinator/internal/utils"
)

// Assigner places a record date into a tracking period of its household.
type Assigner struct {
	maxGap  int
	logger  *slog.Logger
	metrics *Metrics
}

func NewAssigner(maxGap int, logger *slog.Logger, metrics *Metrics) *Assigner {
	return &Assigner{maxGap: maxGap, logger: orDefault(logger), metrics: orNoop(metrics)}
}

// Assign returns the period the household's record for date belongs to.
//
// The nearest period of the household within the gap window of date decides,
// whatever its status. When it is PROGRESS it is reused, widening its bounds
// when date falls outside them. When it is already COMPLETE or VOID, or no
// period is near enough, a new PROGRESS period covering just date is created.
// Equal distances prefer a PROGRESS period, then the most recently created.
//
// Assign must run inside repository.Repository.WithinHousehold; tx is the
// household-scoped store.
func (a *Assigner) Assign(ctx context.Context, tx repository.Store, householdID string, date time.Time) (*domain.TrackingPeriod, error) {
	if householdID == "" {
		return nil, domain.Invalid("HouseholdID", "household is required")
	}
	if date.IsZero() {
		return nil, domain.Invalid("Date", "date is required")
	}
	day := utils.Day(date)

	candidates, err := tx.FindPeriods(ctx, householdID, day, a.maxGap)
	if err != nil {
		return nil, fmt.Errorf("failed to find tracking periods: %w", err)
	}

	best := a.nearest(candidates, householdID, day)
	if best == nil || best.Status != domain.StatusProgress {
		p, err := tx.CreatePeriod(ctx, householdID, day, day)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracking period: %w", err)
		}
		a.metrics.PeriodsCreated.Inc()
		a.logger.DebugContext(ctx, "opened tracking period",
			"household_id", householdID,
			"period_id", p.ID,
			"date", utils.FormatDay(day),
		)
		return p, nil
	}

	began, latest := best.Bounds(day)
	if !began.Equal(best.Began) || !latest.Equal(best.Latest) {
		if err := tx.UpdatePeriodBounds(ctx, best.ID, began, latest); err != nil {
			return nil, fmt.Errorf("failed to extend tracking period %s: %w", best.ID, err)
		}
		best.Began, best.Latest = began, latest
	}
	return best, nil
}

func (a *Assigner) nearest(candidates []*domain.TrackingPeriod, householdID string, day time.Time) *domain.TrackingPeriod {
	var (
		best     *domain.TrackingPeriod
		bestDist int
	)
	for _, p := range candidates {
		if p.HouseholdID != householdID {
			continue
		}
		d := p.Distance(day)
		// The window is inclusive: a period whose latest record sits exactly
		// maxGap days back is still open for the sweep, so it still accepts.
		if d > a.maxGap {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && preferred(p, best)) {
			best, bestDist = p, d
		}
	}
	return best
}

// preferred breaks a distance tie between a and b.
func preferred(a, b *domain.TrackingPeriod) bool {
	aOpen, bOpen := a.Status == domain.StatusProgress, b.Status == domain.StatusProgress
	if aOpen != bOpen {
		return aOpen
	}
	return newer(a, b)
}

// newer reports whether a was created after b.
func newer(a, b *domain.TrackingPeriod) bool {
	if !a.AuditInfo.CreatedAt.Equal(b.AuditInfo.CreatedAt) {
		return a.AuditInfo.CreatedAt.After(b.AuditInfo.CreatedAt)
	}
	return a.ID > b.ID
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
