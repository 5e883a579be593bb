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

// Lifecycle finalizes tracking periods that can no longer receive records.
type Lifecycle struct {
	repo    repository.Repository
	stats   *PeriodStats
	maxGap  int
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewLifecycle(repo repository.Repository, stats *PeriodStats, maxGap int, logger *slog.Logger, metrics *Metrics) *Lifecycle {
	return &Lifecycle{
		repo:    repo,
		stats:   stats,
		maxGap:  maxGap,
		logger:  orDefault(logger),
		metrics: orNoop(metrics),
		now:     time.Now,
	}
}

// CloseOld runs the sweep for today.
func (l *Lifecycle) CloseOld(ctx context.Context) (closed, voided int, err error) {
	return l.CloseOldAsOf(ctx, utils.Day(l.now().UTC()))
}

// CloseOldAsOf closes every PROGRESS period whose latest record is older than
// today minus the gap window. Periods with two or more records become
// COMPLETE with their statistic frozen; a lone record makes the period VOID.
//
// Each period is re-read under its household lock and skipped when a
// concurrent writer already moved it, so running the sweep twice in a row
// returns (0, 0) the second time.
func (l *Lifecycle) CloseOldAsOf(ctx context.Context, today time.Time) (closed, voided int, err error) {
	cutoff := utils.AddDays(today, -l.maxGap)

	stale, err := l.repo.FindProgressPeriodsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find stale tracking periods: %w", err)
	}

	for _, m := range stale {
		status, err := l.close(ctx, m.Period.HouseholdID, m.Period.ID, cutoff)
		if err != nil {
			return closed, voided, fmt.Errorf("failed to close tracking period %s: %w", m.Period.ID, err)
		}

		switch status {
		case domain.StatusComplete:
			closed++
		case domain.StatusVoid:
			voided++
		default:
			continue
		}
		l.metrics.PeriodsClosed.WithLabelValues(string(status)).Inc()
	}

	l.logger.InfoContext(ctx, "closed stale tracking periods",
		"cutoff", utils.FormatDay(cutoff),
		"candidates", len(stale),
		"closed", closed,
		"voided", voided,
	)
	return closed, voided, nil
}

// close finalizes one period and returns its new status, or "" when the
// period no longer needed closing.
func (l *Lifecycle) close(ctx context.Context, householdID, periodID string, cutoff time.Time) (domain.PeriodStatus, error) {
	var status domain.PeriodStatus

	err := l.repo.WithinHousehold(ctx, householdID, func(ctx context.Context, tx repository.Store) error {
		p, err := tx.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusProgress || !p.Latest.Before(cutoff) {
			l.logger.DebugContext(ctx, "tracking period no longer stale",
				"period_id", p.ID,
				"status", p.Status,
				"latest", utils.FormatDay(p.Latest),
			)
			return nil
		}

		records, err := tx.PeriodRecords(ctx, p.ID)
		if err != nil {
			return err
		}

		next := domain.ClassifyClosing(len(records))
		if next == domain.StatusComplete {
			if _, err := l.stats.Refresh(ctx, tx, p); err != nil {
				return err
			}
		}

		if err := tx.TransitionStatus(ctx, p.ID, domain.StatusProgress, next); err != nil {
			return err
		}

		l.logger.DebugContext(ctx, "tracking period closed",
			"household_id", p.HouseholdID,
			"period_id", p.ID,
			"status", next,
			"records", len(records),
			"litres_per_person_per_week", p.LitresPerPersonPerWeek,
		)
		status = next
		return nil
	})
	return status, err
}

// Verify reports PROGRESS periods of one household whose spans overlap.
func (l *Lifecycle) Verify(ctx context.Context) ([]string, error) {
	periods, err := l.repo.ListPeriods(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking periods: %w", err)
	}
	return domain.DetectOverlaps(periods), nil
}
