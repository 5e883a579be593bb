package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/repository"
)

// GlobalStatsEngine folds COMPLETE tracking periods into the global average.
type GlobalStatsEngine struct {
	repo    repository.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewGlobalStatsEngine(repo repository.Store, logger *slog.Logger, metrics *Metrics) *GlobalStatsEngine {
	return &GlobalStatsEngine{
		repo:    repo,
		logger:  orDefault(logger),
		metrics: orNoop(metrics),
		now:     time.Now,
	}
}

// Create computes and stores the first version of a new aggregate. With no
// COMPLETE period it returns domain.ErrEmptyAggregate.
func (e *GlobalStatsEngine) Create(ctx context.Context) (*domain.GlobalStats, error) {
	g := domain.NewGlobalStats()
	if err := e.Recalculate(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Recalculate refolds g over the current COMPLETE periods, stores the result
// as the next version and updates g. On error g is unchanged.
func (e *GlobalStatsEngine) Recalculate(ctx context.Context, g *domain.GlobalStats) error {
	periods, err := e.repo.FindCompletePeriods(ctx)
	if err != nil {
		return fmt.Errorf("failed to load complete tracking periods: %w", err)
	}

	next := *g
	if err := next.Fold(periods, e.now()); err != nil {
		return fmt.Errorf("failed to recalculate global stats: %w", err)
	}

	if err := e.repo.SaveGlobalStats(ctx, &next); err != nil {
		return fmt.Errorf("failed to store global stats: %w", err)
	}

	*g = next
	e.metrics.GlobalLitres.Set(g.LitresPerPersonPerWeek)
	e.logger.InfoContext(ctx, "recalculated global stats",
		"version", g.Version,
		"periods", g.PeriodCount,
		"litres_per_person_per_week", g.LitresPerPersonPerWeek,
	)
	return nil
}

// Current loads the latest stored aggregate and recalculates it, or creates
// one when none was stored yet.
func (e *GlobalStatsEngine) Current(ctx context.Context) (*domain.GlobalStats, error) {
	g, err := e.repo.LatestGlobalStats(ctx)
	switch {
	case err == nil:
		if err := e.Recalculate(ctx, g); err != nil {
			return nil, err
		}
		return g, nil
	case isNotFound(err):
		return e.Create(ctx)
	default:
		return nil, fmt.Errorf("failed to load global stats: %w", err)
	}
}
