package service

import (
	"context"
	"fmt"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/repository"
)

// PeriodStats derives a period's litres per person per week from its member
// records.
type PeriodStats struct {
	repo repository.Store
	opts domain.StatsOptions
}

func NewPeriodStats(repo repository.Store, opts domain.StatsOptions) *PeriodStats {
	return &PeriodStats{repo: repo, opts: opts}
}

// Compute recalculates the statistic of the period from scratch. It does not
// touch the cached value.
func (s *PeriodStats) Compute(ctx context.Context, periodID string) (float64, error) {
	p, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return 0, err
	}
	return s.compute(ctx, s.repo, p)
}

// Refresh recalculates the statistic through tx and stores it as the period's
// cached value.
func (s *PeriodStats) Refresh(ctx context.Context, tx repository.Store, p *domain.TrackingPeriod) (float64, error) {
	v, err := s.compute(ctx, tx, p)
	if err != nil {
		return 0, err
	}
	if err := tx.UpdatePeriodStat(ctx, p.ID, v); err != nil {
		return 0, fmt.Errorf("failed to cache stats of tracking period %s: %w", p.ID, err)
	}
	p.LitresPerPersonPerWeek = v
	return v, nil
}

func (s *PeriodStats) compute(ctx context.Context, store repository.Store, p *domain.TrackingPeriod) (float64, error) {
	household, err := store.GetHousehold(ctx, p.HouseholdID)
	if err != nil {
		return 0, fmt.Errorf("failed to load household of tracking period %s: %w", p.ID, err)
	}

	records, err := store.PeriodRecords(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load records of tracking period %s: %w", p.ID, err)
	}

	v, err := domain.LitresPerPersonPerWeek(p, records, household.Population, s.opts)
	if err != nil {
		return 0, fmt.Errorf("tracking period %s: %w", p.ID, err)
	}
	return v, nil
}
