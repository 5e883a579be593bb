package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/utils"
)

// statsPrecision is the number of decimals every published statistic keeps.
const statsPrecision = 2

// StatsOptions tunes how a period's statistic is derived.
type StatsOptions struct {
	// NormalizeWeekly additionally divides by the number of started weeks the
	// period spans. Off by default: the statistic is the plain sum of member
	// litres per person.
	NormalizeWeekly bool
}

// LitresPerPersonPerWeek computes a period's statistic from its member
// records: sum(litres) / population, rounded to 2 decimals half away from
// zero. Arithmetic is done in decimal so 0.1+0.2 style drift never decides a
// rounding tie.
//
// Records attached to another period, a population below 1 or a negative
// volume are rejected with ErrValidation.
func LitresPerPersonPerWeek(period *TrackingPeriod, records []*WasteRecord, population int, opts StatsOptions) (float64, error) {
	if population < 1 {
		return 0, Invalid("Population", "population must be at least 1 (got %d)", population)
	}

	total := decimal.Zero
	for _, r := range records {
		if r.TrackingPeriodID != "" && r.TrackingPeriodID != period.ID {
			return 0, Invalid("TrackingPeriodID", "record %s belongs to period %s, not %s", r.ID, r.TrackingPeriodID, period.ID)
		}
		if err := validateLitres("Litres", r.Litres); err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromFloat(r.Litres))
	}

	divisor := int64(population)
	if opts.NormalizeWeekly {
		divisor *= int64(period.Weeks())
	}

	v, _ := total.DivRound(decimal.NewFromInt(divisor), statsPrecision).Float64()
	return v, nil
}

// Mean is the unweighted arithmetic mean of values rounded to 2 decimals.
// An empty input yields ErrEmptyAggregate.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyAggregate
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}

	mean, _ := sum.DivRound(decimal.NewFromInt(int64(len(values))), statsPrecision).Float64()
	return mean, nil
}

// GlobalStats is the cross-household aggregate: the mean of the per-period
// statistic over all COMPLETE tracking periods. Every recalculation produces
// a new Version; earlier versions are kept as history.
type GlobalStats struct {
	ID                     string          `json:"id"`
	Version                int             `json:"version"`
	LitresPerPersonPerWeek float64         `json:"litres_per_person_per_week"`
	PeriodCount            int             `json:"period_count"`
	CalculatedAt           time.Time       `json:"calculated_at"`
	AuditInfo              audit.AuditInfo `json:"audit"`
}

// NewGlobalStats returns an empty aggregate awaiting its first fold.
func NewGlobalStats() *GlobalStats {
	return &GlobalStats{
		ID:        utils.GenerateStableID(),
		AuditInfo: *audit.NewAuditInfo(audit.SystemUser),
	}
}

// Fold replaces the aggregate with the mean over the given COMPLETE periods
// and bumps Version. Periods in any other status are skipped. On error the
// aggregate is left untouched.
func (g *GlobalStats) Fold(periods []*TrackingPeriod, at time.Time) error {
	values := make([]float64, 0, len(periods))
	for _, p := range periods {
		if p.Status != StatusComplete {
			continue
		}
		values = append(values, p.LitresPerPersonPerWeek)
	}

	mean, err := Mean(values)
	if err != nil {
		return err
	}

	g.LitresPerPersonPerWeek = mean
	g.PeriodCount = len(values)
	g.CalculatedAt = at.UTC()
	g.Version++
	if g.Version > 1 {
		g.AuditInfo.Touch(audit.SystemUser)
	}
	return nil
}
