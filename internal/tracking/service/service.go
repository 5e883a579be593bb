// Package service implements the tracking core: assigning records to
// tracking periods, closing stale periods and computing statistics.
package service

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/repository"
)

// Options configures the tracking services.
type Options struct {
	// MaxTrackingSplit is the gap window in days, shared by assignment and
	// the sweep.
	MaxTrackingSplit int
	Stats            domain.StatsOptions
}

// Services bundles the tracking services wired to one repository.
type Services struct {
	Records     *RecordService
	Assigner    *Assigner
	Lifecycle   *Lifecycle
	PeriodStats *PeriodStats
	GlobalStats *GlobalStatsEngine
	Metrics     *Metrics
}

// New wires the services. reg may be nil.
func New(repo repository.Repository, opts Options, logger *slog.Logger, reg prometheus.Registerer) *Services {
	logger = orDefault(logger)
	metrics := NewMetrics(reg)

	periodStats := NewPeriodStats(repo, opts.Stats)
	assigner := NewAssigner(opts.MaxTrackingSplit, logger, metrics)

	return &Services{
		Records:     NewRecordService(repo, assigner, periodStats, logger, metrics),
		Assigner:    assigner,
		Lifecycle:   NewLifecycle(repo, periodStats, opts.MaxTrackingSplit, logger, metrics),
		PeriodStats: periodStats,
		GlobalStats: NewGlobalStatsEngine(repo, logger, metrics),
		Metrics:     metrics,
	}
}
