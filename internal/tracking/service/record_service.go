package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/repository"
	"github.com/nholding/trashinator/internal/utils"
)

// RecordService is the write path for waste records.
type RecordService struct {
	repo     repository.Repository
	assigner *Assigner
	stats    *PeriodStats
	logger   *slog.Logger
	metrics  *Metrics
}

func NewRecordService(repo repository.Repository, assigner *Assigner, stats *PeriodStats, logger *slog.Logger, metrics *Metrics) *RecordService {
	return &RecordService{
		repo:     repo,
		assigner: assigner,
		stats:    stats,
		logger:   orDefault(logger),
		metrics:  orNoop(metrics),
	}
}

// Record validates a new waste record, assigns it to a tracking period and
// stores it, all under the household lock. The period's cached statistic is
// refreshed before the lock is released.
//
// A domain.ErrConcurrencyConflict retries the whole assignment once; a second
// conflict is returned to the caller.
func (s *RecordService) Record(ctx context.Context, householdID string, date time.Time, litres float64, createdBy string) (*domain.WasteRecord, *domain.TrackingPeriod, error) {
	rec, err := domain.NewWasteRecord(householdID, date, litres, createdBy)
	if err != nil {
		return nil, nil, err
	}

	period, err := s.record(ctx, rec)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		s.metrics.AssignmentConflicts.Inc()
		s.logger.WarnContext(ctx, "retrying record assignment after conflict",
			"household_id", householdID,
			"date", utils.FormatDay(rec.Date),
			"error", err,
		)
		rec.TrackingPeriodID = ""
		period, err = s.record(ctx, rec)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			s.metrics.AssignmentConflicts.Inc()
		}
	}
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordsAssigned.Inc()
	return rec, period, nil
}

func (s *RecordService) record(ctx context.Context, rec *domain.WasteRecord) (*domain.TrackingPeriod, error) {
	var period *domain.TrackingPeriod

	err := s.repo.WithinHousehold(ctx, rec.HouseholdID, func(ctx context.Context, tx repository.Store) error {
		household, err := tx.GetHousehold(ctx, rec.HouseholdID)
		if err != nil {
			return err
		}
		if err := household.Validate(); err != nil {
			return err
		}

		exists, err := tx.HasRecord(ctx, rec.HouseholdID, rec.Date)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s on %s: %w", rec.HouseholdID, utils.FormatDay(rec.Date), domain.ErrDuplicateRecord)
		}

		p, err := s.assigner.Assign(ctx, tx, rec.HouseholdID, rec.Date)
		if err != nil {
			return err
		}
		if err := tx.AttachRecord(ctx, p.ID, rec); err != nil {
			return err
		}
		if _, err := s.stats.Refresh(ctx, tx, p); err != nil {
			return err
		}

		period = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
