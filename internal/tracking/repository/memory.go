package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/utils"
)

// MemoryRepository keeps all state in memory. Lookups by period go through
// maps; per-household period slices are kept sorted by Began.
//
// It does not roll back: writes made by a failing WithinHousehold callback
// stay applied.
//
// Example usage:
//
//	repo := repository.NewMemoryRepository()
//	_ = repo.SaveHousehold(ctx, household)
type MemoryRepository struct {
	mu sync.RWMutex

	households  map[string]*domain.Household
	periods     map[string]*domain.TrackingPeriod   // by period ID
	byHousehold map[string][]*domain.TrackingPeriod // sorted by Began
	records     map[string][]*domain.WasteRecord    // by period ID
	recordDays  map[string]struct{}                 // business keys
	stats       []*domain.GlobalStats

	locks utils.NamedLocks
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		households:  make(map[string]*domain.Household),
		periods:     make(map[string]*domain.TrackingPeriod),
		byHousehold: make(map[string][]*domain.TrackingPeriod),
		records:     make(map[string][]*domain.WasteRecord),
		recordDays:  make(map[string]struct{}),
	}
}

func (m *MemoryRepository) WithinHousehold(ctx context.Context, householdID string, fn func(ctx context.Context, tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := m.locks.Lock(householdID)
	defer l.Unlock()

	return fn(ctx, m)
}

func (m *MemoryRepository) GetHousehold(_ context.Context, id string) (*domain.Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.households[id]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", id, domain.ErrNotFound)
	}
	cp := *h
	return &cp, nil
}

func (m *MemoryRepository) SaveHousehold(_ context.Context, h *domain.Household) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("household %s validation failed: %w", h.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *h
	m.households[h.ID] = &cp
	return nil
}

func (m *MemoryRepository) FindPeriods(_ context.Context, householdID string, near time.Time, window int) ([]*domain.TrackingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.TrackingPeriod
	for _, p := range m.byHousehold[householdID] {
		if p.Distance(near) <= window {
			out = append(out, copyPeriod(p))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Distance(near), out[j].Distance(near)
		if di != dj {
			return di < dj
		}
		// ULIDs sort by creation time.
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryRepository) ListPeriods(_ context.Context, householdID string) ([]*domain.TrackingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.TrackingPeriod
	if householdID != "" {
		for _, p := range m.byHousehold[householdID] {
			out = append(out, copyPeriod(p))
		}
		return out, nil
	}

	for _, p := range m.periods {
		out = append(out, copyPeriod(p))
	}
	sortByBegan(out)
	return out, nil
}

func (m *MemoryRepository) GetPeriod(_ context.Context, id string) (*domain.TrackingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.periods[id]
	if !ok {
		return nil, fmt.Errorf("tracking period %s: %w", id, domain.ErrNotFound)
	}
	return copyPeriod(p), nil
}

func (m *MemoryRepository) CreatePeriod(_ context.Context, householdID string, began, latest time.Time) (*domain.TrackingPeriod, error) {
	p := domain.NewTrackingPeriod(householdID, began)
	p.Latest = utils.Day(latest)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("tracking period validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.periods[p.ID] = p
	list := append(m.byHousehold[householdID], p)
	sortByBegan(list)
	m.byHousehold[householdID] = list

	return copyPeriod(p), nil
}

func (m *MemoryRepository) UpdatePeriodBounds(_ context.Context, periodID string, began, latest time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[periodID]
	if !ok {
		return fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}

	began, latest = utils.Day(began), utils.Day(latest)
	if latest.Before(began) {
		return domain.Invalid("Latest", "latest %s is before began %s", utils.FormatDay(latest), utils.FormatDay(began))
	}

	p.Began, p.Latest = began, latest
	p.AuditInfo.Touch(audit.SystemUser)
	sortByBegan(m.byHousehold[p.HouseholdID])
	return nil
}

func (m *MemoryRepository) UpdatePeriodStat(_ context.Context, periodID string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[periodID]
	if !ok {
		return fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}
	p.LitresPerPersonPerWeek = value
	return nil
}

func (m *MemoryRepository) TransitionStatus(_ context.Context, periodID string, from, to domain.PeriodStatus) error {
	if err := domain.CanTransition(from, to); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[periodID]
	if !ok {
		return fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}
	if p.Status != from {
		return fmt.Errorf("%w: tracking period %s is %s, expected %s", domain.ErrConcurrencyConflict, periodID, p.Status, from)
	}

	p.Status = to
	p.AuditInfo.Touch(audit.SystemUser)
	return nil
}

func (m *MemoryRepository) HasRecord(_ context.Context, householdID string, day time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.recordDays[domain.RecordBusinessKey(householdID, utils.Day(day))]
	return ok, nil
}

func (m *MemoryRepository) AttachRecord(_ context.Context, periodID string, record *domain.WasteRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("waste record validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[periodID]
	if !ok {
		return fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}
	if p.HouseholdID != record.HouseholdID {
		return domain.Invalid("HouseholdID", "record of household %s cannot join period of household %s", record.HouseholdID, p.HouseholdID)
	}

	key := domain.RecordBusinessKey(record.HouseholdID, record.Date)
	if _, dup := m.recordDays[key]; dup {
		return fmt.Errorf("%s on %s: %w", record.HouseholdID, utils.FormatDay(record.Date), domain.ErrDuplicateRecord)
	}

	record.TrackingPeriodID = periodID
	cp := *record
	m.records[periodID] = append(m.records[periodID], &cp)
	m.recordDays[key] = struct{}{}
	return nil
}

func (m *MemoryRepository) PeriodRecords(_ context.Context, periodID string) ([]*domain.WasteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.periods[periodID]; !ok {
		return nil, fmt.Errorf("tracking period %s: %w", periodID, domain.ErrNotFound)
	}

	out := make([]*domain.WasteRecord, 0, len(m.records[periodID]))
	for _, r := range m.records[periodID] {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *MemoryRepository) FindProgressPeriodsOlderThan(_ context.Context, cutoff time.Time) ([]domain.PeriodMembership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff = utils.Day(cutoff)
	var out []domain.PeriodMembership
	for _, p := range m.periods {
		if p.Status == domain.StatusProgress && p.Latest.Before(cutoff) {
			out = append(out, domain.PeriodMembership{
				Period:  copyPeriod(p),
				Members: len(m.records[p.ID]),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Latest.Equal(out[j].Period.Latest) {
			return out[i].Period.Latest.Before(out[j].Period.Latest)
		}
		return out[i].Period.ID < out[j].Period.ID
	})
	return out, nil
}

func (m *MemoryRepository) FindCompletePeriods(_ context.Context) ([]*domain.TrackingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.TrackingPeriod
	for _, p := range m.periods {
		if p.Status == domain.StatusComplete {
			out = append(out, copyPeriod(p))
		}
	}
	sortByBegan(out)
	return out, nil
}

func (m *MemoryRepository) SaveGlobalStats(_ context.Context, g *domain.GlobalStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *g
	m.stats = append(m.stats, &cp)
	return nil
}

func (m *MemoryRepository) LatestGlobalStats(_ context.Context) (*domain.GlobalStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.stats) == 0 {
		return nil, fmt.Errorf("global stats: %w", domain.ErrNotFound)
	}
	cp := *m.stats[len(m.stats)-1]
	return &cp, nil
}

func copyPeriod(p *domain.TrackingPeriod) *domain.TrackingPeriod {
	cp := *p
	return &cp
}

func sortByBegan(periods []*domain.TrackingPeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		if !periods[i].Began.Equal(periods[j].Began) {
			return periods[i].Began.Before(periods[j].Began)
		}
		return periods[i].ID < periods[j].ID
	})
}
