package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nholding/trashinator/internal/tracking/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newHousehold(t *testing.T, repo *MemoryRepository, population int) *domain.Household {
	t.Helper()
	h, err := domain.NewHousehold("user", "home", population, "test")
	require.NoError(t, err)
	require.NoError(t, repo.SaveHousehold(context.Background(), h))
	return h
}

func attach(t *testing.T, repo *MemoryRepository, p *domain.TrackingPeriod, date time.Time, litres float64) *domain.WasteRecord {
	t.Helper()
	r, err := domain.NewWasteRecord(p.HouseholdID, date, litres, "test")
	require.NoError(t, err)
	require.NoError(t, repo.AttachRecord(context.Background(), p.ID, r))
	return r
}

func TestMemoryRepository_Households(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	h := newHousehold(t, repo, 3)
	got, err := repo.GetHousehold(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Population)

	_, err = repo.GetHousehold(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bad := *h
	bad.Population = 0
	assert.ErrorIs(t, repo.SaveHousehold(ctx, &bad), domain.ErrValidation)
}

func TestMemoryRepository_FindPeriodsOrdersByProximity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)

	early, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 1), day(2026, 1, 3))
	require.NoError(t, err)
	late, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 14), day(2026, 1, 16))
	require.NoError(t, err)
	_, err = repo.CreatePeriod(ctx, h.ID, day(2026, 3, 1), day(2026, 3, 1))
	require.NoError(t, err)

	found, err := repo.FindPeriods(ctx, h.ID, day(2026, 1, 10), 7)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, late.ID, found[0].ID, "4 days away beats 7 days away")
	assert.Equal(t, early.ID, found[1].ID)

	other := newHousehold(t, repo, 1)
	found, err = repo.FindPeriods(ctx, other.ID, day(2026, 1, 10), 7)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryRepository_FindPeriodsTieBreaksOnNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)

	older, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 1), day(2026, 1, 1))
	require.NoError(t, err)
	newer, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 9), day(2026, 1, 9))
	require.NoError(t, err)
	require.Greater(t, newer.ID, older.ID)

	found, err := repo.FindPeriods(ctx, h.ID, day(2026, 1, 5), 7)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, newer.ID, found[0].ID)
}

func TestMemoryRepository_AttachRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)
	p, err := repo.CreatePeriod(ctx, h.ID, day(2026, 2, 1), day(2026, 2, 1))
	require.NoError(t, err)

	r := attach(t, repo, p, day(2026, 2, 1), 4)
	assert.Equal(t, p.ID, r.TrackingPeriodID)

	has, err := repo.HasRecord(ctx, h.ID, day(2026, 2, 1))
	require.NoError(t, err)
	assert.True(t, has)

	dup, err := domain.NewWasteRecord(h.ID, day(2026, 2, 1), 1, "test")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.AttachRecord(ctx, p.ID, dup), domain.ErrDuplicateRecord)

	foreign, err := domain.NewWasteRecord("another-household", day(2026, 2, 2), 1, "test")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.AttachRecord(ctx, p.ID, foreign), domain.ErrValidation)

	records, err := repo.PeriodRecords(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryRepository_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)
	p, err := repo.CreatePeriod(ctx, h.ID, day(2026, 2, 1), day(2026, 2, 1))
	require.NoError(t, err)

	p.Status = domain.StatusVoid
	got, err := repo.GetPeriod(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProgress, got.Status)
}

func TestMemoryRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)
	p, err := repo.CreatePeriod(ctx, h.ID, day(2026, 2, 1), day(2026, 2, 1))
	require.NoError(t, err)

	require.NoError(t, repo.TransitionStatus(ctx, p.ID, domain.StatusProgress, domain.StatusVoid))

	err = repo.TransitionStatus(ctx, p.ID, domain.StatusProgress, domain.StatusComplete)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	err = repo.TransitionStatus(ctx, p.ID, domain.StatusVoid, domain.StatusProgress)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = repo.TransitionStatus(ctx, "missing", domain.StatusProgress, domain.StatusVoid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepository_FindProgressPeriodsOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)

	stale, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 1), day(2026, 1, 2))
	require.NoError(t, err)
	attach(t, repo, stale, day(2026, 1, 1), 1)
	attach(t, repo, stale, day(2026, 1, 2), 1)

	onCutoff, err := repo.CreatePeriod(ctx, h.ID, day(2026, 1, 20), day(2026, 1, 20))
	require.NoError(t, err)
	attach(t, repo, onCutoff, day(2026, 1, 20), 1)

	got, err := repo.FindProgressPeriodsOlderThan(ctx, day(2026, 1, 20))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].Period.ID)
	assert.Equal(t, 2, got[0].Members)
}

func TestMemoryRepository_GlobalStatsHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.LatestGlobalStats(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	g := domain.NewGlobalStats()
	g.Version, g.LitresPerPersonPerWeek = 1, 4
	require.NoError(t, repo.SaveGlobalStats(ctx, g))
	g.Version, g.LitresPerPersonPerWeek = 2, 6
	require.NoError(t, repo.SaveGlobalStats(ctx, g))

	latest, err := repo.LatestGlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, 6.0, latest.LitresPerPersonPerWeek)
}

func TestMemoryRepository_WithinHouseholdSerializes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	h := newHousehold(t, repo, 1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithinHousehold(ctx, h.ID, func(ctx context.Context, tx Store) error {
				found, err := tx.FindPeriods(ctx, h.ID, day(2026, 4, 1), 7)
				if err != nil {
					return err
				}
				if len(found) > 0 {
					return nil
				}
				if _, err := tx.CreatePeriod(ctx, h.ID, day(2026, 4, 1), day(2026, 4, 1)); err != nil {
					return err
				}
				mu.Lock()
				created++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "check-then-create must not race")
}

func TestMemoryRepository_WithinHouseholdPropagatesErrors(t *testing.T) {
	repo := NewMemoryRepository()
	boom := errors.New("boom")

	err := repo.WithinHousehold(context.Background(), "H1", func(context.Context, Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = repo.WithinHousehold(ctx, "H1", func(context.Context, Store) error {
		t.Fatal("callback must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
