package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStableID(t *testing.T) {
	a := GenerateStableID()
	b := GenerateStableID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestGenerateBusinessKey(t *testing.T) {
	k1 := GenerateBusinessKey("R1", map[string]string{"household": "H1", "date": "2026-01-05"})
	k2 := GenerateBusinessKey("R1", map[string]string{"date": "2026-01-05", "household": " h1 "})
	k3 := GenerateBusinessKey("R1", map[string]string{"household": "H1", "date": "2026-01-06"})

	assert.Equal(t, k1, k2, "field order and case must not matter")
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "R1_")
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", date(2026, 1, 1), date(2026, 1, 1), 0},
		{"one week forward", date(2026, 1, 1), date(2026, 1, 8), 7},
		{"one week back", date(2026, 1, 8), date(2026, 1, 1), -7},
		{"across month", date(2026, 1, 30), date(2026, 2, 2), 3},
		{"ignores clock", time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC), date(2026, 3, 2), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b))
		})
	}
}

func TestDayKeepsWallDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	in := time.Date(2026, 5, 3, 1, 30, 0, 0, loc)

	assert.Equal(t, date(2026, 5, 3), Day(in))
	assert.Equal(t, date(2026, 4, 28), AddDays(in, -5))
	assert.Equal(t, "2026-05-03", FormatDay(Day(in)))
}

func TestDateInRange(t *testing.T) {
	start, end := date(2026, 1, 1), date(2026, 1, 7)

	assert.True(t, DateInRange(start, start, end))
	assert.True(t, DateInRange(end, start, end))
	assert.True(t, DateInRange(date(2026, 1, 4), start, end))
	assert.False(t, DateInRange(date(2026, 1, 8), start, end))
}

func TestNamedLocksExclusion(t *testing.T) {
	var (
		locks   NamedLocks
		wg      sync.WaitGroup
		counter int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := locks.Lock("household")
			defer l.Unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.Len(), "released locks must be dropped")
}

func TestNamedLocksIndependentNames(t *testing.T) {
	var locks NamedLocks

	a := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		b := locks.Lock("b")
		b.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock b blocked on lock a")
	}
	assert.Equal(t, 1, locks.Len())
	a.Unlock()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
