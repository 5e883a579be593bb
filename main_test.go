package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nholding/trashinator/internal/volume"
)

func TestPerPersonPerWeek(t *testing.T) {
	tests := []struct {
		name   string
		litres float64
		unit   volume.Unit
		want   string
	}{
		{"litres", 12, volume.Litres, "12.00 litres/person/week"},
		{"gallons", 37.85411784, volume.Gallons, "10.00 gallons/person/week"},
		{"gallons rounded", 10, volume.Gallons, "2.64 gallons/person/week"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := perPersonPerWeek(tt.litres, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := perPersonPerWeek(1, volume.Unit("barrels"))
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("2026-03-20")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-20", d.Format("2006-01-02"))

	_, err = parseDay("20/03/2026")
	assert.Error(t, err)
}
