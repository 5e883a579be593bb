package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"L", Litres, false},
		{" litres ", Litres, false},
		{"liter", Litres, false},
		{"gal", Gallons, false},
		{"Gallons", Gallons, false},
		{"pints", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGallonRoundTrip(t *testing.T) {
	litres, err := ToLitres(2.5, Gallons)
	require.NoError(t, err)
	assert.InDelta(t, 9.46352946, litres, 1e-9)

	gallons, err := FromLitres(litres, Gallons)
	require.NoError(t, err)
	assert.Equal(t, 2.5, gallons)
}

func TestLitresPassThrough(t *testing.T) {
	v, err := ToLitres(5, Litres)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	v, err = FromLitres(5, Litres)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	_, err = FromLitres(5, Unit("barrels"))
	assert.Error(t, err)
}
