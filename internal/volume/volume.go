// Package volume converts waste volumes between the stored unit (litres) and
// the units users enter or read.
package volume

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LitresPerGallon is the size of one US liquid gallon in litres.
const LitresPerGallon = 3.785411784

// Unit identifies a volume unit accepted at the boundary.
type Unit string

const (
	Litres  Unit = "litres"
	Gallons Unit = "gallons"
)

// ParseUnit accepts the usual spellings of the supported units.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "litre", "litres", "liter", "liters":
		return Litres, nil
	case "gal", "gallon", "gallons":
		return Gallons, nil
	default:
		return "", fmt.Errorf("unknown volume unit %q", s)
	}
}

// ToLitres converts an amount in unit u to litres.
func ToLitres(amount float64, u Unit) (float64, error) {
	switch u {
	case Litres:
		return amount, nil
	case Gallons:
		return amount * LitresPerGallon, nil
	default:
		return 0, fmt.Errorf("unknown volume unit %q", u)
	}
}

// FromLitres converts litres to unit u. Gallons are rounded to 2 decimals, the
// precision they are displayed with.
func FromLitres(litres float64, u Unit) (float64, error) {
	switch u {
	case Litres:
		return litres, nil
	case Gallons:
		v, _ := decimal.NewFromFloat(litres).
			DivRound(decimal.NewFromFloat(LitresPerGallon), 2).
			Float64()
		return v, nil
	default:
		return 0, fmt.Errorf("unknown volume unit %q", u)
	}
}
