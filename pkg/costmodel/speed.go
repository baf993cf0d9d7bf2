package costmodel

import (
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// Cycling speed model. Downhill gives a mild bonus, uphill a steeper
// penalty, both clamped to [MinSpeedKmh, MaxSpeedKmh].
const (
	DefaultSpeedKmh = 20.0
	MaxSpeedKmh     = 30.0
	MinSpeedKmh     = 5.0

	downhillBonusPerPct = 0.8
	uphillPenaltyPerPct = 1.4
)

// GradientSpeed returns the expected cycling speed in km/h for a signed
// percentage grade (positive = uphill in direction of travel).
// GradientSpeed(0) == DefaultSpeedKmh exactly.
func GradientSpeed(gradientPct float64) float64 {
	if gradientPct < 0 {
		speed := DefaultSpeedKmh + downhillBonusPerPct*(-gradientPct)
		if speed > MaxSpeedKmh {
			return MaxSpeedKmh
		}
		return speed
	}
	speed := DefaultSpeedKmh - uphillPenaltyPerPct*gradientPct
	if speed < MinSpeedKmh {
		return MinSpeedKmh
	}
	return speed
}

// GradientSource estimates the signed percentage grade of a line
// geometry, in direction of travel. Implementations typically sample an
// elevation raster; the cost model treats it as a black box.
type GradientSource interface {
	Gradient(line []datastructure.Coordinate) float64
}

// ConstantGradient is a GradientSource returning a fixed grade. Used
// when no elevation model is available (flat terrain assumption).
type ConstantGradient float64

func (c ConstantGradient) Gradient(_ []datastructure.Coordinate) float64 {
	return float64(c)
}
