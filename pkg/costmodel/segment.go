package costmodel

import (
	"github.com/pkg/errors"
	"github.com/veloreach/veloreach/pkg/datastructure"
	"github.com/veloreach/veloreach/pkg/geo"
)

var ErrDegenerateSegment = errors.New("segment has zero length")

// Segment is a single attributed street centerline piece. Immutable
// once built.
type Segment struct {
	Geometry      []datastructure.Coordinate
	DistanceKm    float64
	SpeedKmh      float64
	TravelTimeMin float64
	Suitability   datastructure.Suitability
	Oneway        bool
}

// BuildSegment attributes a raw line geometry: length from the
// geometry, speed from the gradient model, suitability from tags,
// travel time = length / speed in minutes.
//
// A zero-length geometry returns the segment together with
// ErrDegenerateSegment so the caller can apply its degenerate policy;
// travel time stays zero and no division by zero happens.
func BuildSegment(geom []datastructure.Coordinate, gradient GradientSource, tags Tags) (Segment, error) {
	seg := Segment{
		Geometry:    geom,
		Suitability: ClassifySuitability(tags),
		Oneway:      tags["oneway"] == "yes",
	}
	seg.DistanceKm = geo.LineLengthKm(geom)
	seg.SpeedKmh = GradientSpeed(gradient.Gradient(geom))

	if seg.DistanceKm == 0 {
		return seg, errors.Wrapf(ErrDegenerateSegment, "%d point(s)", len(geom))
	}

	seg.TravelTimeMin = seg.DistanceKm / seg.SpeedKmh * 60.0
	return seg, nil
}

// NewSegmentFromParts assembles a segment whose speed and suitability
// are already known, recomputing length and travel time from the
// geometry. Used when subdividing an existing edge: sub-edges inherit
// class and speed but never their parent's length or time.
func NewSegmentFromParts(geom []datastructure.Coordinate, speedKmh float64,
	suitability datastructure.Suitability, oneway bool) Segment {
	seg := Segment{
		Geometry:    geom,
		SpeedKmh:    speedKmh,
		Suitability: suitability,
		Oneway:      oneway,
	}
	seg.DistanceKm = geo.LineLengthKm(geom)
	if seg.DistanceKm > 0 && speedKmh > 0 {
		seg.TravelTimeMin = seg.DistanceKm / speedKmh * 60.0
	}
	return seg
}
