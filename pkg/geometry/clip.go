package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/veloreach/veloreach/pkg/geo"
)

// Clipper restricts geometries to an area of interest. Clipping a line
// may split it into multiple disjoint pieces; a line entirely outside
// the area clips to nothing.
type Clipper interface {
	Contains(p orb.Point) bool
	ClipLine(ls orb.LineString) []orb.LineString
}

// NoClip keeps every geometry intact, for whole-extract graphs.
type NoClip struct{}

func (NoClip) Contains(orb.Point) bool { return true }

func (NoClip) ClipLine(ls orb.LineString) []orb.LineString {
	if len(ls) < 2 {
		return nil
	}
	return []orb.LineString{ls}
}

// Disc is a clipping area of fixed radius around a reference point.
// orb points are (lon, lat).
type Disc struct {
	Center   orb.Point
	RadiusKm float64
}

func NewDisc(centerLat, centerLon, radiusKm float64) Disc {
	return Disc{Center: orb.Point{centerLon, centerLat}, RadiusKm: radiusKm}
}

func (d Disc) Contains(p orb.Point) bool {
	return geo.CalculateHaversineDistance(d.Center.Lat(), d.Center.Lon(), p.Lat(), p.Lon()) <= d.RadiusKm
}

// ClipLine walks the line and cuts it at boundary crossings. Crossing
// points are located by bisection on the segment, which is accurate
// enough at street-segment scale.
func (d Disc) ClipLine(ls orb.LineString) []orb.LineString {
	var pieces []orb.LineString
	var current orb.LineString

	flush := func() {
		if len(current) >= 2 {
			pieces = append(pieces, current)
		}
		current = nil
	}

	for i := 0; i < len(ls); i++ {
		inside := d.Contains(ls[i])
		if i == 0 {
			if inside {
				current = append(current, ls[i])
			}
			continue
		}

		prevInside := d.Contains(ls[i-1])
		switch {
		case prevInside && inside:
			current = append(current, ls[i])
		case prevInside && !inside:
			current = append(current, d.boundaryCrossing(ls[i-1], ls[i]))
			flush()
		case !prevInside && inside:
			current = append(current, d.boundaryCrossing(ls[i], ls[i-1]), ls[i])
		default:
			// both outside; a chord crossing the disc between two
			// outside vertices is shorter than any street segment we
			// care about, skip it
		}
	}
	flush()

	return pieces
}

// boundaryCrossing finds the point where the segment from inside to
// outside crosses the disc boundary.
func (d Disc) boundaryCrossing(inside, outside orb.Point) orb.Point {
	lo, hi := 0.0, 1.0
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		p := interpolate(inside, outside, mid)
		if d.Contains(p) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return interpolate(inside, outside, lo)
}

func interpolate(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
	}
}

// BoundClip clips to a rectangular orb.Bound using orb's clip package.
type BoundClip struct {
	Bound orb.Bound
}

func NewBoundClip(b orb.Bound) BoundClip {
	return BoundClip{Bound: b}
}

func (b BoundClip) Contains(p orb.Point) bool {
	return b.Bound.Contains(p)
}

func (b BoundClip) ClipLine(ls orb.LineString) []orb.LineString {
	multi := clip.LineString(b.Bound, ls.Clone())
	pieces := make([]orb.LineString, 0, len(multi))
	for _, piece := range multi {
		if len(piece) >= 2 {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
