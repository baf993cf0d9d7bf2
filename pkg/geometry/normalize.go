package geometry

import (
	"log"

	"github.com/paulmach/orb"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// Normalize converts heterogeneous raw geometries into a canonical set
// of simple line geometries clipped to the area of interest:
//
//   - polygon rings become their boundary linestrings
//   - non-line geometry is discarded
//   - every line is clipped, which may split it into multiple pieces
//   - multi-part results are exploded into single simple lines
//
// A geometry that clips to an empty result is dropped, not an error.
func Normalize(raw []orb.Geometry, clipper Clipper) []orb.LineString {
	out := make([]orb.LineString, 0, len(raw))
	dropped := 0

	for _, g := range raw {
		for _, line := range toLines(g) {
			pieces := clipper.ClipLine(line)
			if len(pieces) == 0 {
				dropped++
				continue
			}
			out = append(out, pieces...)
		}
	}

	if dropped > 0 {
		log.Printf("normalizer: %d line(s) clipped to empty and dropped", dropped)
	}
	return out
}

// toLines flattens one raw geometry into zero or more linestrings.
func toLines(g orb.Geometry) []orb.LineString {
	switch geom := g.(type) {
	case orb.LineString:
		return []orb.LineString{geom}
	case orb.MultiLineString:
		return geom
	case orb.Ring:
		return []orb.LineString{orb.LineString(geom)}
	case orb.Polygon:
		lines := make([]orb.LineString, 0, len(geom))
		for _, ring := range geom {
			lines = append(lines, orb.LineString(ring))
		}
		return lines
	case orb.MultiPolygon:
		var lines []orb.LineString
		for _, poly := range geom {
			for _, ring := range poly {
				lines = append(lines, orb.LineString(ring))
			}
		}
		return lines
	default:
		// points and collections carry no routable centerline
		return nil
	}
}

// ToCoordinates converts an orb linestring (lon, lat order) into the
// graph's coordinate slices (lat, lon order).
func ToCoordinates(ls orb.LineString) []datastructure.Coordinate {
	coords := make([]datastructure.Coordinate, len(ls))
	for i, p := range ls {
		coords[i] = datastructure.NewCoordinate(p.Lat(), p.Lon())
	}
	return coords
}
