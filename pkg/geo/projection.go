package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// ProjectPointToLineCoord returns the point on the segment (a, b)
// closest to snap. s2.Project clamps the projection to the segment, so
// the result never lies outside (a, b).
func ProjectPointToLineCoord(a, b, snap datastructure.Coordinate) datastructure.Coordinate {
	if a == b {
		return a
	}
	aS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	bS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, aS2, bS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return datastructure.NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// NearestPointOnLine projects p onto every segment of the polyline and
// returns the closest projection, the index of the segment it lies on,
// and the distance from p to it in kilometers.
func NearestPointOnLine(line []datastructure.Coordinate, p datastructure.Coordinate) (datastructure.Coordinate, int, float64) {
	if len(line) == 1 {
		return line[0], 0, CalculateHaversineDistance(p.Lat, p.Lon, line[0].Lat, line[0].Lon)
	}

	best := line[0]
	bestSeg := 0
	bestDist := math.MaxFloat64

	for i := 0; i < len(line)-1; i++ {
		proj := ProjectPointToLineCoord(line[i], line[i+1], p)
		dist := CalculateHaversineDistance(p.Lat, p.Lon, proj.Lat, proj.Lon)
		if dist < bestDist {
			bestDist = dist
			bestSeg = i
			best = proj
		}
	}
	return best, bestSeg, bestDist
}

// OffsetAlongLine returns the distance in kilometers from the start of
// the polyline to a projection that lies on segment segIdx.
func OffsetAlongLine(line []datastructure.Coordinate, segIdx int, proj datastructure.Coordinate) float64 {
	offset := 0.0
	for i := 0; i < segIdx && i < len(line)-1; i++ {
		offset += CalculateHaversineDistance(line[i].Lat, line[i].Lon, line[i+1].Lat, line[i+1].Lon)
	}
	offset += CalculateHaversineDistance(line[segIdx].Lat, line[segIdx].Lon, proj.Lat, proj.Lon)
	return offset
}
