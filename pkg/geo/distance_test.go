package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veloreach/veloreach/pkg/datastructure"
)

func TestHaversineDistance(t *testing.T) {
	// solo balapan station -> gramedia slamet riyadi, roughly 1.4 km
	dist := CalculateHaversineDistance(-7.556048, 110.821663, -7.567422, 110.815791)
	assert.InDelta(t, 1.4, dist, 0.2)

	assert.Equal(t, 0.0, CalculateHaversineDistance(-7.5, 110.8, -7.5, 110.8))
}

func TestLineLengthKm(t *testing.T) {
	line := []datastructure.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
		{Lat: 0, Lon: 0.02},
	}
	// ~1.112 km per 0.01 degree of longitude at the equator
	assert.InDelta(t, 2.224, LineLengthKm(line), 0.01)

	assert.Equal(t, 0.0, LineLengthKm(line[:1]))
}

func TestGetDestinationPoint(t *testing.T) {
	lat, lon := GetDestinationPoint(0, 0, 90, 1.0)
	assert.InDelta(t, 0.0, lat, 1e-6)
	assert.InDelta(t, 1.0, CalculateHaversineDistance(0, 0, lat, lon), 1e-6)
}

func TestNearestPointOnLine(t *testing.T) {
	line := []datastructure.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
	}
	p := datastructure.NewCoordinate(0.001, 0.005)

	proj, segIdx, dist := NearestPointOnLine(line, p)
	assert.Equal(t, 0, segIdx)
	assert.InDelta(t, 0.005, proj.Lon, 1e-5)
	assert.InDelta(t, 0.0, proj.Lat, 1e-5)
	assert.InDelta(t, 0.111, dist, 0.01)

	offset := OffsetAlongLine(line, segIdx, proj)
	assert.InDelta(t, 0.556, offset, 0.01)
}

func TestNearestPointOnLineClampsToEndpoint(t *testing.T) {
	line := []datastructure.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
	}
	// west of the start point: projection clamps to the first vertex
	p := datastructure.NewCoordinate(0, -0.01)

	proj, _, _ := NearestPointOnLine(line, p)
	assert.InDelta(t, 0.0, proj.Lon, 1e-6)
}
