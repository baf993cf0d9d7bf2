package geo

import (
	"math"

	"github.com/veloreach/veloreach/pkg/datastructure"
)

const (
	earthRadiusKM = 6371.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func radiansToDegree(angle float64) float64 {
	return angle * (180.0 / math.Pi)
}

// CalculateHaversineDistance returns the great-circle distance between
// two coordinates in kilometers.
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	longOne = degreeToRadians(longOne)
	latTwo = degreeToRadians(latTwo)
	longTwo = degreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// LineLengthKm returns the length of a polyline in kilometers.
func LineLengthKm(line []datastructure.Coordinate) float64 {
	total := 0.0
	if len(line) < 2 {
		return total
	}
	for i := 1; i < len(line); i++ {
		total += CalculateHaversineDistance(line[i-1].Lat, line[i-1].Lon, line[i].Lat, line[i].Lon)
	}
	return total
}

// GetDestinationPoint returns the point reached after travelling
// distanceKm from (lat, lon) on the given initial bearing (degrees).
func GetDestinationPoint(lat, lon float64, bearingDeg, distanceKm float64) (float64, float64) {
	latRad := degreeToRadians(lat)
	lonRad := degreeToRadians(lon)
	bearing := degreeToRadians(bearingDeg)
	angular := distanceKm / earthRadiusKM

	destLat := math.Asin(math.Sin(latRad)*math.Cos(angular) +
		math.Cos(latRad)*math.Sin(angular)*math.Cos(bearing))
	destLon := lonRad + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(destLat))

	return radiansToDegree(destLat), radiansToDegree(destLon)
}
