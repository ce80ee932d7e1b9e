// Package geo estimates travel distance and time between venues from their
// geocoded locations. Road-network routing is out of scope; haversine at an
// average effective speed is accurate enough for admissibility checks.
package geo

import (
	"math"
	"time"

	"github.com/courtside/refassign/internal/domain/model"
)

const (
	earthRadiusMi = 3958.8

	// Effective door-to-door speed, accounting for local roads and parking.
	averageSpeedMph = 30.0

	// Floor for any trip between two distinct venues.
	minTravelTime = 5 * time.Minute
)

// DistanceMi returns the haversine distance between two points in miles.
func DistanceMi(a, b model.GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMi * math.Asin(math.Sqrt(h))
}

// TravelTime estimates door-to-door travel between two venues. Identical
// venues cost nothing; distinct venues cost at least minTravelTime.
func TravelTime(from, to *model.Venue) time.Duration {
	if from == nil || to == nil || from.ID == to.ID {
		return 0
	}
	miles := DistanceMi(from.Location, to.Location)
	d := time.Duration(miles / averageSpeedMph * float64(time.Hour))
	if d < minTravelTime {
		return minTravelTime
	}
	return d
}

// VenueDistanceMi returns the distance between two venues in miles, zero for
// identical or unknown venues.
func VenueDistanceMi(from, to *model.Venue) float64 {
	if from == nil || to == nil || from.ID == to.ID {
		return 0
	}
	return DistanceMi(from.Location, to.Location)
}
