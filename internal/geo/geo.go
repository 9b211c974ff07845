// internal/geo/geo.go
package geo

import (
	"math"
	"sort"

	"banking-assistant/internal/models"
)

// EarthRadiusKm is the mean Earth radius (IUGG).
const EarthRadiusKm = 6371.0088

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Valid reports whether c is a usable coordinate pair. The 0,0 pair is treated
// as a missing value rather than a real location.
func Valid(c models.Coordinates) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return false
	}
	return !(c.Latitude == 0 && c.Longitude == 0)
}

// RankByDistance returns copies of the valid locations within radiusKm of ref,
// sorted nearest first with DistanceKm set. radiusKm <= 0 disables the cutoff.
// Equal distances keep their input order.
func RankByDistance(ref models.Coordinates, locations []models.Location, radiusKm float64) []models.Location {
	ranked := make([]models.Location, 0, len(locations))
	for _, loc := range locations {
		if !Valid(loc.Coordinates()) {
			continue
		}
		d := round3(Haversine(ref, loc.Coordinates()))
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		loc.DistanceKm = &d
		ranked = append(ranked, loc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].DistanceKm < *ranked[j].DistanceKm
	})
	return ranked
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
