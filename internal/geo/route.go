// internal/geo/route.go
package geo

import (
	"banking-assistant/internal/models"
)

// NearestNeighborRoute orders stops by repeatedly visiting the closest
// unvisited one, starting from start. It is a greedy heuristic and makes no
// claim of producing the shortest tour.
func NearestNeighborRoute(start models.Coordinates, stops []models.Location) []models.RouteStop {
	remaining := make([]models.Location, 0, len(stops))
	for _, s := range stops {
		if Valid(s.Coordinates()) {
			remaining = append(remaining, s)
		}
	}

	route := make([]models.RouteStop, 0, len(remaining))
	current := start
	for len(remaining) > 0 {
		best := 0
		bestDist := Haversine(current, remaining[0].Coordinates())
		for i := 1; i < len(remaining); i++ {
			if d := Haversine(current, remaining[i].Coordinates()); d < bestDist {
				best, bestDist = i, d
			}
		}

		next := remaining[best]
		route = append(route, models.RouteStop{
			LocationID: next.ID,
			Name:       next.Name,
			LegKm:      round3(bestDist),
		})
		current = next.Coordinates()
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return route
}

// EstimateTravelMinutes is a linear estimate: driving time at speedKmh plus a
// fixed dwell per stop.
func EstimateTravelMinutes(distanceKm float64, stops int, speedKmh, minutesPerStop float64) float64 {
	if speedKmh <= 0 {
		return minutesPerStop * float64(stops)
	}
	return distanceKm/speedKmh*60 + minutesPerStop*float64(stops)
}

// PlanRoute builds a greedy route from start through stops with a travel estimate.
func PlanRoute(start models.Coordinates, stops []models.Location, speedKmh, minutesPerStop float64) *models.RoutePlan {
	ordered := NearestNeighborRoute(start, stops)
	if len(ordered) == 0 {
		return nil
	}

	var total float64
	for _, s := range ordered {
		total += s.LegKm
	}
	total = round3(total)

	return &models.RoutePlan{
		Stops:            ordered,
		TotalKm:          total,
		EstimatedMinutes: round1(EstimateTravelMinutes(total, len(ordered), speedKmh, minutesPerStop)),
	}
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
