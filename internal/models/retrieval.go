// internal/models/retrieval.go
package models

// RouteStop is one leg of a planned visit order.
type RouteStop struct {
	LocationID string  `json:"locationId"`
	Name       string  `json:"name"`
	LegKm      float64 `json:"legKm"`
}

// RoutePlan is a greedy visiting order with a linear travel-time estimate.
type RoutePlan struct {
	Stops            []RouteStop `json:"stops"`
	TotalKm          float64     `json:"totalKm"`
	EstimatedMinutes float64     `json:"estimatedMinutes"`
}

// RetrievalResult is built per query by the orchestrator and never persisted.
type RetrievalResult struct {
	Locations      []Location       `json:"locations"`
	TotalLocations int              `json:"totalLocations"`
	Currency       *CurrencyRateSet `json:"currency,omitempty"`
	DataSources    []string         `json:"dataSources"`
	ReferencePoint *Coordinates     `json:"referencePoint,omitempty"`
	ReferenceKind  ReferenceKind    `json:"referenceKind"`
	Route          *RoutePlan       `json:"route,omitempty"`
}

// Empty reports whether no upstream data was gathered.
func (r *RetrievalResult) Empty() bool {
	return r == nil || (len(r.Locations) == 0 && r.Currency == nil)
}
