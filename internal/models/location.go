// internal/models/location.go
package models

// Location service subtypes.
const (
	SubtypeBranch          = "branch"
	SubtypeATM             = "atm"
	SubtypeCashIn          = "cash_in"
	SubtypePaymentTerminal = "payment_terminal"
	SubtypeExchange        = "exchange"
)

// AllSubtypes is the full set of location service subtypes.
var AllSubtypes = []string{
	SubtypeBranch,
	SubtypeATM,
	SubtypeCashIn,
	SubtypePaymentTerminal,
	SubtypeExchange,
}

// Location is the uniform record every location source normalizes into.
type Location struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ServiceType  string            `json:"serviceType"`
	Address      string            `json:"address"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	WorkingHours map[string]string `json:"workingHours"`
	Contact      string            `json:"contact"`
	Features     []string          `json:"features,omitempty"`
	DistanceKm   *float64          `json:"distanceKm,omitempty"`
	Source       string            `json:"source"`
}

func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// HasFeature reports whether the feature set contains f.
func (l Location) HasFeature(f string) bool {
	for _, x := range l.Features {
		if x == f {
			return true
		}
	}
	return false
}
