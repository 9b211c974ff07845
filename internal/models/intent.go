// internal/models/intent.go
package models

// IntentKind is the classified purpose of a query.
type IntentKind string

const (
	IntentLocation IntentKind = "location"
	IntentCurrency IntentKind = "currency"
	IntentService  IntentKind = "service"
	IntentSupport  IntentKind = "support"
	IntentGeneral  IntentKind = "general"
)

// Language is one of the supported query languages.
type Language string

const (
	LanguageEnglish     Language = "en"
	LanguageAzerbaijani Language = "az"
	LanguageRussian     Language = "ru"
)

// SupportedLanguages lists languages in priority order. The first entry is the primary language.
var SupportedLanguages = []Language{LanguageEnglish, LanguageAzerbaijani, LanguageRussian}

// ReferenceKind tells which point was used to rank locations.
type ReferenceKind string

const (
	ReferenceLandmark ReferenceKind = "landmark"
	ReferenceUser     ReferenceKind = "user"
	ReferenceDefault  ReferenceKind = "default"
	ReferenceNone     ReferenceKind = "none"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Landmark struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// Entities is the structured bag extracted from the query text.
type Entities struct {
	Subtype           string       `json:"subtype,omitempty"`
	Subtypes          []string     `json:"subtypes,omitempty"`
	DetectedLandmark  *Landmark    `json:"detectedLandmark,omitempty"`
	UserLocation      *Coordinates `json:"userLocation,omitempty"`
	LocationReference string       `json:"locationReference,omitempty"`
	Amounts           []string     `json:"amounts,omitempty"`
	Phones            []string     `json:"phones,omitempty"`
	TimeReferences    []string     `json:"timeReferences,omitempty"`
	CurrencyCodes     []string     `json:"currencyCodes,omitempty"`
}

// ReferencePoint resolves the ranking origin: a detected landmark wins over the
// caller-supplied location, which wins over nothing.
func (e Entities) ReferencePoint() (*Coordinates, ReferenceKind) {
	if e.DetectedLandmark != nil {
		c := e.DetectedLandmark.Coordinates
		return &c, ReferenceLandmark
	}
	if e.UserLocation != nil {
		c := *e.UserLocation
		return &c, ReferenceUser
	}
	return nil, ReferenceNone
}

// HasLocationHint reports whether anything in the bag points at a place.
func (e Entities) HasLocationHint() bool {
	return e.Subtype != "" || e.DetectedLandmark != nil || e.LocationReference != ""
}

// Intent is produced once per query by the analyzer and not modified afterwards.
type Intent struct {
	Kind       IntentKind `json:"kind"`
	Confidence float64    `json:"confidence"`
	Language   Language   `json:"language"`
	Entities   Entities   `json:"entities"`
}
