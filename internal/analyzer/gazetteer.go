// internal/analyzer/gazetteer.go
package analyzer

import (
	"strings"

	"banking-assistant/internal/models"
)

// GazetteerEntry is one known landmark with its names in every supported language.
type GazetteerEntry struct {
	Name        string
	Coordinates models.Coordinates
	Aliases     []string
}

// Gazetteer resolves landmark names to coordinates.
type Gazetteer struct {
	entries []GazetteerEntry
}

// DefaultGazetteer covers well-known Baku landmarks.
var DefaultGazetteer = []GazetteerEntry{
	{Name: "Flame Towers", Coordinates: models.Coordinates{Latitude: 40.3595, Longitude: 49.8266},
		Aliases: []string{"flame towers", "flame tower", "alov qüllələri", "alov qulleleri", "пламенные башни"}},
	{Name: "Maiden Tower", Coordinates: models.Coordinates{Latitude: 40.3663, Longitude: 49.8372},
		Aliases: []string{"maiden tower", "qız qalası", "qiz qalasi", "девичья башня"}},
	{Name: "Fountains Square", Coordinates: models.Coordinates{Latitude: 40.3702, Longitude: 49.8366},
		Aliases: []string{"fountains square", "fountain square", "fəvvarələr meydanı", "fevvareler meydani", "площадь фонтанов"}},
	{Name: "Old City", Coordinates: models.Coordinates{Latitude: 40.3661, Longitude: 49.8338},
		Aliases: []string{"old city", "icherisheher", "içərişəhər", "icerisheher", "старый город", "ичеришехер"}},
	{Name: "Heydar Aliyev Center", Coordinates: models.Coordinates{Latitude: 40.3959, Longitude: 49.8678},
		Aliases: []string{"heydar aliyev center", "heydar aliyev centre", "heydər əliyev mərkəzi", "центр гейдара алиева"}},
	{Name: "Baku Boulevard", Coordinates: models.Coordinates{Latitude: 40.3667, Longitude: 49.8428},
		Aliases: []string{"baku boulevard", "seaside boulevard", "dənizkənarı bulvar", "bulvar", "приморский бульвар", "бульвар"}},
	{Name: "28 Mall", Coordinates: models.Coordinates{Latitude: 40.3794, Longitude: 49.8486},
		Aliases: []string{"28 mall"}},
	{Name: "Ganjlik Mall", Coordinates: models.Coordinates{Latitude: 40.4007, Longitude: 49.8516},
		Aliases: []string{"ganjlik mall", "gənclik mall", "ganjlik", "gənclik", "гянджлик"}},
	{Name: "Nizami Street", Coordinates: models.Coordinates{Latitude: 40.3730, Longitude: 49.8433},
		Aliases: []string{"nizami street", "nizami küçəsi", "улица низами", "torgovaya", "торговая"}},
	{Name: "Baku Railway Station", Coordinates: models.Coordinates{Latitude: 40.3800, Longitude: 49.8490},
		Aliases: []string{"railway station", "28 may", "dəmiryol vağzalı", "вокзал"}},
	{Name: "Crystal Hall", Coordinates: models.Coordinates{Latitude: 40.3442, Longitude: 49.8503},
		Aliases: []string{"crystal hall", "kristal zal", "кристал холл"}},
	{Name: "Heydar Aliyev International Airport", Coordinates: models.Coordinates{Latitude: 40.4675, Longitude: 50.0467},
		Aliases: []string{"airport", "hava limanı", "aeroport", "аэропорт"}},
}

// NewGazetteer builds a gazetteer; aliases are folded once here.
func NewGazetteer(entries []GazetteerEntry) *Gazetteer {
	folded := make([]GazetteerEntry, len(entries))
	for i, e := range entries {
		aliases := make([]string, 0, len(e.Aliases)+1)
		aliases = append(aliases, fold(e.Name))
		for _, a := range e.Aliases {
			aliases = append(aliases, fold(a))
		}
		folded[i] = GazetteerEntry{Name: e.Name, Coordinates: e.Coordinates, Aliases: aliases}
	}
	return &Gazetteer{entries: folded}
}

// Lookup returns the landmark named in text. When several aliases match, the
// longest one wins so "28 mall" is preferred over a shorter overlapping alias.
func (g *Gazetteer) Lookup(text string) (*models.Landmark, bool) {
	if text == "" {
		return nil, false
	}
	folded := fold(text)

	var (
		best    *GazetteerEntry
		bestLen int
	)
	for i := range g.entries {
		for _, alias := range g.entries[i].Aliases {
			if len(alias) > bestLen && strings.Contains(folded, alias) {
				best, bestLen = &g.entries[i], len(alias)
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return &models.Landmark{Name: best.Name, Coordinates: best.Coordinates}, true
}

// Resolve tries the extracted location reference first, then the whole query.
func (g *Gazetteer) Resolve(reference, query string) (*models.Landmark, bool) {
	if lm, ok := g.Lookup(reference); ok {
		return lm, true
	}
	return g.Lookup(query)
}
