// internal/fetchers/normalize.go
package fetchers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"banking-assistant/internal/geo"
	"banking-assistant/internal/models"
)

// Payload shapes understood by the http location source.
const (
	ShapeBranchAPI = "branch_api"
	ShapeGeoJSON   = "geojson"
)

const roundTheClock = "24/7"

// Weekdays in the order used for working hours.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// NormalizeOptions carries what a normalizer needs besides the body.
type NormalizeOptions struct {
	Source         string
	Subtype        string
	DefaultContact string
}

// Normalizer converts one upstream payload shape into locations. It returns
// the number of records dropped for missing or invalid coordinates.
type Normalizer func(body []byte, opts NormalizeOptions) ([]models.Location, int, error)

var normalizers = map[string]Normalizer{
	ShapeBranchAPI: normalizeBranchAPI,
	ShapeGeoJSON:   normalizeGeoJSON,
}

// NormalizerFor returns the normalizer registered for shape.
func NormalizerFor(shape string) (Normalizer, bool) {
	n, ok := normalizers[shape]
	return n, ok
}

// DefaultHours returns standard business hours, or round-the-clock hours when
// the machine is flagged as always available.
func DefaultHours(alwaysOpen bool) map[string]string {
	hours := make(map[string]string, len(Weekdays))
	for _, d := range Weekdays {
		hours[d] = roundTheClock
	}
	if alwaysOpen {
		return hours
	}
	for _, d := range Weekdays[:5] {
		hours[d] = "09:00-18:00"
	}
	hours["saturday"] = "10:00-15:00"
	hours["sunday"] = "closed"
	return hours
}

// first returns the first existing value among paths.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// coerceFloat accepts JSON numbers and numeric strings, including a decimal comma.
func coerceFloat(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		s := strings.TrimSpace(strings.Replace(r.Str, ",", ".", 1))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "1", "true", "yes", "y", "24/7":
			return true
		}
	}
	return false
}

// normalizeFeatures lowercases, de-duplicates and sorts.
func normalizeFeatures(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func stringList(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if r.IsArray() {
		var out []string
		for _, item := range r.Array() {
			if item.IsObject() {
				if name := first(item, "name", "code", "title"); name.Exists() {
					out = append(out, name.String())
				}
				continue
			}
			out = append(out, item.String())
		}
		return out
	}
	return strings.Split(r.String(), ",")
}

// dayKey maps "Mon", "monday", "MONDAY" and similar to the canonical key.
func dayKey(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return "", false
	}
	for _, d := range Weekdays {
		if strings.HasPrefix(d, s[:3]) {
			return d, true
		}
	}
	return "", false
}

// parseHours reads working hours from an object keyed by day, an array of
// {day, from, to} or {day, hours} entries, or a single string for every day.
func parseHours(r gjson.Result) map[string]string {
	if !r.Exists() {
		return nil
	}
	hours := make(map[string]string)

	switch {
	case r.IsObject():
		r.ForEach(func(k, v gjson.Result) bool {
			if day, ok := dayKey(k.String()); ok && v.String() != "" {
				hours[day] = strings.TrimSpace(v.String())
			}
			return true
		})
	case r.IsArray():
		for _, item := range r.Array() {
			day, ok := dayKey(first(item, "day", "weekday", "name").String())
			if !ok {
				continue
			}
			if h := first(item, "hours", "value"); h.Exists() {
				hours[day] = strings.TrimSpace(h.String())
				continue
			}
			from, to := item.Get("from").String(), item.Get("to").String()
			if truthy(item.Get("closed")) {
				hours[day] = "closed"
			} else if from != "" && to != "" {
				hours[day] = from + "-" + to
			}
		}
	case r.Type == gjson.String && strings.TrimSpace(r.Str) != "":
		v := strings.TrimSpace(r.Str)
		for _, d := range Weekdays {
			hours[d] = v
		}
	}

	if len(hours) == 0 {
		return nil
	}
	return hours
}

func isAlwaysOpen(hours map[string]string) bool {
	if len(hours) != len(Weekdays) {
		return false
	}
	for _, v := range hours {
		if v != roundTheClock {
			return false
		}
	}
	return true
}

// record is the shape-independent intermediate a normalizer fills in.
type record struct {
	id       string
	name     string
	address  string
	lat, lon gjson.Result
	hours    gjson.Result
	contact  string
	features []string
	always   bool
}

// build applies defaults and validation. It returns false for records that
// cannot be placed on a map.
func (r record) build(opts NormalizeOptions) (models.Location, bool) {
	lat, okLat := coerceFloat(r.lat)
	lon, okLon := coerceFloat(r.lon)
	if !okLat || !okLon || !geo.Valid(models.Coordinates{Latitude: lat, Longitude: lon}) {
		return models.Location{}, false
	}

	subtype := opts.Subtype

	features := r.features
	always := r.always || containsFold(features, roundTheClock) || containsFold(features, "24h")
	hours := parseHours(r.hours)
	if hours == nil {
		hours = DefaultHours(always && (subtype == models.SubtypeATM || subtype == models.SubtypeCashIn))
	}
	if isAlwaysOpen(hours) {
		features = append(features, roundTheClock)
	}

	id := strings.TrimSpace(r.id)
	if id == "" {
		id = fmt.Sprintf("%s:%s:%.5f,%.5f", opts.Source, subtype, lat, lon)
	}
	name := strings.TrimSpace(r.name)
	if name == "" {
		name = strings.TrimSpace(r.address)
	}
	contact := strings.TrimSpace(r.contact)
	if contact == "" {
		contact = opts.DefaultContact
	}

	return models.Location{
		ID:           id,
		Name:         name,
		ServiceType:  subtype,
		Address:      strings.TrimSpace(r.address),
		Latitude:     lat,
		Longitude:    lon,
		WorkingHours: hours,
		Contact:      contact,
		Features:     normalizeFeatures(features),
		Source:       opts.Source,
	}, true
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
