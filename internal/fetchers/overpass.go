// internal/fetchers/overpass.go
package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/serjvanilla/go-overpass"
	"github.com/tidwall/gjson"

	"banking-assistant/internal/models"
)

// osmFilters maps a subtype to the OpenStreetMap tag filter selecting it.
var osmFilters = map[string]string{
	models.SubtypeBranch:          `["amenity"="bank"]`,
	models.SubtypeATM:             `["amenity"="atm"]`,
	models.SubtypeCashIn:          `["amenity"="atm"]["cash_in"="yes"]`,
	models.SubtypePaymentTerminal: `["amenity"="payment_terminal"]`,
	models.SubtypeExchange:        `["amenity"="bureau_de_change"]`,
}

var osmDays = map[string]string{
	"mo": "monday", "tu": "tuesday", "we": "wednesday", "th": "thursday",
	"fr": "friday", "sa": "saturday", "su": "sunday",
}

// OverpassSource queries OpenStreetMap nodes inside a bounding box.
type OverpassSource struct {
	name           string
	endpoint       string
	bbox           string
	operator       string
	subtypes       subtypeSet
	defaultContact string
	fetcher        *Fetcher
	logger         Logger
}

func NewOverpassSource(name, endpoint, bbox, operator string, subtypes []string, defaultContact string, fetcher *Fetcher, log Logger) *OverpassSource {
	if len(subtypes) == 0 {
		subtypes = []string{models.SubtypeATM, models.SubtypeBranch}
	}
	return &OverpassSource{
		name:           name,
		endpoint:       endpoint,
		bbox:           bbox,
		operator:       operator,
		subtypes:       newSubtypeSet(subtypes),
		defaultContact: defaultContact,
		fetcher:        fetcher,
		logger:         log,
	}
}

func (s *OverpassSource) Name() string { return s.name }

func (s *OverpassSource) Supports(subtype string) bool {
	_, known := osmFilters[subtype]
	return known && s.subtypes.has(subtype)
}

// BuildQuery renders the Overpass QL for one subtype.
func (s *OverpassSource) BuildQuery(subtype string) string {
	filter := osmFilters[subtype]
	if s.operator != "" {
		filter += fmt.Sprintf(`["operator"~"%s",i]`, s.operator)
	}
	return fmt.Sprintf("[out:json][timeout:25];\nnode%s(%s);\nout body;", filter, s.bbox)
}

func (s *OverpassSource) Fetch(ctx context.Context, subtype string) ([]models.Location, error) {
	if !s.Supports(subtype) {
		return nil, fmt.Errorf("%w: %s does not serve %s", ErrUnsupportedSubtype, s.name, subtype)
	}
	query := s.BuildQuery(subtype)
	retrier := s.fetcher.Retrier()

	result, err := Run(ctx, retrier, s.name, func(ctx context.Context, attempt uint) (overpass.Result, error) {
		// the library takes no context, so the attempt timeout goes on the client
		session := s.fetcher.Sessions().NewSession()
		httpClient := &http.Client{
			Transport: session.HTTPClient().Transport,
			Jar:       session.HTTPClient().Jar,
			Timeout:   retrier.Timeout(),
		}
		client := overpass.NewWithSettings(s.endpoint, 1, httpClient)
		return client.Query(query)
	})
	if err != nil {
		return nil, err
	}

	return s.normalize(result, subtype), nil
}

func (s *OverpassSource) normalize(result overpass.Result, subtype string) []models.Location {
	nodes := make([]*overpass.Node, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	opts := NormalizeOptions{Source: s.name, Subtype: subtype, DefaultContact: s.defaultContact}
	out := make([]models.Location, 0, len(nodes))
	dropped := 0
	for _, n := range nodes {
		tags := n.Tags
		rec := record{
			id:       fmt.Sprintf("osm:%d", n.ID),
			name:     firstTag(tags, "name:en", "name", "name:az", "operator"),
			address:  osmAddress(tags),
			lat:      gjson.Result{Type: gjson.Number, Num: n.Lat},
			lon:      gjson.Result{Type: gjson.Number, Num: n.Lon},
			contact:  firstTag(tags, "phone", "contact:phone"),
			features: osmFeatures(tags),
		}
		if hours := ParseOSMHours(tags["opening_hours"]); hours != nil {
			b, _ := json.Marshal(hours)
			rec.hours = gjson.ParseBytes(b)
		}
		loc, ok := rec.build(opts)
		if !ok {
			dropped++
			continue
		}
		out = append(out, loc)
	}
	logDropped(s.logger, s.name, subtype, dropped)
	return out
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

func osmAddress(tags map[string]string) string {
	if full := tags["addr:full"]; full != "" {
		return full
	}
	parts := make([]string, 0, 3)
	street := strings.TrimSpace(tags["addr:street"] + " " + tags["addr:housenumber"])
	if street != "" {
		parts = append(parts, street)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

func osmFeatures(tags map[string]string) []string {
	var f []string
	if tags["cash_in"] == "yes" {
		f = append(f, "cash_in")
	}
	if tags["wheelchair"] == "yes" {
		f = append(f, "wheelchair")
	}
	if tags["drive_through"] == "yes" {
		f = append(f, "drive_through")
	}
	for k, v := range tags {
		if strings.HasPrefix(k, "currency:") && v == "yes" {
			f = append(f, "currency_"+strings.ToLower(strings.TrimPrefix(k, "currency:")))
		}
	}
	return f
}

// ParseOSMHours understands the common subset of the opening_hours syntax:
// "24/7" and rules such as "Mo-Fr 09:00-18:00; Sa 10:00-15:00; Su off".
// It returns nil for anything else so the caller falls back to defaults.
func ParseOSMHours(expr string) map[string]string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	hours := make(map[string]string)
	if expr == roundTheClock {
		for _, d := range Weekdays {
			hours[d] = roundTheClock
		}
		return hours
	}

	for _, rule := range strings.Split(expr, ";") {
		fields := strings.Fields(strings.TrimSpace(rule))
		if len(fields) != 2 {
			return nil
		}
		days, ok := expandOSMDays(fields[0])
		if !ok {
			return nil
		}
		value := fields[1]
		if value == "off" || value == "closed" {
			value = "closed"
		} else if value == "00:00-24:00" {
			value = roundTheClock
		}
		for _, d := range days {
			hours[d] = value
		}
	}
	if len(hours) == 0 {
		return nil
	}
	for _, d := range Weekdays {
		if _, ok := hours[d]; !ok {
			hours[d] = "closed"
		}
	}
	return hours
}

// expandOSMDays turns "Mo-Fr" or "Sa,Su" into canonical day keys.
func expandOSMDays(s string) ([]string, bool) {
	var out []string
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		bounds := strings.Split(part, "-")
		switch len(bounds) {
		case 1:
			d, ok := osmDays[bounds[0]]
			if !ok {
				return nil, false
			}
			out = append(out, d)
		case 2:
			from, okFrom := osmDays[bounds[0]]
			to, okTo := osmDays[bounds[1]]
			if !okFrom || !okTo {
				return nil, false
			}
			i, j := dayIndex(from), dayIndex(to)
			for k := i; ; k = (k + 1) % len(Weekdays) {
				out = append(out, Weekdays[k])
				if k == j {
					break
				}
			}
		default:
			return nil, false
		}
	}
	return out, true
}

func dayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return 0
}
