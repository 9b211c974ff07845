// internal/fetchers/shapes.go
package fetchers

import (
	"github.com/tidwall/gjson"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/models"
)

// normalizeBranchAPI handles bank directory JSON: a record array at the root or
// under data/items/result/branches, string or numeric coordinates, and nested
// working hours.
func normalizeBranchAPI(body []byte, opts NormalizeOptions) ([]models.Location, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, apperrors.NewUpstreamPayloadError(opts.Source, "body is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	items := root
	if !root.IsArray() {
		items = first(root, "data", "items", "result", "branches", "atms", "data.items")
	}
	if !items.IsArray() {
		return nil, 0, apperrors.NewUpstreamPayloadError(opts.Source, "no record array in payload")
	}

	var (
		out     []models.Location
		dropped int
	)
	for _, item := range items.Array() {
		rec := branchRecord(item)
		loc, ok := rec.build(opts)
		if !ok {
			dropped++
			continue
		}
		out = append(out, loc)
	}
	return out, dropped, nil
}

// normalizeGeoJSON handles a FeatureCollection of Point features.
func normalizeGeoJSON(body []byte, opts NormalizeOptions) ([]models.Location, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, apperrors.NewUpstreamPayloadError(opts.Source, "body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	features := root.Get("features")
	if !features.IsArray() {
		return nil, 0, apperrors.NewUpstreamPayloadError(opts.Source, "missing features array")
	}

	var (
		out     []models.Location
		dropped int
	)
	for _, f := range features.Array() {
		props := f.Get("properties")
		coords := f.Get("geometry.coordinates")
		if f.Get("geometry.type").String() != "Point" || !coords.IsArray() {
			dropped++
			continue
		}
		rec := record{
			id:       first(f, "id", "properties.id").String(),
			name:     first(props, "name", "title").String(),
			address:  first(props, "address", "addr:full").String(),
			lat:      coords.Get("1"),
			lon:      coords.Get("0"),
			hours:    first(props, "hours", "opening_hours", "workingHours"),
			contact:  first(props, "phone", "contact").String(),
			features: stringList(first(props, "features", "services")),
			always:   truthy(first(props, "is24", "round_the_clock")),
		}
		loc, ok := rec.build(opts)
		if !ok {
			dropped++
			continue
		}
		out = append(out, loc)
	}
	return out, dropped, nil
}

// branchRecord maps one bank directory record, also used for search index hits.
func branchRecord(item gjson.Result) record {
	return record{
		id:       first(item, "id", "code", "branchId", "atmId").String(),
		name:     first(item, "name", "title", "branchName").String(),
		address:  first(item, "address", "addr", "fullAddress", "location.address").String(),
		lat:      first(item, "lat", "latitude", "coordinates.lat", "location.lat", "geo.lat"),
		lon:      first(item, "lng", "lon", "longitude", "coordinates.lng", "coordinates.lon", "location.lng", "location.lon", "geo.lon"),
		hours:    first(item, "workHours", "working_hours", "workingHours", "schedule", "hours"),
		contact:  first(item, "phone", "contact", "phones.0", "tel").String(),
		features: stringList(first(item, "services", "features")),
		always:   truthy(first(item, "is24", "round_the_clock", "roundTheClock", "twentyFourSeven")),
	}
}
