// internal/fetchers/search_index.go
package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/tidwall/gjson"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/models"
)

const searchPageSize = 500

// SearchIndexSource reads locations from an Elasticsearch index whose
// documents carry a serviceType field.
type SearchIndexSource struct {
	name           string
	index          string
	subtypes       subtypeSet
	defaultContact string
	client         *elasticsearch.Client
	retrier        *Retrier
	logger         Logger
}

func NewSearchIndexSource(name, index string, subtypes []string, defaultContact string, client *elasticsearch.Client, retrier *Retrier, log Logger) *SearchIndexSource {
	if len(subtypes) == 0 {
		subtypes = models.AllSubtypes
	}
	return &SearchIndexSource{
		name:           name,
		index:          index,
		subtypes:       newSubtypeSet(subtypes),
		defaultContact: defaultContact,
		client:         client,
		retrier:        retrier,
		logger:         log,
	}
}

func (s *SearchIndexSource) Name() string { return s.name }

func (s *SearchIndexSource) Supports(subtype string) bool {
	return s.subtypes.has(subtype)
}

// buildSearchQuery selects every document of one subtype.
func buildSearchQuery(subtype string) ([]byte, error) {
	query := map[string]interface{}{
		"size": searchPageSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"serviceType": subtype}},
				},
			},
		},
		"sort": []interface{}{"_doc"},
	}
	return json.Marshal(query)
}

func (s *SearchIndexSource) Fetch(ctx context.Context, subtype string) ([]models.Location, error) {
	if !s.Supports(subtype) {
		return nil, fmt.Errorf("%w: %s does not serve %s", ErrUnsupportedSubtype, s.name, subtype)
	}
	query, err := buildSearchQuery(subtype)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	body, err := Run(ctx, s.retrier, s.name, func(ctx context.Context, attempt uint) ([]byte, error) {
		res, err := s.client.Search(
			s.client.Search.WithContext(ctx),
			s.client.Search.WithIndex(s.index),
			s.client.Search.WithBody(bytes.NewReader(query)),
		)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		if res.IsError() {
			return nil, apperrors.NewUpstreamStatusError(s.name, res.StatusCode)
		}
		return io.ReadAll(res.Body)
	})
	if err != nil {
		return nil, err
	}

	return s.normalize(body, subtype)
}

func (s *SearchIndexSource) normalize(body []byte, subtype string) ([]models.Location, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewUpstreamPayloadError(s.name, "search response is not valid JSON")
	}
	hits := gjson.GetBytes(body, "hits.hits")
	if !hits.IsArray() {
		return nil, apperrors.NewUpstreamPayloadError(s.name, "search response has no hits")
	}

	opts := NormalizeOptions{Source: s.name, Subtype: subtype, DefaultContact: s.defaultContact}
	var out []models.Location
	dropped := 0
	for _, hit := range hits.Array() {
		rec := branchRecord(hit.Get("_source"))
		if rec.id == "" {
			rec.id = hit.Get("_id").String()
		}
		loc, ok := rec.build(opts)
		if !ok {
			dropped++
			continue
		}
		out = append(out, loc)
	}
	logDropped(s.logger, s.name, subtype, dropped)
	return out, nil
}
