// internal/fetchers/source.go
package fetchers

import (
	"context"
	"errors"
	"fmt"

	"banking-assistant/internal/models"
)

// Source kinds accepted in configuration.
const (
	KindHTTP        = "http"
	KindOverpass    = "overpass"
	KindSearchIndex = "search_index"
	KindXML         = "xml"
	KindJSON        = "json"
)

var (
	ErrUnsupportedSubtype = errors.New("UNSUPPORTED_SUBTYPE")
	ErrUnknownShape       = errors.New("UNKNOWN_SHAPE")
	ErrUnknownKind        = errors.New("UNKNOWN_SOURCE_KIND")
	ErrEmptyFeed          = errors.New("EMPTY_FEED")
)

// LocationSource is one upstream directory of branches and machines.
// Fetch never touches the cache.
type LocationSource interface {
	Name() string
	Supports(subtype string) bool
	Fetch(ctx context.Context, subtype string) ([]models.Location, error)
}

// CurrencySource is one upstream rate feed.
type CurrencySource interface {
	Name() string
	Fetch(ctx context.Context) (*models.CurrencyRateSet, error)
}

// subtypeSet answers Supports for sources configured with a subtype list.
type subtypeSet map[string]struct{}

func newSubtypeSet(subtypes []string) subtypeSet {
	s := make(subtypeSet, len(subtypes))
	for _, st := range subtypes {
		s[st] = struct{}{}
	}
	return s
}

func (s subtypeSet) has(subtype string) bool {
	_, ok := s[subtype]
	return ok
}

// HTTPLocationSource reads a JSON endpoint per subtype and decodes it with the
// normalizer for its payload shape.
type HTTPLocationSource struct {
	name           string
	endpoints      map[string]string
	normalize      Normalizer
	defaultContact string
	fetcher        *Fetcher
	logger         Logger
}

func NewHTTPLocationSource(name, shape string, endpoints map[string]string, defaultContact string, fetcher *Fetcher, log Logger) (*HTTPLocationSource, error) {
	normalize, ok := NormalizerFor(shape)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, shape)
	}
	return &HTTPLocationSource{
		name:           name,
		endpoints:      endpoints,
		normalize:      normalize,
		defaultContact: defaultContact,
		fetcher:        fetcher,
		logger:         log,
	}, nil
}

func (s *HTTPLocationSource) Name() string { return s.name }

func (s *HTTPLocationSource) Supports(subtype string) bool {
	_, ok := s.endpoints[subtype]
	return ok
}

func (s *HTTPLocationSource) Fetch(ctx context.Context, subtype string) ([]models.Location, error) {
	url, ok := s.endpoints[subtype]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not serve %s", ErrUnsupportedSubtype, s.name, subtype)
	}

	body, err := s.fetcher.Get(ctx, s.name, url)
	if err != nil {
		return nil, err
	}

	locations, dropped, err := s.normalize(body, NormalizeOptions{
		Source:         s.name,
		Subtype:        subtype,
		DefaultContact: s.defaultContact,
	})
	if err != nil {
		return nil, err
	}
	logDropped(s.logger, s.name, subtype, dropped)
	return locations, nil
}

func logDropped(log Logger, source, subtype string, dropped int) {
	if dropped > 0 && log != nil {
		log.Warn("Dropped records without usable coordinates", map[string]interface{}{
			"source":  source,
			"subtype": subtype,
			"dropped": dropped,
		})
	}
}
