// internal/fetchers/builder.go
package fetchers

import (
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"banking-assistant/internal/common/config"
	httpclient "banking-assistant/internal/common/http"
	"banking-assistant/internal/models"
)

// Sources is the configured set of upstreams.
type Sources struct {
	Locations []LocationSource
	Currency  []CurrencySource
}

// NewFetcherFromConfig builds the shared fetcher from the fetch section.
func NewFetcherFromConfig(cfg config.FetchConfig, log Logger) *Fetcher {
	retrier := NewRetrier(cfg.Attempts, config.GetDuration(cfg.BaseBackoff), config.GetDuration(cfg.Timeout), log)
	return NewFetcher(httpclient.NewSessionFactory(cfg.UserAgent), retrier, log)
}

// BuildSources creates one adapter per configured source. es may be nil when
// no search_index source is configured.
func BuildSources(cfg config.SourcesConfig, fetcher *Fetcher, es *elasticsearch.Client, log Logger) (*Sources, error) {
	out := &Sources{}

	for _, sc := range cfg.Locations {
		switch sc.Kind {
		case KindHTTP:
			src, err := NewHTTPLocationSource(sc.Name, sc.Shape, httpEndpoints(sc), cfg.DefaultContact, fetcher, log)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.Name, err)
			}
			out.Locations = append(out.Locations, src)
		case KindOverpass:
			out.Locations = append(out.Locations,
				NewOverpassSource(sc.Name, sc.Endpoint, sc.BBox, sc.Operator, sc.Subtypes, cfg.DefaultContact, fetcher, log))
		case KindSearchIndex:
			if es == nil {
				return nil, fmt.Errorf("source %s: search_index needs an elasticsearch client", sc.Name)
			}
			out.Locations = append(out.Locations,
				NewSearchIndexSource(sc.Name, sc.Index, sc.Subtypes, cfg.DefaultContact, es, fetcher.Retrier(), log))
		default:
			return nil, fmt.Errorf("%w: %s (source %s)", ErrUnknownKind, sc.Kind, sc.Name)
		}
	}

	for _, cc := range cfg.Currency {
		switch cc.Kind {
		case KindXML:
			out.Currency = append(out.Currency, NewXMLCurrencyFeed(cc.Name, cc.URL, cc.DateFormat, cc.PreviousDays(), fetcher, log))
		case KindJSON:
			out.Currency = append(out.Currency, NewJSONCurrencyFeed(cc.Name, cc.URL, cc.DateFormat, cc.PreviousDays(), fetcher, log))
		default:
			return nil, fmt.Errorf("%w: %s (source %s)", ErrUnknownKind, cc.Kind, cc.Name)
		}
	}

	return out, nil
}

// httpEndpoints returns the subtype to URL map. A single endpoint may carry a
// {subtype} placeholder and is expanded for every listed subtype.
func httpEndpoints(sc config.LocationSourceConfig) map[string]string {
	endpoints := make(map[string]string, len(sc.Endpoints))
	for k, v := range sc.Endpoints {
		endpoints[k] = v
	}
	if len(endpoints) > 0 || sc.Endpoint == "" {
		return endpoints
	}

	subtypes := sc.Subtypes
	if len(subtypes) == 0 {
		subtypes = []string{models.SubtypeBranch}
	}
	for _, st := range subtypes {
		endpoints[st] = strings.ReplaceAll(sc.Endpoint, "{subtype}", st)
	}
	return endpoints
}
