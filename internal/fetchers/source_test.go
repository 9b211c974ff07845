// internal/fetchers/source_test.go
package fetchers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-assistant/internal/common/config"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/models"
)

// ==========================
// HTTP location source
// ==========================

func TestHTTPLocationSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/atms", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": "a1", "name": "ATM", "lat": "40.37", "lng": "49.85"}]`))
	}))
	defer server.Close()

	src, err := NewHTTPLocationSource("bank_api", ShapeBranchAPI,
		map[string]string{models.SubtypeATM: server.URL + "/atms"}, defaultContact,
		newTestFetcher(t, 2, time.Second), logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.True(t, src.Supports(models.SubtypeATM))
	assert.False(t, src.Supports(models.SubtypeBranch))

	locs, err := src.Fetch(context.Background(), models.SubtypeATM)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "a1", locs[0].ID)

	_, err = src.Fetch(context.Background(), models.SubtypeBranch)
	assert.ErrorIs(t, err, ErrUnsupportedSubtype)
}

func TestNewHTTPLocationSource_UnknownShape(t *testing.T) {
	_, err := NewHTTPLocationSource("x", "csv", nil, "", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownShape)
}

// ==========================
// Overpass source
// ==========================

func TestOverpassSource_Fetch(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.FormValue("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version": 0.6, "elements": [
			{"type": "node", "id": 20, "lat": 40.38, "lon": 49.86,
			 "tags": {"amenity": "atm", "name": "Second", "opening_hours": "24/7", "cash_in": "yes"}},
			{"type": "node", "id": 10, "lat": 40.37, "lon": 49.85,
			 "tags": {"amenity": "atm", "addr:street": "Nizami", "addr:housenumber": "5", "operator": "Demo Bank"}}
		]}`))
	}))
	defer server.Close()

	src := NewOverpassSource("osm", server.URL, "40.3,49.7,40.5,50.0", "Demo", []string{models.SubtypeATM},
		defaultContact, newTestFetcher(t, 2, time.Second), logger.NewTestLogger(t))
	require.True(t, src.Supports(models.SubtypeATM))
	require.False(t, src.Supports(models.SubtypeBranch))

	locs, err := src.Fetch(context.Background(), models.SubtypeATM)
	require.NoError(t, err)

	assert.Contains(t, query, `node["amenity"="atm"]["operator"~"Demo",i](40.3,49.7,40.5,50.0)`)
	require.Len(t, locs, 2)
	assert.Equal(t, "osm:10", locs[0].ID)
	assert.Equal(t, "Demo Bank", locs[0].Name)
	assert.Equal(t, "Nizami 5", locs[0].Address)
	assert.Equal(t, defaultContact, locs[0].Contact)
	assert.Equal(t, "osm:20", locs[1].ID)
	assert.Equal(t, "24/7", locs[1].WorkingHours["monday"])
	assert.Equal(t, []string{"24/7", "cash_in"}, locs[1].Features)
}

// ==========================
// Search index source
// ==========================

func newTestElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{server.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return es
}

func TestSearchIndexSource_Fetch(t *testing.T) {
	var requestBody string
	es := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/branches/_search"))
		b, _ := io.ReadAll(r.Body)
		requestBody = string(b)
		_, _ = w.Write([]byte(`{"hits": {"total": {"value": 2}, "hits": [
			{"_id": "doc-1", "_source": {"name": "Indexed", "serviceType": "branch", "location": {"lat": 40.39, "lon": 49.85}}},
			{"_id": "doc-2", "_source": {"name": "Broken", "serviceType": "branch"}}
		]}}`))
	})

	retrier := NewRetrier(2, time.Millisecond, time.Second, nil)
	src := NewSearchIndexSource("branch_index", "branches", nil, defaultContact, es, retrier, logger.NewTestLogger(t))

	locs, err := src.Fetch(context.Background(), models.SubtypeBranch)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "doc-1", locs[0].ID)
	assert.Equal(t, "branch_index", locs[0].Source)
	assert.Contains(t, requestBody, `"serviceType":"branch"`)
}

func TestSearchIndexSource_ServerError(t *testing.T) {
	var calls int32
	es := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "unavailable"}`))
	})

	retrier := NewRetrier(2, time.Millisecond, time.Second, nil)
	src := NewSearchIndexSource("branch_index", "branches", nil, "", es, retrier, nil)

	_, err := src.Fetch(context.Background(), models.SubtypeATM)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// ==========================
// Currency feeds
// ==========================

const ratesXML = `<?xml version="1.0" encoding="UTF-8"?>
<ValCurs Date="05.05.2024" Name="Official rates">
  <ValType Type="Xarici valyutalar">
    <Valute Code="USD"><Nominal>1</Nominal><Name>1 US dollar</Name><Value>1.7</Value></Valute>
    <Valute Code="EUR"><Nominal>1</Nominal><Name>1 Euro</Name><Value>1,8312</Value></Valute>
    <Valute Code="RUB"><Nominal>100</Nominal><Name>100 Russian ruble</Name><Value>1.8565</Value></Valute>
    <Valute Code="TRY"><Nominal>1</Nominal><Name>1 Turkish lira</Name><Value>n/a</Value></Valute>
  </ValType>
</ValCurs>`

func TestCurrencyFeed_XMLFallsBackToPreviousDay(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path != "/05.05.2024.xml" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(ratesXML))
	}))
	defer server.Close()

	feed := NewXMLCurrencyFeed("cbar", server.URL+"/{date}.xml", "", 1, newTestFetcher(t, 2, time.Second), logger.NewTestLogger(t)).
		WithClock(func() time.Time { return time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC) })

	set, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/06.05.2024.xml", "/05.05.2024.xml"}, paths)
	assert.Equal(t, "05.05.2024", set.Date)
	assert.Equal(t, "cbar", set.Source)
	assert.Equal(t, 1.7, set.Currencies["USD"].Rate)
	assert.Equal(t, 1.8312, set.Currencies["EUR"].Rate)
	assert.Equal(t, 100, set.Currencies["RUB"].Nominal)
	assert.Equal(t, 0.0, set.Currencies["TRY"].Rate, "unreadable values become 0")
}

func TestCurrencyFeed_XMLAllDaysFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<ValCurs Date="06.05.2024"></ValCurs>`))
	}))
	defer server.Close()

	feed := NewXMLCurrencyFeed("cbar", server.URL+"/{date}.xml", "", 1, newTestFetcher(t, 1, time.Second), nil)
	_, err := feed.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamPayloadInvalid))
}

func TestCurrencyFeed_JSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `{"date": "2024-05-06", "rates": [{"code": "usd", "rate": "1.70", "nominal": 1, "name": "US Dollar"}, {"code": "EUR", "rate": 1.83}]}`},
		{"object", `{"date": "2024-05-06", "rates": {"USD": 1.70, "EUR": {"rate": "1.83"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			feed := NewJSONCurrencyFeed("rates_json", server.URL, "", 0, newTestFetcher(t, 1, time.Second), nil)
			set, err := feed.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "2024-05-06", set.Date)
			assert.Equal(t, 1.70, set.Currencies["USD"].Rate)
			assert.Equal(t, 1.83, set.Currencies["EUR"].Rate)
			assert.Equal(t, 1, set.Currencies["EUR"].Nominal)
		})
	}
}

func TestCurrencyFeed_JSONScalarRatesRejected(t *testing.T) {
	for _, body := range []string{`{"rates": 1.7}`, `{"rates": "USD"}`, `{"date": "2024-05-06"}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		feed := NewJSONCurrencyFeed("rates_json", server.URL, "", 0, newTestFetcher(t, 1, time.Second), nil)
		_, err := feed.Fetch(context.Background())
		server.Close()

		require.Error(t, err, body)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamPayloadInvalid), body)
	}
}

// ==========================
// Builder
// ==========================

func TestBuildSources(t *testing.T) {
	fetcher := newTestFetcher(t, 1, time.Second)

	sources, err := BuildSources(config.SourcesConfig{
		DefaultContact: defaultContact,
		Locations: []config.LocationSourceConfig{
			{Name: "bank_api", Kind: KindHTTP, Shape: ShapeBranchAPI, Endpoint: "http://bank.local/{subtype}", Subtypes: []string{"atm", "branch"}},
			{Name: "osm", Kind: KindOverpass, Endpoint: "http://overpass.local", BBox: "1,2,3,4"},
		},
		Currency: []config.CurrencySourceConfig{
			{Name: "cbar", Kind: KindXML, URL: "http://cbar.local/{date}.xml"},
			{Name: "backup", Kind: KindJSON, URL: "http://rates.local"},
		},
	}, fetcher, nil, nil)
	require.NoError(t, err)
	require.Len(t, sources.Locations, 2)
	require.Len(t, sources.Currency, 2)

	httpSrc := sources.Locations[0].(*HTTPLocationSource)
	assert.Equal(t, "http://bank.local/atm", httpSrc.endpoints["atm"])
	assert.True(t, httpSrc.Supports("branch"))
	assert.Equal(t, "cbar", sources.Currency[0].Name())

	_, err = BuildSources(config.SourcesConfig{
		Locations: []config.LocationSourceConfig{{Name: "idx", Kind: KindSearchIndex, Index: "x"}},
	}, fetcher, nil, nil)
	require.Error(t, err)

	_, err = BuildSources(config.SourcesConfig{
		Currency: []config.CurrencySourceConfig{{Name: "c", Kind: "csv"}},
	}, fetcher, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestBuildSources_FallbackDays(t *testing.T) {
	none, three := 0, 3
	sources, err := BuildSources(config.SourcesConfig{
		Currency: []config.CurrencySourceConfig{
			{Name: "default", Kind: KindXML, URL: "http://cbar.local/{date}.xml"},
			{Name: "disabled", Kind: KindXML, URL: "http://cbar.local/{date}.xml", FallbackDays: &none},
			{Name: "three", Kind: KindJSON, URL: "http://rates.local/{date}", FallbackDays: &three},
		},
	}, newTestFetcher(t, 1, time.Second), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sources.Currency[0].(*CurrencyFeed).fallbackDays)
	assert.Equal(t, 0, sources.Currency[1].(*CurrencyFeed).fallbackDays)
	assert.Equal(t, 3, sources.Currency[2].(*CurrencyFeed).fallbackDays)
}
