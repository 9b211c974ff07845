// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const baseYAML = `
app:
  name: banking-assistant-test
sources:
  locations:
    - name: bank_branches
      kind: http
      shape: branch_api
      endpoints:
        branch: http://upstream.local/branches
        atm: http://upstream.local/atms
  currency:
    - name: rates_xml
      kind: xml
      url: http://upstream.local/currencies/{date}.xml
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "banking-assistant-test", cfg.App.Name)

	assert.Equal(t, 600, cfg.Cache.Locations.TTL)
	assert.Equal(t, 200, cfg.Cache.Locations.Capacity)
	assert.Equal(t, 300, cfg.Cache.Currency.TTL)
	assert.Equal(t, 50, cfg.Cache.Currency.Capacity)
	assert.Equal(t, 1800, cfg.Cache.Context.TTL)
	assert.Equal(t, 100, cfg.Cache.Context.Capacity)

	assert.Equal(t, 3, cfg.Fetch.Attempts)
	assert.Equal(t, time.Second, GetDuration(cfg.Fetch.BaseBackoff))
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Fetch.Timeout))
	assert.Equal(t, 20000, cfg.Enrichment.FetchBudget)

	assert.Equal(t, "02.01.2006", cfg.Sources.Currency[0].DateFormat)
	assert.Equal(t, 1, cfg.Sources.Currency[0].PreviousDays())
	assert.Equal(t, "http://upstream.local/atms", cfg.Sources.Locations[0].Endpoints["atm"])

	assert.Equal(t, []float64{40.4093, 49.8671}, cfg.Enrichment.DefaultLocation)
	assert.Equal(t, 5, cfg.Assembler.MaxLocations)
	assert.Equal(t, 3, cfg.Assembler.HistoryTurns)
	assert.Equal(t, []string{"USD", "EUR", "RUB", "GBP", "TRY"}, cfg.Assembler.MajorCurrencies)
	assert.Equal(t, "none", cfg.Interactions.Backend)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_GENAI_URL", "http://generation.local")
	t.Setenv("TEST_GENAI_KEY", "secret-key")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML+`
generation:
  base_url: ${TEST_GENAI_URL}
  api_key: ${TEST_GENAI_KEY}
`))
	require.NoError(t, err)

	assert.Equal(t, "http://generation.local", cfg.Generation.BaseURL)
	assert.Equal(t, "secret-key", cfg.Generation.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown location kind",
			yaml: `
sources:
  locations:
    - name: broken
      kind: ftp
`,
			wantErr: "not supported",
		},
		{
			name: "redis backend without address",
			yaml: `
interactions:
  backend: redis
`,
			wantErr: "database.redis.address",
		},
		{
			name: "camunda enabled without broker",
			yaml: `
camunda:
  enabled: true
`,
			wantErr: "camunda.broker_address",
		},
		{
			name: "search index without elasticsearch",
			yaml: `
sources:
  locations:
    - name: branch_index
      kind: search_index
      index: branches
`,
			wantErr: "elasticsearch",
		},
		{
			name: "duplicate source names",
			yaml: `
sources:
  locations:
    - name: dup
      kind: overpass
      endpoint: http://overpass.local
  currency:
    - name: dup
      kind: json
      url: http://rates.local
`,
			wantErr: "duplicate source name",
		},
		{
			name: "fetch budget above write timeout",
			yaml: `
server:
  write_timeout: 10000
enrichment:
  fetch_budget: 15000
`,
			wantErr: "must be below server.write_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"analyze-query": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "analyze-query"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "analyze-query").MaxJobsActive)

	assert.True(t, IsWorkerEnabled(cfg, "answer-query"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "answer-query").Timeout)
}

func TestLoadFromFile_ShippedConfig(t *testing.T) {
	t.Setenv("GENAI_BASE_URL", "")
	t.Setenv("BANK_API_URL", "http://bank.local/api")

	cfg, err := LoadFromFile("../../../configs/config.yaml")
	require.NoError(t, err)

	assert.Empty(t, cfg.Generation.BaseURL)
	assert.Equal(t, "http://bank.local/api/locations/{subtype}", cfg.Sources.Locations[0].Endpoint)
	assert.Len(t, cfg.Workers, 3)
	assert.Equal(t, 45000, GetWorkerConfig(cfg, "enrich-context").Timeout)
	assert.Equal(t, 3, cfg.Sources.Currency[0].PreviousDays())
	assert.False(t, cfg.Camunda.Enabled)
	assert.Less(t, cfg.Enrichment.FetchBudget, GetWorkerConfig(cfg, "enrich-context").Timeout*4/5)
	assert.Less(t, cfg.Enrichment.FetchBudget+cfg.Generation.Timeout, cfg.Server.WriteTimeout*4/5)
}

func TestLoadFromFile_ExpandsSourceEndpoints(t *testing.T) {
	t.Setenv("TEST_BANK_URL", "http://bank.local")
	t.Setenv("TEST_RATES_URL", "http://rates.local")

	cfg, err := LoadFromFile(writeConfig(t, `
sources:
  locations:
    - name: bank_locations
      kind: http
      shape: branch_api
      endpoint: ${TEST_BANK_URL}/locations/{subtype}
    - name: bank_atms
      kind: http
      shape: geojson
      endpoints:
        atm: ${TEST_BANK_URL}/atms.geojson
  currency:
    - name: rates
      kind: json
      url: ${TEST_RATES_URL}/rates/{date}
`))
	require.NoError(t, err)

	assert.Equal(t, "http://bank.local/locations/{subtype}", cfg.Sources.Locations[0].Endpoint)
	assert.Equal(t, "http://bank.local/atms.geojson", cfg.Sources.Locations[1].Endpoints["atm"])
	assert.Equal(t, "http://rates.local/rates/{date}", cfg.Sources.Currency[0].URL)
}

func TestLoadFromFile_FallbackDaysCanBeDisabled(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
sources:
  currency:
    - name: rates
      kind: xml
      url: http://rates.local/{date}.xml
      fallback_days: 0
`))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Sources.Currency[0].PreviousDays())
}
