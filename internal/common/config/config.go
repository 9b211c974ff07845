// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Server       ServerConfig            `mapstructure:"server"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Fetch        FetchConfig             `mapstructure:"fetch"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Sources      SourcesConfig           `mapstructure:"sources"`
	Enrichment   EnrichmentConfig        `mapstructure:"enrichment"`
	Assembler    AssemblerConfig         `mapstructure:"assembler"`
	Generation   GenerationConfig        `mapstructure:"generation"`
	Interactions InteractionsConfig      `mapstructure:"interactions"`
	Chat         ChatConfig              `mapstructure:"chat"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single URL, used when addresses is empty
}

// GetAddresses returns the configured node list, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RegistryConfig points at the activity registry describing the job workers.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// --- Pipeline Configuration ---

// FetchConfig controls the shared upstream retry wrapper.
type FetchConfig struct {
	Attempts    int    `mapstructure:"attempts"`
	BaseBackoff int    `mapstructure:"base_backoff"` // milliseconds, doubled per attempt
	Timeout     int    `mapstructure:"timeout"`      // milliseconds, per attempt
	UserAgent   string `mapstructure:"user_agent"`
}

// NamedCacheConfig sizes one named cache.
type NamedCacheConfig struct {
	TTL      int `mapstructure:"ttl"` // seconds
	Capacity int `mapstructure:"capacity"`
}

type CacheConfig struct {
	Locations           NamedCacheConfig `mapstructure:"locations"`
	Currency            NamedCacheConfig `mapstructure:"currency"`
	Context             NamedCacheConfig `mapstructure:"context"`
	SweepInterval       int              `mapstructure:"sweep_interval"` // seconds, 0 disables the sweeper
	DisableSingleFlight bool             `mapstructure:"disable_single_flight"`
}

// LocationSourceConfig describes one location directory.
//
// Kind selects the adapter: "http" (JSON endpoint per subtype, decoded by Shape),
// "overpass" (OpenStreetMap) or "search_index" (Elasticsearch index).
type LocationSourceConfig struct {
	Name      string            `mapstructure:"name"`
	Kind      string            `mapstructure:"kind"`
	Shape     string            `mapstructure:"shape"`
	Endpoints map[string]string `mapstructure:"endpoints"` // subtype -> URL
	Endpoint  string            `mapstructure:"endpoint"`
	Index     string            `mapstructure:"index"`
	Subtypes  []string          `mapstructure:"subtypes"`
	BBox      string            `mapstructure:"bbox"`
	Operator  string            `mapstructure:"operator"`
}

// CurrencySourceConfig describes one rate feed. URL may contain {date}.
type CurrencySourceConfig struct {
	Name         string `mapstructure:"name"`
	Kind         string `mapstructure:"kind"` // xml | json
	URL          string `mapstructure:"url"`
	DateFormat   string `mapstructure:"date_format"`
	FallbackDays *int   `mapstructure:"fallback_days"` // unset means 1, 0 disables
}

// PreviousDays is how many earlier days are tried when the current feed fails.
func (c CurrencySourceConfig) PreviousDays() int {
	if c.FallbackDays == nil {
		return 1
	}
	return *c.FallbackDays
}

type SourcesConfig struct {
	DefaultContact string                 `mapstructure:"default_contact"`
	Locations      []LocationSourceConfig `mapstructure:"locations"`
	Currency       []CurrencySourceConfig `mapstructure:"currency"`
}

type EnrichmentConfig struct {
	SearchRadiusKm         float64   `mapstructure:"search_radius_km"`
	AverageSpeedKmh        float64   `mapstructure:"average_speed_kmh"`
	MinutesPerStop         float64   `mapstructure:"minutes_per_stop"`
	DefaultLocation        []float64 `mapstructure:"default_location"` // [lat, lon] used when the query has no reference point
	DisableDefaultLocation bool      `mapstructure:"disable_default_location"`
	FetchBudget            int       `mapstructure:"fetch_budget"` // milliseconds, total per upstream load
}

type AssemblerConfig struct {
	MaxLocations    int      `mapstructure:"max_locations"`
	HistoryTurns    int      `mapstructure:"history_turns"`
	TokenBudget     int      `mapstructure:"token_budget"`
	Timezone        string   `mapstructure:"timezone"`
	MajorCurrencies []string `mapstructure:"major_currencies"`
	ContactNumber   string   `mapstructure:"contact_number"`
}

// GenerationConfig points at the external text generation service.
type GenerationConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// InteractionsConfig selects where fire-and-forget interaction records go.
type InteractionsConfig struct {
	Backend       string `mapstructure:"backend"` // redis | postgres | none
	BufferSize    int    `mapstructure:"buffer_size"`
	MaxPerSession int    `mapstructure:"max_per_session"`
	Table         string `mapstructure:"table"`
}

type ChatConfig struct {
	HistoryWindow int `mapstructure:"history_window"`
}
