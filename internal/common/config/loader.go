// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandSourceEnv(&cfg.Sources)
	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests under test/e2e
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// unset variables expand to "" so defaults and overrideEmptyConfig apply
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// expandSourceEnv expands placeholders inside the source lists. viper reports
// a list of maps as one key, so expandEnvVars never sees these strings.
func expandSourceEnv(cfg *SourcesConfig) {
	for i := range cfg.Locations {
		src := &cfg.Locations[i]
		src.Endpoint = os.ExpandEnv(src.Endpoint)
		src.Index = os.ExpandEnv(src.Index)
		for subtype, endpoint := range src.Endpoints {
			src.Endpoints[subtype] = os.ExpandEnv(endpoint)
		}
	}
	for i := range cfg.Currency {
		cfg.Currency[i].URL = os.ExpandEnv(cfg.Currency[i].URL)
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only through the environment.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Generation.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.Generation.APIKey = val
		}
	}
	if cfg.Generation.BaseURL == "" {
		if val := os.Getenv("GENAI_BASE_URL"); val != "" {
			cfg.Generation.BaseURL = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "banking-assistant"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Upstream fetch defaults: 3 attempts, 1s doubling backoff, 30s per attempt
	if cfg.Fetch.Attempts == 0 {
		cfg.Fetch.Attempts = 3
	}
	if cfg.Fetch.BaseBackoff == 0 {
		cfg.Fetch.BaseBackoff = 1000
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30000
	}

	applyCacheDefault(&cfg.Cache.Locations, 600, 200)
	applyCacheDefault(&cfg.Cache.Currency, 300, 50)
	applyCacheDefault(&cfg.Cache.Context, 1800, 100)
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 60
	}

	if cfg.Sources.DefaultContact == "" {
		cfg.Sources.DefaultContact = "+994 12 000 00 00"
	}
	for i := range cfg.Sources.Currency {
		if cfg.Sources.Currency[i].DateFormat == "" {
			cfg.Sources.Currency[i].DateFormat = "02.01.2006"
		}
	}

	if cfg.Enrichment.SearchRadiusKm == 0 {
		cfg.Enrichment.SearchRadiusKm = 30
	}
	if cfg.Enrichment.AverageSpeedKmh == 0 {
		cfg.Enrichment.AverageSpeedKmh = 25
	}
	if cfg.Enrichment.MinutesPerStop == 0 {
		cfg.Enrichment.MinutesPerStop = 10
	}
	if cfg.Enrichment.FetchBudget == 0 {
		cfg.Enrichment.FetchBudget = 20000
	}
	if len(cfg.Enrichment.DefaultLocation) == 0 {
		cfg.Enrichment.DefaultLocation = []float64{40.4093, 49.8671}
	}

	if cfg.Assembler.MaxLocations == 0 {
		cfg.Assembler.MaxLocations = 5
	}
	if cfg.Assembler.HistoryTurns == 0 {
		cfg.Assembler.HistoryTurns = 3
	}
	if cfg.Assembler.TokenBudget == 0 {
		cfg.Assembler.TokenBudget = 2000
	}
	if cfg.Assembler.Timezone == "" {
		cfg.Assembler.Timezone = "Asia/Baku"
	}
	if len(cfg.Assembler.MajorCurrencies) == 0 {
		cfg.Assembler.MajorCurrencies = []string{"USD", "EUR", "RUB", "GBP", "TRY"}
	}
	if cfg.Assembler.ContactNumber == "" {
		cfg.Assembler.ContactNumber = cfg.Sources.DefaultContact
	}

	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 15000
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 600
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.3
	}

	if cfg.Interactions.Backend == "" {
		cfg.Interactions.Backend = "none"
	}
	if cfg.Interactions.BufferSize == 0 {
		cfg.Interactions.BufferSize = 256
	}
	if cfg.Interactions.MaxPerSession == 0 {
		cfg.Interactions.MaxPerSession = 200
	}
	if cfg.Interactions.Table == "" {
		cfg.Interactions.Table = "interactions"
	}

	if cfg.Chat.HistoryWindow == 0 {
		cfg.Chat.HistoryWindow = 10
	}
}

func applyCacheDefault(c *NamedCacheConfig, ttlSeconds, capacity int) {
	if c.TTL == 0 {
		c.TTL = ttlSeconds
	}
	if c.Capacity == 0 {
		c.Capacity = capacity
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	switch cfg.Interactions.Backend {
	case "none":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis interaction backend")
		}
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres interaction backend")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("interactions.backend %q is not supported", cfg.Interactions.Backend)
	}

	seen := make(map[string]bool)
	for i, src := range cfg.Sources.Locations {
		if src.Name == "" {
			return fmt.Errorf("sources.locations[%d].name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		switch src.Kind {
		case "http":
			if len(src.Endpoints) == 0 && src.Endpoint == "" {
				return fmt.Errorf("sources.locations[%s].endpoints or endpoint is required", src.Name)
			}
			if src.Shape != "branch_api" && src.Shape != "geojson" {
				return fmt.Errorf("sources.locations[%s].shape %q is not supported", src.Name, src.Shape)
			}
		case "overpass":
			if src.Endpoint == "" {
				return fmt.Errorf("sources.locations[%s].endpoint is required", src.Name)
			}
		case "search_index":
			if src.Index == "" {
				return fmt.Errorf("sources.locations[%s].index is required", src.Name)
			}
			if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
				return fmt.Errorf("database.elasticsearch.addresses or url is required for %s", src.Name)
			}
		default:
			return fmt.Errorf("sources.locations[%s].kind %q is not supported", src.Name, src.Kind)
		}
	}

	for i, src := range cfg.Sources.Currency {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("sources.currency[%d] requires name and url", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
		if src.Kind != "xml" && src.Kind != "json" {
			return fmt.Errorf("sources.currency[%s].kind %q is not supported", src.Name, src.Kind)
		}
	}

	if cfg.Enrichment.FetchBudget >= cfg.Server.WriteTimeout {
		return fmt.Errorf("enrichment.fetch_budget (%dms) must be below server.write_timeout (%dms)",
			cfg.Enrichment.FetchBudget, cfg.Server.WriteTimeout)
	}

	if len(cfg.Enrichment.DefaultLocation) != 2 {
		return fmt.Errorf("enrichment.default_location must be [lat, lon]")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetSeconds converts seconds from config to time.Duration
func GetSeconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
