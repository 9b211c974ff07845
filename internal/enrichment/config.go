// internal/enrichment/config.go
package enrichment

import (
	"time"

	"banking-assistant/internal/common/config"
	"banking-assistant/internal/geo"
	"banking-assistant/internal/models"
)

// Config tunes ranking, routing and request de-duplication.
type Config struct {
	SearchRadiusKm  float64
	AverageSpeedKmh float64
	MinutesPerStop  float64
	// DefaultLocation ranks location results when the query has no landmark
	// and the caller sent no location. Nil disables it.
	DefaultLocation *models.Coordinates
	SingleFlight    bool
	// FetchBudget bounds one upstream load across retries and previous-day
	// fallbacks. Zero leaves it unbounded.
	FetchBudget     time.Duration
}

// ConfigFrom maps the application config onto the orchestrator settings.
func ConfigFrom(enrichment config.EnrichmentConfig, cacheCfg config.CacheConfig) Config {
	cfg := Config{
		SearchRadiusKm:  enrichment.SearchRadiusKm,
		AverageSpeedKmh: enrichment.AverageSpeedKmh,
		MinutesPerStop:  enrichment.MinutesPerStop,
		SingleFlight:    !cacheCfg.DisableSingleFlight,
		FetchBudget:     config.GetDuration(enrichment.FetchBudget),
	}
	if !enrichment.DisableDefaultLocation && len(enrichment.DefaultLocation) == 2 {
		c := models.Coordinates{Latitude: enrichment.DefaultLocation[0], Longitude: enrichment.DefaultLocation[1]}
		if geo.Valid(c) {
			cfg.DefaultLocation = &c
		}
	}
	return cfg
}
