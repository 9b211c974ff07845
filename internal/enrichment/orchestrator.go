// internal/enrichment/orchestrator.go
package enrichment

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"banking-assistant/internal/cache"
	"banking-assistant/internal/common/observability"
	"banking-assistant/internal/fetchers"
	"banking-assistant/internal/geo"
	"banking-assistant/internal/models"
)

const (
	locationKeyPrefix = "locations:"
	currencyKey       = "currency:rates"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// locationBatch is what the locations cache stores per subtype.
type locationBatch struct {
	Locations []models.Location
	Sources   []string
}

// Orchestrator decides which upstream data a query needs, serves it from the
// caches when possible and fetches the rest concurrently.
type Orchestrator struct {
	locationSources []fetchers.LocationSource
	currencySources []fetchers.CurrencySource
	caches          *cache.Manager
	group           singleflight.Group
	config          Config
	obs             *observability.Observability
	logger          Logger
}

type Option func(*Orchestrator)

func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func NewOrchestrator(caches *cache.Manager, sources *fetchers.Sources, cfg Config, log Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		caches: caches,
		config: cfg,
		logger: log,
	}
	if sources != nil {
		o.locationSources = sources.Locations
		o.currencySources = sources.Currency
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan reports which retrieval paths an intent triggers.
func Plan(intent models.Intent) (locations, currency bool) {
	e := intent.Entities
	switch intent.Kind {
	case models.IntentLocation:
		return true, len(e.CurrencyCodes) > 0
	case models.IntentCurrency:
		return false, true
	case models.IntentService, models.IntentSupport:
		return e.HasLocationHint(), len(e.CurrencyCodes) > 0 || len(e.Amounts) > 0
	default:
		return false, false
	}
}

// TargetSubtypes returns the subtypes to load, defaulting to branches.
func TargetSubtypes(intent models.Intent) []string {
	if len(intent.Entities.Subtypes) > 0 {
		return intent.Entities.Subtypes
	}
	if intent.Entities.Subtype != "" {
		return []string{intent.Entities.Subtype}
	}
	return []string{models.SubtypeBranch}
}

// Enrich never fails. Failed sources are logged and leave their part of the
// result empty.
func (o *Orchestrator) Enrich(ctx context.Context, intent models.Intent) *models.RetrievalResult {
	start := time.Now()
	ctx, span := o.obs.StartSpan(ctx, "enrichment.enrich", attribute.String("intent", string(intent.Kind)))
	defer span.End()

	result := &models.RetrievalResult{
		DataSources:   []string{},
		ReferenceKind: models.ReferenceNone,
	}
	wantLocations, wantCurrency := Plan(intent)
	if !wantLocations && !wantCurrency {
		return result
	}

	var (
		batch locationBatch
		rates *models.CurrencyRateSet
		g     errgroup.Group
	)
	subtypes := TargetSubtypes(intent)
	if wantLocations {
		g.Go(func() error {
			batch = o.loadLocations(ctx, subtypes)
			return nil
		})
	}
	if wantCurrency {
		g.Go(func() error {
			rates = o.loadCurrency(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if wantLocations {
		o.rank(result, intent, batch.Locations, subtypes)
		result.DataSources = appendUnique(result.DataSources, batch.Sources...)
	}
	if rates != nil {
		result.Currency = rates
		result.DataSources = appendUnique(result.DataSources, rates.Source)
	}
	sort.Strings(result.DataSources)

	o.obs.RecordEnrichment(ctx, string(intent.Kind), time.Since(start))
	o.logger.Info("Enrichment completed", map[string]interface{}{
		"intent":        intent.Kind,
		"locations":     result.TotalLocations,
		"currency":      result.Currency != nil,
		"dataSources":   result.DataSources,
		"referenceKind": result.ReferenceKind,
		"duration":      time.Since(start).String(),
	})
	return result
}

// rank orders locations by distance from the reference point and attaches a
// route when several subtypes were requested.
func (o *Orchestrator) rank(result *models.RetrievalResult, intent models.Intent, locations []models.Location, subtypes []string) {
	ref, kind := intent.Entities.ReferencePoint()
	if ref == nil && o.config.DefaultLocation != nil {
		c := *o.config.DefaultLocation
		ref, kind = &c, models.ReferenceDefault
	}
	result.ReferencePoint = ref
	result.ReferenceKind = kind

	if ref == nil {
		result.Locations = locations
		result.TotalLocations = len(locations)
		return
	}

	ranked := geo.RankByDistance(*ref, locations, o.config.SearchRadiusKm)
	if len(ranked) == 0 && len(locations) > 0 {
		// nothing inside the radius: still offer the nearest ones
		ranked = geo.RankByDistance(*ref, locations, 0)
	}
	result.Locations = ranked
	result.TotalLocations = len(ranked)

	if kind == models.ReferenceLandmark && intent.Entities.UserLocation != nil {
		o.logger.Debug("Landmark overrides user location", map[string]interface{}{
			"landmark": intent.Entities.DetectedLandmark.Name,
		})
	}

	if len(subtypes) > 1 {
		if stops := nearestPerSubtype(ranked, subtypes); len(stops) > 1 {
			result.Route = geo.PlanRoute(*ref, stops, o.config.AverageSpeedKmh, o.config.MinutesPerStop)
		}
	}
}

// nearestPerSubtype picks the first (nearest) location of each subtype.
func nearestPerSubtype(ranked []models.Location, subtypes []string) []models.Location {
	var stops []models.Location
	for _, st := range subtypes {
		for _, loc := range ranked {
			if loc.ServiceType == st {
				stops = append(stops, loc)
				break
			}
		}
	}
	return stops
}

// loadLocations loads every subtype concurrently and merges the batches.
func (o *Orchestrator) loadLocations(ctx context.Context, subtypes []string) locationBatch {
	batches := make([]locationBatch, len(subtypes))
	var g errgroup.Group
	for i, subtype := range subtypes {
		g.Go(func() error {
			batches[i] = o.locationsFor(ctx, subtype)
			return nil
		})
	}
	_ = g.Wait()
	return mergeBatches(batches)
}

func (o *Orchestrator) locationsFor(ctx context.Context, subtype string) locationBatch {
	key := locationKeyPrefix + subtype
	locCache := o.caches.Locations()
	if v, ok := locCache.Get(key); ok {
		if b, ok := v.(locationBatch); ok {
			return b
		}
	}

	load := func() (interface{}, error) {
		// a flight that just finished may have filled the entry
		if v, ok := locCache.Get(key); ok {
			if b, ok := v.(locationBatch); ok {
				return b, nil
			}
		}
		b, ok := o.fetchLocations(ctx, subtype)
		if ok {
			locCache.Set(key, b, 0)
		}
		return b, nil
	}
	v, ok := o.await(ctx, key, load)
	if !ok {
		return locationBatch{}
	}
	return v.(locationBatch)
}

// fetchLocations asks every source that serves subtype, in parallel, and
// waits for all of them. ok is false when every source failed.
func (o *Orchestrator) fetchLocations(ctx context.Context, subtype string) (locationBatch, bool) {
	var sources []fetchers.LocationSource
	for _, s := range o.locationSources {
		if s.Supports(subtype) {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		o.logger.Warn("No source serves subtype", map[string]interface{}{"subtype": subtype})
		return locationBatch{}, false
	}

	fetchCtx, cancel := o.fetchContext(ctx)
	defer cancel()
	results := make([][]models.Location, len(sources))
	succeeded := make([]bool, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			spanCtx, span := o.obs.StartSpan(fetchCtx, "enrichment.fetch",
				attribute.String("source", src.Name()),
				attribute.String("subtype", subtype))
			defer span.End()

			locs, err := src.Fetch(spanCtx, subtype)
			if err != nil {
				span.RecordError(err)
				o.logger.Warn("Location source failed", map[string]interface{}{
					"source":  src.Name(),
					"subtype": subtype,
					"error":   err.Error(),
				})
				return nil
			}
			results[i], succeeded[i] = locs, true
			return nil
		})
	}
	_ = g.Wait()

	batches := make([]locationBatch, 0, len(sources))
	anyOK := false
	for i, src := range sources {
		if !succeeded[i] {
			continue
		}
		anyOK = true
		b := locationBatch{Locations: results[i]}
		if len(results[i]) > 0 {
			b.Sources = []string{src.Name()}
		}
		batches = append(batches, b)
	}
	return mergeBatches(batches), anyOK
}

// loadCurrency serves the rate set from the cache or the first source that
// answers.
func (o *Orchestrator) loadCurrency(ctx context.Context) *models.CurrencyRateSet {
	curCache := o.caches.Currency()
	if v, ok := curCache.Get(currencyKey); ok {
		if rates, ok := v.(*models.CurrencyRateSet); ok {
			return rates
		}
	}

	v, ok := o.await(ctx, currencyKey, func() (interface{}, error) {
		if v, ok := curCache.Get(currencyKey); ok {
			if rates, ok := v.(*models.CurrencyRateSet); ok {
				return rates, nil
			}
		}
		fetchCtx, cancel := o.fetchContext(ctx)
		defer cancel()
		for _, src := range o.currencySources {
			spanCtx, span := o.obs.StartSpan(fetchCtx, "enrichment.fetch", attribute.String("source", src.Name()))
			rates, err := src.Fetch(spanCtx)
			span.End()
			if err != nil {
				o.logger.Warn("Currency source failed", map[string]interface{}{
					"source": src.Name(),
					"error":  err.Error(),
				})
				continue
			}
			curCache.Set(currencyKey, rates, 0)
			return rates, nil
		}
		return (*models.CurrencyRateSet)(nil), nil
	})
	if !ok {
		return nil
	}
	return v.(*models.CurrencyRateSet)
}

// fetchContext detaches upstream work from the caller so a fetch that
// outlives its request still fills the cache. FetchBudget caps it instead.
func (o *Orchestrator) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if o.config.FetchBudget <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, o.config.FetchBudget)
}

// await starts fn, shared per key when single-flight is on, and waits for it
// until ctx is done. ok is false when the caller gave up first; fn keeps
// running and caches its result.
func (o *Orchestrator) await(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, bool) {
	var ch <-chan singleflight.Result
	if o.config.SingleFlight {
		ch = o.group.DoChan(key, fn)
	} else {
		c := make(chan singleflight.Result, 1)
		go func() {
			v, err := fn()
			c <- singleflight.Result{Val: v, Err: err}
		}()
		ch = c
	}

	if err := ctx.Err(); err != nil {
		o.logWaitAbandoned(key, err)
		return nil, false
	}
	select {
	case r := <-ch:
		if r.Shared {
			o.logger.Debug("Shared in-flight fetch", map[string]interface{}{"key": key})
		}
		return r.Val, true
	case <-ctx.Done():
		o.logWaitAbandoned(key, ctx.Err())
		return nil, false
	}
}

func (o *Orchestrator) logWaitAbandoned(key string, err error) {
	o.logger.Warn("Request deadline reached before fetch finished", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

// mergeBatches concatenates batches, dropping repeated location IDs.
func mergeBatches(batches []locationBatch) locationBatch {
	var out locationBatch
	seen := make(map[string]bool)
	for _, b := range batches {
		for _, loc := range b.Locations {
			if seen[loc.ID] {
				continue
			}
			seen[loc.ID] = true
			out.Locations = append(out.Locations, loc)
		}
		out.Sources = appendUnique(out.Sources, b.Sources...)
	}
	return out
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, x := range list {
			if x == v {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}
