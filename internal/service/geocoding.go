package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/address"
	"github.com/UnknownOlympus/realty-atlas/internal/cache"
	"github.com/UnknownOlympus/realty-atlas/internal/geocoding"
	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
)

// DefaultCooldown is the pause after every executed provider call.
const DefaultCooldown = 200 * time.Millisecond

// GeocodingService resolves address strings to coordinates through a cache-first lookup,
// including provider integration, metrics tracking, and worker management.
type GeocodingService struct {
	log            *slog.Logger       // Logger for logging service activities
	cache          *cache.Cache       // Address cache consulted before every provider call
	provider       geocoding.Provider // Geocoding provider for external geocoding services
	providerName   string             // Name of the provider for metrics labeling
	metrics        *metrics.Metrics   // Metrics for tracking service performance
	numWorkers     int                // Number of concurrent workers used by ResolveAll
	cooldown       time.Duration      // Pause after each provider call
	normalizeSeoul bool               // Prefix bare Seoul district addresses with the province
}

// NewGeocodingService creates a new instance of GeocodingService.
// numWorkers below one is treated as one.
func NewGeocodingService(
	log *slog.Logger,
	addrCache *cache.Cache,
	provider geocoding.Provider,
	providerName string,
	appMetrics *metrics.Metrics,
	numWorkers int,
	cooldown time.Duration,
	normalizeSeoul bool,
) *GeocodingService {
	return &GeocodingService{
		log:            log,
		cache:          addrCache,
		provider:       provider,
		providerName:   providerName,
		metrics:        appMetrics,
		numWorkers:     max(numWorkers, 1),
		cooldown:       cooldown,
		normalizeSeoul: normalizeSeoul,
	}
}

// Cache returns the cache the service reads and fills.
func (gs *GeocodingService) Cache() *cache.Cache {
	return gs.cache
}

// Resolve returns the coordinates of addr. A cached outcome, resolved or not, is returned
// without calling the provider. Otherwise the provider is queried, the outcome is cached
// under the raw addr and the service pauses for the cooldown. Provider failures are cached
// as an unresolved point and are not returned as errors; only context cancellation is.
func (gs *GeocodingService) Resolve(ctx context.Context, addr string) (models.Point, error) {
	if point, ok := gs.cache.Get(addr); ok {
		gs.metrics.CacheHits.Inc()
		return point, nil
	}

	query := addr
	if gs.normalizeSeoul {
		query = address.WithSeoulProvince(addr)
	}

	startTime := time.Now()
	coords, err := gs.provider.Geocode(ctx, query)
	duration := time.Since(startTime).Seconds()
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(duration)

	var point models.Point
	switch {
	case err != nil && ctx.Err() != nil:
		return models.Point{}, ctx.Err()
	case err != nil:
		gs.log.WarnContext(ctx, "Failed to geocode", "address", addr, "query", query, "error", err)
		gs.metrics.GeocodeRequests.WithLabelValues("failure").Inc()
	case coords == nil:
		gs.log.WarnContext(ctx, "Provider returned no coordinates", "address", addr, "query", query)
		gs.metrics.GeocodeRequests.WithLabelValues("failure").Inc()
	default:
		gs.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		point = models.NewPoint(*coords)
	}

	if err = gs.cache.Put(ctx, addr, point); err != nil {
		gs.log.ErrorContext(ctx, "Failed to autosave address cache", "error", err)
	}

	return point, sleep(ctx, gs.cooldown)
}

// ResolveAll resolves every address not yet cached with a pool of workers.
// Results are read back from the cache.
func (gs *GeocodingService) ResolveAll(ctx context.Context, addrs []string) error {
	var pending []string
	for _, addr := range addrs {
		if _, ok := gs.cache.Get(addr); ok {
			gs.metrics.CacheHits.Inc()
			continue
		}
		pending = append(pending, addr)
	}
	if len(pending) == 0 {
		return nil
	}

	gs.log.InfoContext(ctx, "Found addresses to geocode. Starting worker pool.",
		"jobs", len(pending),
		"num_workers", gs.numWorkers,
	)

	jobs := make(chan string, len(pending))
	errs := make(chan error, gs.numWorkers)
	var wgr sync.WaitGroup

	for i := 1; i <= gs.numWorkers; i++ {
		wgr.Add(1)
		go gs.worker(ctx, i, &wgr, jobs, errs)
	}

	for _, addr := range pending {
		jobs <- addr
	}
	close(jobs)

	wgr.Wait()
	close(errs)

	return <-errs
}

// worker resolves addresses from jobs until the channel is drained or the context ends.
func (gs *GeocodingService) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	jobs <-chan string,
	errs chan<- error,
) {
	defer wg.Done()
	for addr := range jobs {
		gs.log.DebugContext(ctx, "Processing address", "worker", idx, "address", addr)

		if _, err := gs.Resolve(ctx, addr); err != nil {
			gs.log.WarnContext(ctx, "Worker stopped", "worker", idx, "error", err)
			errs <- err
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
