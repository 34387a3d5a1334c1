package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/cache"
	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	service  *GeocodingService
	provider *mocks.Provider
	store    *mocks.Store
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, stored map[string]models.Point, workers int, normalizeSeoul bool) fixture {
	t.Helper()

	store := mocks.NewStore(t)
	store.On("Load", mock.Anything).Return(stored, nil).Once()
	provider := mocks.NewProvider(t)
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	addrCache := cache.New(store, 100, discard, appMetrics)
	addrCache.Load(t.Context())

	return fixture{
		service:  NewGeocodingService(discard, addrCache, provider, "kakao", appMetrics, workers, 0, normalizeSeoul),
		provider: provider,
		store:    store,
		metrics:  appMetrics,
	}
}

func TestResolve(t *testing.T) {
	ctx := t.Context()

	t.Run("cache hit skips the provider", func(t *testing.T) {
		fx := newFixture(t, map[string]models.Point{
			"강남구 역삼동 123-4": models.NewPoint(models.Coordinates{Latitude: 37.5, Longitude: 127.03}),
		}, 1, true)

		point, err := fx.service.Resolve(ctx, "강남구 역삼동 123-4")

		require.NoError(t, err)
		require.True(t, point.Resolved())
		assert.InDelta(t, 37.5, *point.Lat, 0)
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.CacheHits), 0)
		fx.provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("cached failure is not retried", func(t *testing.T) {
		fx := newFixture(t, map[string]models.Point{"없는동 1": {}}, 1, true)

		point, err := fx.service.Resolve(ctx, "없는동 1")

		require.NoError(t, err)
		assert.False(t, point.Resolved())
		fx.provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("seoul district is queried with the province", func(t *testing.T) {
		fx := newFixture(t, nil, 1, true)
		coords := &models.Coordinates{Latitude: 37.5006, Longitude: 127.0364}
		fx.provider.On("Geocode", mock.Anything, "서울특별시 강남구 역삼동 123-4").Return(coords, nil).Once()

		point, err := fx.service.Resolve(ctx, "강남구 역삼동 123-4")

		require.NoError(t, err)
		require.True(t, point.Resolved())
		assert.InDelta(t, 37.5006, *point.Lat, 0)
		assert.InDelta(t, 127.0364, *point.Lng, 0)

		cached, ok := fx.service.Cache().Get("강남구 역삼동 123-4")
		require.True(t, ok, "entry must be stored under the raw address")
		assert.Equal(t, point, cached)
		_, ok = fx.service.Cache().Get("서울특별시 강남구 역삼동 123-4")
		assert.False(t, ok)
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.GeocodeRequests.WithLabelValues("success")), 0)
	})

	t.Run("normalization disabled", func(t *testing.T) {
		fx := newFixture(t, nil, 1, false)
		coords := &models.Coordinates{Latitude: 37.5, Longitude: 127.0}
		fx.provider.On("Geocode", mock.Anything, "강남구 역삼동 123-4").Return(coords, nil).Once()

		_, err := fx.service.Resolve(ctx, "강남구 역삼동 123-4")

		require.NoError(t, err)
	})

	t.Run("provider failure is cached as unresolved", func(t *testing.T) {
		fx := newFixture(t, nil, 1, true)
		fx.provider.On("Geocode", mock.Anything, "분당구 정자동 999").Return(nil, assert.AnError).Once()

		point, err := fx.service.Resolve(ctx, "분당구 정자동 999")
		require.NoError(t, err)
		assert.False(t, point.Resolved())

		point, err = fx.service.Resolve(ctx, "분당구 정자동 999")
		require.NoError(t, err)
		assert.False(t, point.Resolved())

		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.GeocodeRequests.WithLabelValues("failure")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.CacheHits), 0)
		assert.Equal(t, 1, testutil.CollectAndCount(fx.metrics.RequestSeconds))
	})

	t.Run("canceled context is not cached", func(t *testing.T) {
		fx := newFixture(t, nil, 1, true)
		cctx, cancel := context.WithCancel(t.Context())
		cancel()
		fx.provider.On("Geocode", mock.Anything, "분당구 정자동 1").Return(nil, context.Canceled).Once()

		_, err := fx.service.Resolve(cctx, "분당구 정자동 1")

		require.ErrorIs(t, err, context.Canceled)
		_, ok := fx.service.Cache().Get("분당구 정자동 1")
		assert.False(t, ok)
	})
}

func TestResolve_Cooldown(t *testing.T) {
	store := mocks.NewStore(t)
	provider := mocks.NewProvider(t)
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	addrCache := cache.New(store, 100, discard, appMetrics)
	gs := NewGeocodingService(discard, addrCache, provider, "kakao", appMetrics, 1, time.Hour, true)

	coords := &models.Coordinates{Latitude: 37.5, Longitude: 127.0}
	provider.On("Geocode", mock.Anything, mock.AnythingOfType("string")).Return(coords, nil).Once()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	point, err := gs.Resolve(ctx, "수정구 신흥동 1")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
	assert.True(t, point.Resolved())
	_, ok := addrCache.Get("수정구 신흥동 1")
	assert.True(t, ok, "result is cached before the cooldown")
}

func TestResolveAll(t *testing.T) {
	t.Run("only uncached addresses reach the provider", func(t *testing.T) {
		fx := newFixture(t, map[string]models.Point{
			"강남구 역삼동 1": models.NewPoint(models.Coordinates{Latitude: 37.5, Longitude: 127.0}),
		}, 3, false)
		coords := &models.Coordinates{Latitude: 37.4, Longitude: 127.1}
		fx.provider.On("Geocode", mock.Anything, mock.AnythingOfType("string")).Return(coords, nil).Times(4)

		addrs := []string{"강남구 역삼동 1", "송파구 잠실동 40", "분당구 정자동 178-1", "수정구 신흥동 1", "마포구 합정동 5"}
		require.NoError(t, fx.service.ResolveAll(t.Context(), addrs))

		assert.Equal(t, 5, fx.service.Cache().Len())
		for _, addr := range addrs {
			point, ok := fx.service.Cache().Get(addr)
			require.True(t, ok, addr)
			assert.True(t, point.Resolved(), addr)
		}
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.CacheHits), 0)
		assert.InDelta(t, 4, testutil.ToFloat64(fx.metrics.GeocodeRequests.WithLabelValues("success")), 0)
	})

	t.Run("nothing pending", func(t *testing.T) {
		fx := newFixture(t, nil, 2, true)

		require.NoError(t, fx.service.ResolveAll(t.Context(), nil))
		fx.provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("canceled context stops the pool", func(t *testing.T) {
		fx := newFixture(t, nil, 2, true)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		fx.provider.On("Geocode", mock.Anything, mock.AnythingOfType("string")).Return(nil, context.Canceled).Maybe()

		err := fx.service.ResolveAll(ctx, []string{"a동 1", "b동 2", "c동 3"})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, fx.service.Cache().Len())
	})
}

func TestResolve_Autosave(t *testing.T) {
	store := mocks.NewStore(t)
	provider := mocks.NewProvider(t)
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	addrCache := cache.New(store, 2, discard, appMetrics)
	gs := NewGeocodingService(discard, addrCache, provider, "kakao", appMetrics, 1, 0, true)

	coords := &models.Coordinates{Latitude: 37.5, Longitude: 127.0}
	provider.On("Geocode", mock.Anything, mock.AnythingOfType("string")).Return(coords, nil).Times(3)
	store.On("Save", mock.Anything, mock.Anything, mock.MatchedBy(func(changed map[string]models.Point) bool {
		return len(changed) == 2
	})).Return(assert.AnError).Once()
	store.On("Save", mock.Anything, mock.Anything, mock.MatchedBy(func(changed map[string]models.Point) bool {
		return len(changed) == 3
	})).Return(nil).Once()

	for _, addr := range []string{"a동 1", "b동 2", "c동 3"} {
		_, err := gs.Resolve(t.Context(), addr)
		require.NoError(t, err, "autosave failures are logged, not returned")
	}

	assert.Equal(t, 3, addrCache.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.CacheFlushes), 0)
}
