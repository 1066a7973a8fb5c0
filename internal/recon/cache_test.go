package recon

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Hour)

	_, ok, err := cache.LatestReport(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	report := Report{
		RanAt: time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC),
		Discrepancies: []Discrepancy{
			{AccountCode: "1400", Cached: 47_000, Computed: 50_000, Delta: -3_000},
		},
	}
	require.NoError(t, cache.StoreReport(context.Background(), report))

	got, ok, err := cache.LatestReport(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, report.Discrepancies, got.Discrepancies)
	require.True(t, report.RanAt.Equal(got.RanAt))

	require.NoError(t, cache.Invalidate(context.Background()))
	_, ok, err = cache.LatestReport(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheNilClientIsNoop(t *testing.T) {
	var cache *Cache
	require.NoError(t, cache.StoreReport(context.Background(), Report{}))
	_, ok, err := cache.LatestReport(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
