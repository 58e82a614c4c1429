package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegov/kubegov-auditor/pkg/model"
)

func cacheSpec(workload string) model.QuerySpec {
	plan := testPlan(workload)
	return plan[0].Specs[0]
}

func TestCachedQuerier_HitWithinTTL(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, time.Minute)
	spec := cacheSpec("checkout")

	first, err := cached.Range(context.Background(), spec)
	require.NoError(t, err)
	second, err := cached.Range(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.callCount(), "second call must be served from cache")
	assert.Equal(t, first, second)

	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachedQuerier_DistinctSpecsMiss(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, time.Minute)

	_, err := cached.Range(context.Background(), cacheSpec("checkout"))
	require.NoError(t, err)
	_, err = cached.Range(context.Background(), cacheSpec("ledger"))
	require.NoError(t, err)

	assert.Equal(t, 2, fake.callCount())

	hits, misses := cached.Stats()
	assert.Zero(t, hits)
	assert.Equal(t, int64(2), misses)
}

func TestCachedQuerier_WindowDriftWithinStepHits(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, 5*time.Minute)

	spec := cacheSpec("checkout")
	_, err := cached.Range(context.Background(), spec)
	require.NoError(t, err)

	// A later pass anchors the same window a few seconds later. At step
	// resolution this is the same query and must hit.
	drifted := spec
	drifted.Start = spec.Start.Add(7 * time.Second)
	drifted.End = spec.End.Add(7 * time.Second)
	require.Less(t, 7*time.Second, spec.Step)

	_, err = cached.Range(context.Background(), drifted)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.callCount(), "drift smaller than the step must be served from cache")

	hits, _ := cached.Stats()
	assert.Equal(t, int64(1), hits)
}

func TestCachedQuerier_DriftAcrossStepBoundaryMisses(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, 5*time.Minute)

	spec := cacheSpec("checkout")
	_, err := cached.Range(context.Background(), spec)
	require.NoError(t, err)

	moved := spec
	moved.Start = spec.Start.Add(spec.Step)
	moved.End = spec.End.Add(spec.Step)

	_, err = cached.Range(context.Background(), moved)
	require.NoError(t, err)

	assert.Equal(t, 2, fake.callCount(), "a full step of drift is a different window")
}

func TestCachedQuerier_FailureNotCached(t *testing.T) {
	fake := &fakeQuerier{
		respond: func(context.Context, model.QuerySpec, int) (model.SampleSeries, error) {
			return nil, errors.New("boom")
		},
	}
	cached := NewCachedQuerier(fake, time.Minute)
	spec := cacheSpec("checkout")

	_, err := cached.Range(context.Background(), spec)
	require.Error(t, err)
	_, err = cached.Range(context.Background(), spec)
	require.Error(t, err)

	assert.Equal(t, 2, fake.callCount(), "failures must reach the backend every time")
}

func TestCachedQuerier_EntryExpires(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, 10*time.Millisecond)
	spec := cacheSpec("checkout")

	_, err := cached.Range(context.Background(), spec)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = cached.Range(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, 2, fake.callCount())
}

func TestCachedQuerier_ZeroTTLPassesThrough(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, 0)
	spec := cacheSpec("checkout")

	for i := 0; i < 2; i++ {
		_, err := cached.Range(context.Background(), spec)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, fake.callCount())
	hits, misses := cached.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)

	assert.True(t, cached.Reachable(context.Background()))
}

func TestCachedQuerier_PurgeDropsExpired(t *testing.T) {
	fake := &fakeQuerier{}
	cached := NewCachedQuerier(fake, 10*time.Millisecond)

	_, err := cached.Range(context.Background(), cacheSpec("checkout"))
	require.NoError(t, err)
	assert.Len(t, cached.entries, 1)

	time.Sleep(25 * time.Millisecond)
	cached.Purge()

	assert.Empty(t, cached.entries)
}
