package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylink/fetchsql/internal/testutil"
	"github.com/querylink/fetchsql/pkg/schema"
)

// fakeProvider counts calls and can be told to fail or block.
type fakeProvider struct {
	calls   atomic.Int64
	err     error
	release chan struct{} // when non-nil, Attributes blocks until closed
	result  []schema.AttributeDescriptor
}

func (f *fakeProvider) Attributes(context.Context, string, string) ([]schema.AttributeDescriptor, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var testDescriptors = []schema.AttributeDescriptor{
	{LogicalName: "name", Type: "String"},
	{LogicalName: "createdbyname", Type: "String", ParentColumn: "createdby"},
}

func TestCache_ServesFromMemory(t *testing.T) {
	provider := &fakeProvider{result: testDescriptors}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	ctx := context.Background()
	first, err := cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, testDescriptors, first)

	second, err := cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, testDescriptors, second)

	assert.Equal(t, int64(1), provider.calls.Load(), "second call must hit the memory cache")
}

func TestCache_KeysByEnvironmentAndEntity(t *testing.T) {
	provider := &fakeProvider{result: testDescriptors}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	ctx := context.Background()
	_, err := cache.Attributes(ctx, "https://a.example.com", "account")
	require.NoError(t, err)
	_, err = cache.Attributes(ctx, "https://b.example.com", "account")
	require.NoError(t, err)
	_, err = cache.Attributes(ctx, "https://a.example.com", "contact")
	require.NoError(t, err)

	assert.Equal(t, int64(3), provider.calls.Load(), "each (environment, entity) pair is a distinct key")
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	provider := &fakeProvider{result: testDescriptors}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	clock := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	ctx := context.Background()
	_, err := cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	_, err = cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, int64(1), provider.calls.Load(), "entry is still fresh")

	clock = clock.Add(time.Minute)
	_, err = cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, int64(2), provider.calls.Load(), "stale entry must be re-fetched")
}

func TestCache_Invalidate(t *testing.T) {
	provider := &fakeProvider{result: testDescriptors}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	ctx := context.Background()
	_, err := cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)

	cache.Invalidate("https://org.example.com", "account")

	_, err = cache.Attributes(ctx, "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, int64(2), provider.calls.Load())
}

func TestCache_PropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom")}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	_, err := cache.Attributes(context.Background(), "https://org.example.com", "account")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCache_CollapsesConcurrentFetches(t *testing.T) {
	provider := &fakeProvider{result: testDescriptors, release: make(chan struct{})}
	cache := NewCache(provider, nil, time.Minute, testutil.NewTestLogger(t))

	ctx := context.Background()
	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Attributes(ctx, "https://org.example.com", "account")
		}(i)
	}

	// Let all callers pile up on the flight, then release the fetch.
	time.Sleep(50 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(1), provider.calls.Load(), "concurrent callers must share one fetch")
}

func TestCache_FallsBackToStore(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	fetchedAt := time.Now().UTC()
	require.NoError(t, store.Put("https://org.example.com", "account", testDescriptors, fetchedAt))

	provider := &fakeProvider{err: errors.New("must not be called")}
	cache := NewCache(provider, store, time.Hour, testutil.NewTestLogger(t))

	descriptors, err := cache.Attributes(context.Background(), "https://org.example.com", "account")
	require.NoError(t, err)
	assert.Equal(t, testDescriptors, descriptors)
	assert.Equal(t, int64(0), provider.calls.Load(), "fresh store snapshot must satisfy the miss")
}

func TestCache_DefaultTTL(t *testing.T) {
	cache := NewCache(&fakeProvider{}, nil, 0, nil)
	assert.Equal(t, DefaultTTL, cache.ttl)
}
