package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photodb/types"
)

// fakeLookuper scripts the external service for resolver tests.
type fakeLookuper struct {
	mu    sync.Mutex
	calls int
	queue []fakeReply
}

type fakeReply struct {
	place string
	err   error
}

func (f *fakeLookuper) Lookup(ctx context.Context, coords types.Coordinates) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.queue) == 0 {
		return "", errors.New("unscripted lookup")
	}
	reply := f.queue[0]
	f.queue = f.queue[1:]
	return reply.place, reply.err
}

func (f *fakeLookuper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var eiffel = types.Coordinates{Latitude: 48.858412, Longitude: 2.294481}

func newTestResolver(client Lookuper) *Resolver {
	r := NewResolver(NewCache(4), client)
	r.RetryDelay = time.Millisecond
	return r
}

func TestResolveCachesPerQuantizedKey(t *testing.T) {
	client := &fakeLookuper{queue: []fakeReply{{place: "Paris, Île-de-France, France"}}}
	r := newTestResolver(client)

	place, err := r.Resolve(context.Background(), eiffel)
	require.NoError(t, err)
	assert.Equal(t, "Paris, Île-de-France, France", place)

	// A jittered fix within quantization tolerance issues zero external calls.
	jittered := types.Coordinates{Latitude: 48.858377, Longitude: 2.294532}
	place, err = r.Resolve(context.Background(), jittered)
	require.NoError(t, err)
	assert.Equal(t, "Paris, Île-de-France, France", place)
	assert.Equal(t, 1, client.callCount())
}

func TestResolveRetriesTransientOnce(t *testing.T) {
	client := &fakeLookuper{queue: []fakeReply{
		{err: ErrRateLimited},
		{place: "Sydney, New South Wales, Australia"},
	}}
	r := newTestResolver(client)

	place, err := r.Resolve(context.Background(), types.Coordinates{Latitude: -33.8568, Longitude: 151.2153})
	require.NoError(t, err)
	assert.Equal(t, "Sydney, New South Wales, Australia", place)
	assert.Equal(t, 2, client.callCount())
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	client := &fakeLookuper{queue: []fakeReply{
		{err: ErrRateLimited},
		{err: ErrRateLimited},
		{place: "Paris, Île-de-France, France"},
	}}
	r := newTestResolver(client)

	_, err := r.Resolve(context.Background(), eiffel)
	require.Error(t, err)
	assert.Equal(t, 2, client.callCount())

	// The failed key stayed uncached, so the next resolve goes out again
	// and succeeds.
	place, err := r.Resolve(context.Background(), eiffel)
	require.NoError(t, err)
	assert.Equal(t, "Paris, Île-de-France, France", place)
	assert.Equal(t, 3, client.callCount())
}

func TestResolveDoesNotRetryFatalErrors(t *testing.T) {
	client := &fakeLookuper{queue: []fakeReply{{err: ErrAuthFailed}}}
	r := newTestResolver(client)

	_, err := r.Resolve(context.Background(), eiffel)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 1, client.callCount())
}

// slowLookuper blocks until released, to expose duplicate in-flight lookups.
type slowLookuper struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (s *slowLookuper) Lookup(ctx context.Context, coords types.Coordinates) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-s.release
	return "Somewhere", nil
}

func TestResolveSerializesConcurrentMisses(t *testing.T) {
	client := &slowLookuper{release: make(chan struct{})}
	r := newTestResolver(client)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), eiffel)
			assert.NoError(t, err)
		}()
	}

	// Let the first caller through; the rest must find the cache filled
	// instead of issuing their own requests.
	time.Sleep(20 * time.Millisecond)
	close(client.release)
	wg.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.calls)
}
