package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	got := Compute(
		[]string{"Go", "Kubernetes", "go", " ", "SQL"},
		[]string{"Describe a  recent\n outage.", "", "How do you test concurrency?"},
		0,
	)

	want := "Skills: Go, Kubernetes, SQL\n" +
		"Questions:\n" +
		"1. Describe a recent outage.\n" +
		"2. How do you test concurrency?"
	assert.Equal(t, want, got)
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, "", Compute(nil, nil, 100))
	assert.Equal(t, "Skills: Go", Compute([]string{"Go"}, nil, 100))
}

func TestCompute_Truncates(t *testing.T) {
	questions := make([]string, 50)
	for i := range questions {
		questions[i] = "Explain how a garbage collector decides what to free."
	}

	got := Compute([]string{"Go"}, questions, 120)
	assert.Equal(t, 120, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "Sk", truncate("Skills", 2))
}

// countingCache counts calls and can fail on demand.
type countingCache struct {
	*MemoryCache
	gets, sets atomic.Int32
	getErr     error
	setErr     error
}

func (c *countingCache) Get(ctx context.Context, id string) (string, bool, error) {
	c.gets.Add(1)
	if c.getErr != nil {
		return "", false, c.getErr
	}
	return c.MemoryCache.Get(ctx, id)
}

func (c *countingCache) Set(ctx context.Context, id, d string) error {
	c.sets.Add(1)
	if c.setErr != nil {
		return c.setErr
	}
	return c.MemoryCache.Set(ctx, id, d)
}

func TestDigester_CachesPerInterview(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(0)}
	d := New(cache)
	src := Source{InterviewID: "iv-1", Skills: []string{"Go"}, Questions: []string{"Why Go?"}}

	first, err := d.Get(context.Background(), src)
	require.NoError(t, err)

	// Changed content for the same interview still returns the cached digest.
	src.Questions = []string{"Something else"}
	second, err := d.Get(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), cache.sets.Load())
	assert.Equal(t, int32(2), cache.gets.Load())
}

func TestDigester_ConcurrentCallsShareComputation(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(0)}
	d := New(cache)
	src := Source{InterviewID: "iv-2", Skills: []string{"Go"}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.Get(context.Background(), src)
			assert.NoError(t, err)
			assert.Equal(t, "Skills: Go", got)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.sets.Load(), int32(20))
	v, ok, err := cache.MemoryCache.Get(context.Background(), "iv-2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Skills: Go", v)
}

func TestDigester_CacheFailuresDegrade(t *testing.T) {
	cache := &countingCache{
		MemoryCache: NewMemoryCache(0),
		getErr:      errors.New("cache down"),
		setErr:      errors.New("cache down"),
	}
	d := New(cache, WithMaxChars(50))

	got, err := d.Get(context.Background(), Source{InterviewID: "iv-3", Skills: []string{"Rust"}})
	require.NoError(t, err)
	assert.Equal(t, "Skills: Rust", got)
}

func TestDigester_NoInterviewID(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(0)}
	d := New(cache)

	got, err := d.Get(context.Background(), Source{Skills: []string{"Go"}})
	require.NoError(t, err)
	assert.Equal(t, "Skills: Go", got)
	assert.Equal(t, int32(0), cache.gets.Load())
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "iv", "digest"))

	v, ok, err := c.Get(context.Background(), "iv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "digest", v)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(context.Background(), "iv")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
	c := NewRedisCache(fake, "", time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "iv-9")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "iv-9", "Skills: Go"))
	assert.Equal(t, "Skills: Go", fake.data["interviewflow:digest:iv-9"])
	assert.Equal(t, time.Hour, fake.ttls["interviewflow:digest:iv-9"])

	v, ok, err := c.Get(ctx, "iv-9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Skills: Go", v)

	fake.err = errors.New("connection refused")
	_, _, err = c.Get(ctx, "iv-9")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, c.Set(ctx, "iv-9", "x"))
}
