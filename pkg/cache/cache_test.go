package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "jsdelivr:tree:react@18.2.0", []byte(`{"files":[]}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, "jsdelivr:tree:react@18.2.0")
	if err != nil || !hit {
		t.Fatalf("Get() = %v, %v; want hit", hit, err)
	}
	if string(data) != `{"files":[]}` {
		t.Errorf("Get() data = %q", data)
	}

	if err := c.Delete(ctx, "jsdelivr:tree:react@18.2.0"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "jsdelivr:tree:react@18.2.0"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get() = %v, %v; want miss for expired entry", hit, err)
	}
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "key", []byte("value"), 0)

	if err := os.WriteFile(c.path("key"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get() = %v, %v; want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("cache dir removed: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer c.Close()

	buf := []byte("one")
	_ = c.Set(ctx, "1", buf, 0)
	buf[0] = 'X'

	data, hit, _ := c.Get(ctx, "1")
	if !hit || string(data) != "one" {
		t.Errorf("Get(1) = %q, %v; want stored copy", data, hit)
	}

	_ = c.Set(ctx, "2", []byte("two"), 0)
	// Reading 1 makes 2 the least recently used entry.
	if _, hit, _ := c.Get(ctx, "1"); !hit {
		t.Fatal("Get(1) missed before eviction")
	}
	_ = c.Set(ctx, "3", []byte("three"), 0)

	if _, hit, _ := c.Get(ctx, "2"); hit {
		t.Error("least recently used entry should have been evicted")
	}
	if _, hit, _ := c.Get(ctx, "1"); !hit {
		t.Error("recently read entry should survive eviction")
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMemoryCache(0)

	_ = c.Set(ctx, "key", []byte("value"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry returned as hit")
	}
	if n := c.(*MemoryCache).Len(); n != 0 {
		t.Errorf("Len() = %d after expired read, want 0", n)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DTSFETCH_TEST_REDIS")
	if addr == "" {
		t.Skip("DTSFETCH_TEST_REDIS not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "dtsfetch-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}
	_ = c.Delete(ctx, "key")
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("entry present after Delete")
	}
}

func TestFileCachePathSharding(t *testing.T) {
	c := &FileCache{dir: "/cache"}
	p1 := c.path("jsdelivr:tree:react@18.2.0")
	if p1 != c.path("jsdelivr:tree:react@18.2.0") {
		t.Error("path should be deterministic")
	}
	if p1 == c.path("jsdelivr:tree:react@18.3.0") {
		t.Error("different keys should map to different files")
	}
	rel, err := filepath.Rel("/cache", p1)
	if err != nil {
		t.Fatal(err)
	}
	dir, file := filepath.Split(rel)
	if len(dir) != 3 || len(file) != 62+len(".json") {
		t.Errorf("path = %q, want 2-char shard and 62-char name", rel)
	}
}

func TestRetry(t *testing.T) {
	errStatus := errors.New("status 503")
	errGone := errors.New("status 404")

	tests := []struct {
		name     string
		attempts int
		fails    int
		err      error
		want     error
		calls    int
	}{
		{"success", 3, 0, nil, nil, 1},
		{"permanent", 3, 3, errGone, errGone, 1},
		{"recovers", 3, 1, Retryable(errStatus), nil, 2},
		{"exhausted", 2, 5, Retryable(errStatus), errStatus, 2},
		{"zero attempts", 0, 1, Retryable(errStatus), errStatus, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.fails {
					return tt.err
				}
				return nil
			})
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if calls != tt.calls {
				t.Errorf("calls = %d, want %d", calls, tt.calls)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
	cause := errors.New("connection reset")
	err := Retryable(cause)
	if !IsRetryable(err) || !errors.Is(err, cause) || err.Error() != cause.Error() {
		t.Errorf("Retryable(%v) = %v", cause, err)
	}
	if IsRetryable(cause) {
		t.Error("plain error reported as retryable")
	}
}

func TestRetryWithBackoffCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errors.New("status 502"))
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
