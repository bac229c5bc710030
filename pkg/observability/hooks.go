// Package observability lets the binaries observe the library packages
// without the libraries importing a metrics framework.
//
// The acquisition engine, the registry client and its cache layer report
// events through three small hook interfaces. Until something is
// registered every event goes to a no-op implementation; the serve command
// installs the Prometheus collectors from internal/metrics at startup:
//
//	m := metrics.New(prometheus.NewRegistry())
//	observability.SetAcquireHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetHTTPHooks(m)
//	defer observability.Reset()
//
// Emitting an event is a single call at the site that knows about it:
//
//	observability.Acquire().OnTreeResolved(ctx, "@types/lodash", true, err)
package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// AcquireHooks receives events from acquisition sessions.
type AcquireHooks interface {
	// OnRunStart is called when a session starts processing one source text.
	OnRunStart(ctx context.Context, name string)
	// OnRunComplete reports how many declaration files the run downloaded.
	OnRunComplete(ctx context.Context, name string, downloaded int, duration time.Duration)
	// OnTreeResolved reports a file tree lookup. types is set for @types companions.
	OnTreeResolved(ctx context.Context, module string, types bool, err error)
	// OnFileDownloaded reports one declaration file fetch.
	OnFileDownloaded(ctx context.Context, module string, size int, err error)
}

// CacheHooks receives registry cache events. keyType is the first segment
// of the cache key, such as "tree" or "tags".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives outgoing registry request events.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError reports transport failures. Error statuses arrive through OnResponse.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopAcquireHooks discards acquisition events.
type NoopAcquireHooks struct{}

func (NoopAcquireHooks) OnRunStart(context.Context, string)                        {}
func (NoopAcquireHooks) OnRunComplete(context.Context, string, int, time.Duration) {}
func (NoopAcquireHooks) OnTreeResolved(context.Context, string, bool, error)       {}
func (NoopAcquireHooks) OnFileDownloaded(context.Context, string, int, error)      {}

// NoopCacheHooks discards cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

type hookSet struct {
	acquire AcquireHooks
	cache   CacheHooks
	http    HTTPHooks
}

var (
	// current is read on every event; writers copy it under mu.
	current atomic.Pointer[hookSet]
	mu      sync.Mutex
)

func init() { Reset() }

func update(fn func(*hookSet)) {
	mu.Lock()
	defer mu.Unlock()
	next := *current.Load()
	fn(&next)
	current.Store(&next)
}

// SetAcquireHooks installs h for all sessions. nil is ignored.
func SetAcquireHooks(h AcquireHooks) {
	if h != nil {
		update(func(s *hookSet) { s.acquire = h })
	}
}

// SetCacheHooks installs h for registry cache events. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetHTTPHooks installs h for registry requests. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

// Acquire returns the installed acquisition hooks.
func Acquire() AcquireHooks { return current.Load().acquire }

// Cache returns the installed cache hooks.
func Cache() CacheHooks { return current.Load().cache }

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&hookSet{
		acquire: NoopAcquireHooks{},
		cache:   NoopCacheHooks{},
		http:    NoopHTTPHooks{},
	})
}
