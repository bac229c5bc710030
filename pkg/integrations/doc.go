// Package integrations provides the shared HTTP layer for registry and CDN clients.
//
// # Overview
//
// Registry-specific clients live in subpackages:
//
//   - [jsdelivr]: npm metadata and file contents through the jsDelivr data API and CDN
//   - [npm]: npm registry package documents (dist-tags fallback)
//
// # Client Pattern
//
// Subpackage clients embed [Client] and follow the same pattern:
//
//	c := integrations.NewClient(backend, "jsdelivr:", 24*time.Hour, headers)
//	err := c.Cached(ctx, "tree:react@18.2.0", false, &tree, func() error {
//	    return c.Get(ctx, url, &tree)
//	})
//
// [Client] handles:
//   - HTTP requests with retry for transient failures
//   - Response caching through any [cache.Cache] backend
//   - Status mapping to [ErrNotFound] and [ErrNetwork]
//   - Request and cache events for [observability] hooks
//
// [jsdelivr]: github.com/matzehuels/dtsfetch/pkg/integrations/jsdelivr
// [npm]: github.com/matzehuels/dtsfetch/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/dtsfetch/pkg/cache.Cache
// [observability]: github.com/matzehuels/dtsfetch/pkg/observability
package integrations
