// Package jsdelivr provides an [acquire.Registry] backed by the jsDelivr
// data API and CDN.
//
// # Overview
//
// jsDelivr mirrors every npm package. Its data API answers the metadata
// questions of an acquisition (tag resolution, version listing, flat file
// listings) and its CDN serves the file contents:
//
//	GET https://data.jsdelivr.com/v1/package/resolve/npm/react@latest
//	GET https://data.jsdelivr.com/v1/package/npm/react
//	GET https://data.jsdelivr.com/v1/package/npm/react@18.2.0/flat
//	GET https://cdn.jsdelivr.net/npm/react@18.2.0/index.d.ts
//
// # Usage
//
//	c, _ := cache.NewFileCache(dir)
//	reg := jsdelivr.NewClient(c, jsdelivr.Options{Name: "playground"})
//	tree, err := reg.FileTree(ctx, "react", "18.2.0", "react")
//
// # Caching
//
// Trees, versioned file text and version listings are cached for
// [DefaultCacheTTL]. Tag resolutions change when a package is published and
// use the shorter [TagTTL].
//
// # Tag Sources
//
// [Options.Tags] replaces the jsDelivr tag lookups, for example with the
// npm registry client from the npm package when a private mirror is the
// source of truth for dist-tags.
package jsdelivr
