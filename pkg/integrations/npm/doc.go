// Package npm provides a tag source backed by the npm registry API.
//
// # Overview
//
// This package reads the abbreviated package document
// (https://registry.npmjs.org/<name>) to answer dist-tag questions. It is
// used in place of the jsDelivr tag lookups when a private registry mirror
// decides which version "latest" points at.
//
// # Usage
//
//	tags := npm.NewClient(c, "https://npm.internal.example", 10*time.Minute)
//	reg := jsdelivr.NewClient(c, jsdelivr.Options{Tags: tags})
//
// # Caching
//
// Package documents change on every publish, so the default TTL is short.
// Call [Client.SetRefresh] to bypass the cache.
package npm
