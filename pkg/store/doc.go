// Package store persists the virtual file map of an acquisition run.
//
// A [Sink] receives one [Run] at a time. [DirSink] materializes the map as a
// node_modules tree on disk next to a JSON manifest; [MongoSink] upserts one
// document per run into a MongoDB collection, which is what the serve mode
// uses to keep a history of acquisitions. [MemorySink] keeps recent runs in
// an LRU when no database is configured.
//
// Sinks that can read runs back implement [Loader].
package store
