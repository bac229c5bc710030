// Package pkg provides the libraries behind dtsfetch.
//
// # Overview
//
// dtsfetch finds the modules a JavaScript or TypeScript source imports and
// downloads their TypeScript declaration files into a virtual node_modules
// tree. The pkg directory is organized as follows:
//
//  1. [acquire] - The acquisition session: normalization, tree resolution, recursion
//  2. [imports] - Import specifier scanning and module name remapping
//  3. [integrations] - Registry clients (jsDelivr, npm)
//  4. [cache] - Response caches (file, memory, redis)
//  5. [store] - Run sinks (directory, MongoDB, memory)
//  6. [render] - Acquisition graphs as DOT and SVG
//
// # Architecture
//
// The typical data flow:
//
//	Source text
//	     ↓
//	[imports] package (specifiers)
//	     ↓
//	[acquire] package (resolve trees, download declarations, follow imports)
//	     ↓
//	virtual file map → [store] sinks, [render] graph
//
// # Quick Start
//
//	reg := jsdelivr.NewClient(cache.NewNullCache(), jsdelivr.Options{Name: "my-editor"})
//	sess := acquire.New(acquire.Config{
//	    Parse:    imports.Parse,
//	    Remap:    imports.RemapModuleName,
//	    Registry: reg,
//	})
//	if err := sess.Run(ctx, `import React from "react"`); err != nil {
//	    return err
//	}
//	files := sess.Files() // "/node_modules/react/index.d.ts" → text
//
// [acquire]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/acquire
// [imports]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/imports
// [integrations]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/integrations
// [cache]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/store
// [render]: https://pkg.go.dev/github.com/matzehuels/dtsfetch/pkg/render
package pkg
