// Package acquire fetches the TypeScript declaration files a source file
// needs, starting from its import specifiers.
//
// # Overview
//
// A [Session] walks the import graph of a source text breadth by breadth:
//
//  1. The injected parser extracts module specifiers from the text
//  2. Each specifier is normalized into a [Reference] (module name plus tag)
//  3. Unseen modules are resolved to a [FileTree] through the [Registry]
//  4. Trees without any ".d.ts" file fall back to their "@types/" companion
//  5. Every declaration file is downloaded and scanned for further imports
//
// The walk stops three levels below the source (see [DefaultMaxDepth];
// [RootOnly] follows only the source's own imports) and never resolves a
// raw specifier twice within a Session, even across runs.
//
// # Virtual File Map
//
// Downloaded text is stored under an absolute virtual path that mirrors a
// node_modules layout:
//
//	/node_modules/react/index.d.ts
//	/node_modules/@types/lodash/index.d.ts
//	/node_modules/@types/foo__bar/index.d.ts
//
// # Usage
//
//	s := acquire.New(acquire.Config{
//	    Name:     "playground",
//	    Registry: jsdelivr.NewClient(c, jsdelivr.Options{}),
//	    Parse:    imports.Parse,
//	    Delegate: acquire.Delegate{
//	        Finished: func(files map[string]string) { ... },
//	    },
//	})
//	err := s.Run(ctx, source)
//
// # Failure Model
//
// A module that cannot be resolved or a file that cannot be downloaded is
// logged and reported through [Delegate.ErrorMessage]; the rest of the run
// continues. [Session.Run] only fails when its context is cancelled.
package acquire
