// Package render draws acquisition traces as Graphviz diagrams.
//
// # Overview
//
// A trace ([acquire.Session.Trace]) has two kinds of edges: a file importing
// a specifier, and a specifier being served by a declaration file. [ToDOT]
// turns the trace into DOT source and [RenderSVG] renders it in-process with
// Graphviz:
//
//	dot := render.ToDOT(session.Trace(), render.Options{Packages: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Options
//
//   - Packages: collapse declaration files into one node per package
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which runs Graphviz as
// WebAssembly, so no system installation is needed.
package render
