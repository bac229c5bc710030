package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
)

// Options configures acquisition graph rendering.
type Options struct {
	// Packages collapses declaration files into one node per package, so
	// the graph shows which package pulled in which.
	Packages bool
}

type nodeKind int

const (
	kindSource nodeKind = iota
	kindSpecifier
	kindFile
)

// ToDOT converts an acquisition trace to Graphviz DOT. Source files are
// drawn as notes, specifiers as ellipses and declaration files as boxes.
func ToDOT(edges []acquire.Edge, opts Options) string {
	kinds := make(map[string]nodeKind)
	var order []string
	add := func(id string, k nodeKind) {
		if prev, ok := kinds[id]; ok {
			if k > prev {
				kinds[id] = k
			}
			return
		}
		kinds[id] = k
		order = append(order, id)
	}

	type link struct{ from, to string }
	var links []link
	seen := make(map[link]bool)
	for _, e := range edges {
		from, to := e.From, e.To
		fromKind, toKind := kindSpecifier, kindFile
		if e.Kind == acquire.EdgeImport {
			fromKind, toKind = kindFile, kindSpecifier
			if !strings.HasPrefix(from, "/node_modules/") {
				fromKind = kindSource
			}
		}
		if opts.Packages {
			from, to = packageOf(from), packageOf(to)
		}
		add(from, fromKind)
		add(to, toKind)
		l := link{from, to}
		if from != to && !seen[l] {
			seen[l] = true
			links = append(links, l)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=12, style=filled, fillcolor=white];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	for _, id := range order {
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(id, kinds[id]), ", "))
	}
	buf.WriteString("\n")
	for _, l := range links {
		fmt.Fprintf(&buf, "  %q -> %q;\n", l.from, l.to)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(id string, k nodeKind) []string {
	label := id
	switch k {
	case kindSource:
		return []string{fmt.Sprintf("label=%q", label), "shape=note", "fillcolor=\"#fff4d6\""}
	case kindSpecifier:
		return []string{fmt.Sprintf("label=%q", label), "shape=ellipse", "fillcolor=\"#e8f0fe\""}
	default:
		label = strings.TrimPrefix(label, "/node_modules/")
		return []string{fmt.Sprintf("label=%q", label), "shape=box", "style=\"rounded,filled\""}
	}
}

// packageOf maps a virtual path to its package directory name; anything
// else is returned unchanged.
//
//	/node_modules/react/index.d.ts        -> react
//	/node_modules/@types/lodash/fp.d.ts   -> @types/lodash
func packageOf(id string) string {
	rest, ok := strings.CutPrefix(id, "/node_modules/")
	if !ok {
		return id
	}
	parts := strings.Split(rest, "/")
	if strings.HasPrefix(rest, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox drops Graphviz's fixed point-based width and height so
// the SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, errW := strconv.ParseFloat(string(match[3]), 64)
	h, errH := strconv.ParseFloat(string(match[4]), 64)
	if errW != nil || errH != nil {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %s %s">`,
		strconv.FormatFloat(w, 'f', -1, 64), strconv.FormatFloat(h, 'f', -1, 64))
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// Nodes returns the distinct node IDs of a trace in sorted order.
func Nodes(edges []acquire.Edge) []string {
	var ids []string
	for _, e := range edges {
		ids = append(ids, e.From, e.To)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
