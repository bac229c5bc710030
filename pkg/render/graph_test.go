package render

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
)

func testTrace() []acquire.Edge {
	return []acquire.Edge{
		{From: "main.ts", To: "react", Kind: acquire.EdgeImport},
		{From: "react", To: "/node_modules/react/index.d.ts", Kind: acquire.EdgeProvides},
		{From: "react", To: "/node_modules/react/jsx.d.ts", Kind: acquire.EdgeProvides},
		{From: "/node_modules/react/index.d.ts", To: "csstype", Kind: acquire.EdgeImport},
		{From: "/node_modules/react/jsx.d.ts", To: "csstype", Kind: acquire.EdgeImport},
		{From: "csstype", To: "/node_modules/csstype/index.d.ts", Kind: acquire.EdgeProvides},
		{From: "main.ts", To: "lodash", Kind: acquire.EdgeImport},
		{From: "lodash", To: "/node_modules/@types/lodash/index.d.ts", Kind: acquire.EdgeProvides},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testTrace(), Options{})

	for _, want := range []string{
		"digraph G {",
		`"main.ts" [label="main.ts", shape=note`,
		`"react" [label="react", shape=ellipse`,
		`"/node_modules/react/index.d.ts" [label="react/index.d.ts", shape=box`,
		`"main.ts" -> "react";`,
		`"/node_modules/react/jsx.d.ts" -> "csstype";`,
		`"lodash" -> "/node_modules/@types/lodash/index.d.ts";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTPackages(t *testing.T) {
	dot := ToDOT(testTrace(), Options{Packages: true})

	for _, want := range []string{
		`"react" -> "csstype";`,
		`"lodash" -> "@types/lodash";`,
		`"main.ts" -> "react";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "index.d.ts") {
		t.Errorf("package view still lists files:\n%s", dot)
	}
	if n := strings.Count(dot, `"react" -> "csstype";`); n != 1 {
		t.Errorf("edge react -> csstype appears %d times", n)
	}
	if strings.Contains(dot, `"react" -> "react";`) {
		t.Error("self loop emitted")
	}
}

func TestPackageOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/node_modules/react/index.d.ts", "react"},
		{"/node_modules/@types/lodash/fp/map.d.ts", "@types/lodash"},
		{"/node_modules/@scope/pkg/package.json", "@scope/pkg"},
		{"main.ts", "main.ts"},
		{"react", "react"},
	}
	for _, tt := range tests {
		if got := packageOf(tt.in); got != tt.want {
			t.Errorf("packageOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNodes(t *testing.T) {
	got := Nodes(testTrace())
	if len(got) != 8 {
		t.Errorf("Nodes() = %v, want 8 distinct IDs", got)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if strings.Contains(out, `width="100pt"`) {
		t.Errorf("fixed width kept: %s", out)
	}
	if !strings.Contains(out, `viewBox="0 0 100 50"`) {
		t.Errorf("viewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if os.Getenv("DTSFETCH_TEST_GRAPHVIZ") == "" {
		t.Skip("DTSFETCH_TEST_GRAPHVIZ not set")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(testTrace(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG: %.80s", svg)
	}
}
