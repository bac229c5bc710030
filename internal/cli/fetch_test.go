package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
)

// newRegistryServer serves the jsDelivr endpoints for react, which bundles
// its declarations, and lodash, which needs @types/lodash.
func newRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handle := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	handle("/v1/package/resolve/npm/react@latest", `{"version":"18.2.0"}`)
	handle("/v1/package/resolve/npm/lodash@latest", `{"version":"4.17.21"}`)
	handle("/v1/package/resolve/npm/@types/lodash@latest", `{"version":"4.17.0"}`)
	handle("/v1/package/npm/react@18.2.0/flat", `{"files":[{"name":"/index.js"},{"name":"/index.d.ts"},{"name":"/package.json"}]}`)
	handle("/v1/package/npm/lodash@4.17.21/flat", `{"files":[{"name":"/lodash.js"},{"name":"/package.json"}]}`)
	handle("/v1/package/npm/@types/lodash@4.17.0/flat", `{"files":[{"name":"/index.d.ts"},{"name":"/package.json"}]}`)
	handle("/npm/react@18.2.0/index.d.ts", "export declare const version: string;\n")
	handle("/npm/react@18.2.0/package.json", `{"name":"react","types":"index.d.ts"}`)
	handle("/npm/lodash@4.17.21/package.json", `{"name":"lodash"}`)
	handle("/npm/@types/lodash@4.17.0/index.d.ts", "declare const _: any;\nexport = _;\n")
	handle("/npm/@types/lodash@4.17.0/package.json", `{"name":"@types/lodash"}`)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeTestConfig writes a config pointing both registry URLs at srv with
// caching disabled.
func writeTestConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFile)
	cfg := fmt.Sprintf(`
[cache]
backend = "none"

[registry]
data_url = %q
cdn_url = %q
`, srv.URL, srv.URL)
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestFetchCommand(t *testing.T) {
	srv := newRegistryServer(t)
	cfg := writeTestConfig(t, srv)

	dir := t.TempDir()
	src := filepath.Join(dir, "app.ts")
	if err := os.WriteFile(src, []byte("import React from \"react\"\nimport _ from \"lodash\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "typings")
	graph := filepath.Join(dir, "deps.dot")

	if err := execute(t, "--config", cfg, "fetch", "-o", out, "--graph", graph, src); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{
		"node_modules/react/index.d.ts",
		"node_modules/react/package.json",
		"node_modules/lodash/package.json",
		"node_modules/@types/lodash/index.d.ts",
		"node_modules/@types/lodash/package.json",
	}
	for _, p := range want {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(p))); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(out, "dtsfetch-run.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest struct {
		Source string   `json:"source"`
		Files  []string `json:"files"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.Source != src || len(manifest.Files) != len(want) {
		t.Errorf("manifest = %+v", manifest)
	}

	dot, err := os.ReadFile(graph)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	if !strings.HasPrefix(string(dot), "digraph") || !strings.Contains(string(dot), `"lodash"`) {
		t.Errorf("graph:\n%s", dot)
	}
}

func TestFetchCommandMongoWithoutURI(t *testing.T) {
	srv := newRegistryServer(t)
	cfg := writeTestConfig(t, srv)
	src := filepath.Join(t.TempDir(), "app.ts")
	if err := os.WriteFile(src, []byte(`import "react"`), 0o644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "--config", cfg, "fetch", "--mongo", "-o", t.TempDir(), src)
	if err == nil || !strings.Contains(err.Error(), "mongo.uri") {
		t.Errorf("err = %v, want a mongo.uri error", err)
	}
}

func TestFetchCommandMissingConfig(t *testing.T) {
	err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "fetch", "x.ts")
	if err == nil {
		t.Error("explicit missing config should fail")
	}
}

func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	if err := os.WriteFile(path, []byte(`import "a"`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readSources([]string{path, "-"}, strings.NewReader(`import "b"`))
	if err != nil {
		t.Fatalf("readSources: %v", err)
	}
	if len(got) != 2 || got[0].text != `import "a"` || got[1].path != "-" || got[1].text != `import "b"` {
		t.Errorf("readSources = %+v", got)
	}
	if joinPaths(got) != path+", -" {
		t.Errorf("joinPaths = %q", joinPaths(got))
	}

	if _, err := readSources([]string{filepath.Join(dir, "missing.ts")}, nil); err == nil {
		t.Error("missing file should fail")
	}
}

func TestPackageCount(t *testing.T) {
	files := map[string]string{
		"/node_modules/react/index.d.ts":           "",
		"/node_modules/react/jsx-runtime.d.ts":     "",
		"/node_modules/@types/lodash/index.d.ts":   "",
		"/node_modules/@types/lodash/fp.d.ts":      "",
		"/node_modules/@types/node/fs.d.ts":        "",
		"/node_modules/@scope/pkg/dist/index.d.ts": "",
		"/elsewhere/ignored.d.ts":                  "",
	}
	if got := packageCount(files); got != 4 {
		t.Errorf("packageCount = %d, want 4", got)
	}
}

func TestWriteGraphFormats(t *testing.T) {
	trace := []acquire.Edge{{From: acquire.RootOrigin, To: "react", Kind: acquire.EdgeImport}}
	dir := t.TempDir()

	if err := writeGraph(context.Background(), filepath.Join(dir, "g.dot"), trace, false); err != nil {
		t.Errorf("dot: %v", err)
	}
	if err := writeGraph(context.Background(), filepath.Join(dir, "g.png"), trace, false); err == nil {
		t.Error("png should be rejected")
	}
}
