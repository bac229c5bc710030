package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/dtsfetch/pkg/cache"
)

type fileTree struct {
	Default string   `json:"default"`
	Files   []string `json:"files"`
}

func newCDN(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/package/npm/react@18.2.0/flat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"default":"/index.js","files":["/index.d.ts","/jsx-runtime.d.ts"]}`))
	})
	mux.HandleFunc("/npm/react@18.2.0/index.d.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("export declare const version: string;\n"))
	})
	mux.HandleFunc("/echo-agent", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"` + r.Header.Get("User-Agent") + `"`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGet(t *testing.T) {
	srv := newCDN(t)
	client := NewClient(nil, "jsdelivr:", time.Hour, nil)

	var tree fileTree
	if err := client.Get(context.Background(), srv.URL+"/v1/package/npm/react@18.2.0/flat", &tree); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tree.Default != "/index.js" || len(tree.Files) != 2 {
		t.Errorf("tree = %+v", tree)
	}

	text, err := client.GetText(context.Background(), srv.URL+"/npm/react@18.2.0/index.d.ts")
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if !strings.HasPrefix(text, "export declare") {
		t.Errorf("GetText = %q", text)
	}

	if _, err := client.GetText(context.Background(), srv.URL+"/npm/react@18.2.0/missing.d.ts"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
}

func TestClientHeaders(t *testing.T) {
	srv := newCDN(t)
	client := NewClient(nil, "", 0, map[string]string{"User-Agent": UserAgent("my-editor")})

	var agent string
	if err := client.Get(context.Background(), srv.URL+"/echo-agent", &agent); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if agent != "my-editor (dtsfetch)" {
		t.Errorf("default User-Agent = %q", agent)
	}

	err := client.GetWithHeaders(context.Background(), srv.URL+"/echo-agent", map[string]string{"User-Agent": "override"}, &agent)
	if err != nil {
		t.Fatalf("GetWithHeaders: %v", err)
	}
	if agent != "override" {
		t.Errorf("request User-Agent = %q, want override", agent)
	}
}

func TestClientCached(t *testing.T) {
	backend, err := cache.NewMemoryCache(0)
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(backend, "jsdelivr:", time.Hour, nil)
	ctx := context.Background()

	fetches := 0
	lookup := func(refresh bool) fileTree {
		t.Helper()
		var tree fileTree
		err := client.Cached(ctx, "tree:react@18.2.0", refresh, &tree, func() error {
			fetches++
			tree = fileTree{Default: "/index.js", Files: []string{"/index.d.ts"}}
			return nil
		})
		if err != nil {
			t.Fatalf("Cached: %v", err)
		}
		return tree
	}

	lookup(false)
	if got := lookup(false); fetches != 1 || got.Default != "/index.js" {
		t.Errorf("cached lookup fetched %d times, tree = %+v", fetches, got)
	}
	lookup(true)
	if fetches != 2 {
		t.Errorf("refresh should bypass the cache, fetches = %d", fetches)
	}
	if _, ok, _ := backend.Get(ctx, "jsdelivr:tree:react@18.2.0"); !ok {
		t.Error("entry not stored under prefixed key")
	}
}

func TestClientCachedErrors(t *testing.T) {
	backend, _ := cache.NewMemoryCache(0)
	client := NewClient(backend, "npm:", time.Hour, nil)
	ctx := context.Background()

	var doc map[string]string
	err := client.Cached(ctx, "packument:raect", false, &doc, func() error { return ErrNotFound })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok, _ := backend.Get(ctx, "npm:packument:raect"); ok {
		t.Error("failed fetch should not be cached")
	}

	calls := 0
	nocache := NewClient(nil, "npm:", time.Hour, nil)
	for range 2 {
		_ = nocache.Cached(ctx, "packument:react", false, &doc, func() error { calls++; return nil })
	}
	if calls != 2 {
		t.Errorf("nil cache fetched %d times, want 2", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		want      error
		retryable bool
	}{
		{http.StatusOK, nil, false},
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusForbidden, ErrNetwork, false},
		{http.StatusTooManyRequests, ErrNetwork, true},
		{http.StatusBadGateway, ErrNetwork, true},
	}
	for _, tt := range tests {
		err := checkStatus(tt.code)
		if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
			t.Errorf("checkStatus(%d) = %v, want %v", tt.code, err, tt.want)
		}
		if cache.IsRetryable(err) != tt.retryable {
			t.Errorf("checkStatus(%d) retryable = %v", tt.code, !tt.retryable)
		}
	}
}

func TestKeyType(t *testing.T) {
	for key, want := range map[string]string{
		"tree:react@18.2.0": "tree",
		"tags:react":        "tags",
		"plain":             "plain",
		":odd":              ":odd",
	} {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(""); got != "dtsfetch" {
		t.Errorf("UserAgent(\"\") = %q", got)
	}
	if got := UserAgent("my-editor"); got != "my-editor (dtsfetch)" {
		t.Errorf("UserAgent(my-editor) = %q", got)
	}
}
