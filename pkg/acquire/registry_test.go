package acquire

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var errFake = errors.New("fake registry failure")

// fakeModule is one published module with a single version.
type fakeModule struct {
	version string
	tags    map[string]string
	files   map[string]string // path -> text
}

// fakeRegistry serves modules from memory and records every lookup.
type fakeRegistry struct {
	mu       sync.Mutex
	modules  map[string]*fakeModule
	failText map[string]bool // "module path"
	failVers bool

	resolveCalls map[string]int
	treeCalls    map[string]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		modules:      make(map[string]*fakeModule),
		failText:     make(map[string]bool),
		resolveCalls: make(map[string]int),
		treeCalls:    make(map[string]int),
	}
}

// add registers module at version 1.0.0 with the given files. A
// package.json is added unless one of the paths names it.
func (r *fakeRegistry) add(module string, files map[string]string) *fakeModule {
	m := &fakeModule{
		version: "1.0.0",
		tags:    map[string]string{"latest": "1.0.0"},
		files:   map[string]string{"/package.json": fmt.Sprintf(`{"name":%q}`, module)},
	}
	for path, text := range files {
		m.files[path] = text
	}
	r.modules[module] = m
	return m
}

func (r *fakeRegistry) ResolveTag(_ context.Context, module, tag string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveCalls[module]++
	m, ok := r.modules[module]
	if !ok {
		return "", fmt.Errorf("%w: no module %s", errFake, module)
	}
	return m.tags[tag], nil
}

func (r *fakeRegistry) Versions(_ context.Context, module string) (*Versions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[module]
	if !ok || r.failVers {
		return nil, errFake
	}
	return &Versions{Tags: m.tags, Versions: []string{m.version}}, nil
}

func (r *fakeRegistry) FileTree(_ context.Context, module, version, raw string) (*FileTree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treeCalls[module]++
	m, ok := r.modules[module]
	if !ok || m.version != version {
		return nil, errFake
	}
	tree := &FileTree{Module: module, Version: version, Raw: raw}
	for path := range m.files {
		tree.Files = append(tree.Files, File{Name: path})
	}
	slices.SortFunc(tree.Files, func(a, b File) int { return strings.Compare(a.Name, b.Name) })
	return tree, nil
}

func (r *fakeRegistry) FileText(_ context.Context, module, version, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failText[module+" "+path] {
		return "", errFake
	}
	m, ok := r.modules[module]
	if !ok || m.version != version {
		return "", errFake
	}
	text, ok := m.files[path]
	if !ok {
		return "", errFake
	}
	return text, nil
}

func (r *fakeRegistry) trees(module string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.treeCalls[module]
}

// fields is the parser used by the session tests: every whitespace
// separated word of a file is a specifier.
func fields(source string) []string { return strings.Fields(source) }
