package acquire

import (
	"context"
	"slices"
	"strings"
)

// DeclarationSuffix marks a file as a TypeScript declaration file.
const DeclarationSuffix = ".d.ts"

// RootOrigin is the trace origin used for the source text passed to [Session.Run].
const RootOrigin = "<root>"

// Reference is a normalized module specifier.
type Reference struct {
	Raw     string // Specifier after remapping; the key of the seen record
	Module  string // Registry name, scope included ("@foo/bar")
	Version string // Version or dist-tag, "latest" when absent
}

// File is one entry of a module's flat file listing.
type File struct {
	Name string `json:"name"` // Path relative to the package root, with a leading "/"
}

// FileTree is the flat file listing of one published module version.
type FileTree struct {
	Module  string `json:"module"`
	Version string `json:"version"`
	Raw     string `json:"raw"`
	Files   []File `json:"files"`
}

// HasDeclarations reports whether the tree ships at least one declaration file.
func (t *FileTree) HasDeclarations() bool {
	return slices.ContainsFunc(t.Files, func(f File) bool {
		return strings.HasSuffix(f.Name, DeclarationSuffix)
	})
}

// Versions lists the dist-tags and published versions of a module.
type Versions struct {
	Tags     map[string]string `json:"tags"`
	Versions []string          `json:"versions"`
}

// TagNames returns the dist-tag names in sorted order.
func (v *Versions) TagNames() []string {
	names := make([]string, 0, len(v.Tags))
	for name := range v.Tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Download describes one declaration file to fetch.
type Download struct {
	Module      string
	Version     string
	Path        string // Path inside the package, as listed in its tree
	VirtualPath string // Absolute path in the virtual file map
}

// Edge is one step of the acquisition trace.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// EdgeKind distinguishes the two kinds of trace edges.
type EdgeKind string

const (
	// EdgeImport links a file (or [RootOrigin]) to a specifier it imports.
	EdgeImport EdgeKind = "import"
	// EdgeProvides links a specifier to a declaration file acquired for it.
	EdgeProvides EdgeKind = "provides"
)

// Registry looks up module metadata and file contents. Implementations must
// be safe for concurrent use.
type Registry interface {
	// ResolveTag maps a dist-tag or range to a concrete version. An empty
	// version with a nil error means the registry knows no such tag.
	ResolveTag(ctx context.Context, module, tag string) (string, error)
	// Versions lists the module's dist-tags and versions.
	Versions(ctx context.Context, module string) (*Versions, error)
	// FileTree returns the flat file listing of module@version.
	FileTree(ctx context.Context, module, version, raw string) (*FileTree, error)
	// FileText returns the contents of one file of module@version.
	FileText(ctx context.Context, module, version, path string) (string, error)
}
