package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/dtsfetch/pkg/errors"
)

// ManifestName is the file DirSink writes next to the materialized tree.
const ManifestName = "dtsfetch-run.json"

// DirSink writes each virtual path below a base directory, so that
// "/node_modules/react/index.d.ts" lands in "<dir>/node_modules/react/index.d.ts".
type DirSink struct {
	mu  sync.Mutex
	dir string
}

// NewDirSink creates a DirSink rooted at dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the base directory.
func (s *DirSink) Dir() string { return s.dir }

// Save writes every file of run and then the manifest. Paths that fail
// validation abort the save before anything is written.
func (s *DirSink) Save(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := run.Paths()
	for _, p := range paths {
		if err := errors.ValidateVirtualPath(p); err != nil {
			return err
		}
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := s.path(p)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", p, err)
		}
		if err := os.WriteFile(dst, []byte(run.Files[p]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}

	f, err := os.Create(filepath.Join(s.dir, ManifestName))
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()
	return WriteManifest(run, f)
}

// Close is a no-op.
func (s *DirSink) Close(context.Context) error { return nil }

func (s *DirSink) path(virtual string) string {
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(virtual, "/")))
}
