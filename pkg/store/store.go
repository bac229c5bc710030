package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Run is the result of one acquisition.
type Run struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Files     map[string]string `json:"files"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewRun creates a Run with a fresh ID and the current time.
func NewRun(source string, files map[string]string) Run {
	return Run{
		ID:        uuid.NewString(),
		Source:    source,
		Files:     files,
		CreatedAt: time.Now().UTC(),
	}
}

// Paths returns the virtual paths of the run in sorted order.
func (r Run) Paths() []string {
	return slices.Sorted(maps.Keys(r.Files))
}

// ErrRunNotFound is returned by Load when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Sink stores runs.
type Sink interface {
	Save(ctx context.Context, run Run) error
	Close(ctx context.Context) error
}

// Loader is a Sink that can read runs back.
type Loader interface {
	Sink
	Load(ctx context.Context, id string) (*Run, error)
}

type manifest struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

// WriteManifest encodes the run without file contents: its identity and the
// sorted list of virtual paths.
func WriteManifest(run Run, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest{
		ID:        run.ID,
		Source:    run.Source,
		CreatedAt: run.CreatedAt,
		Files:     run.Paths(),
	}); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}
