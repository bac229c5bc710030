package acquire

import (
	"io"

	"github.com/charmbracelet/log"
)

const (
	DefaultMaxDepth    = 2  // Deepest level whose imports are still followed
	DefaultConcurrency = 16 // Default limit of in-flight lookups per fan-out

	// RootOnly is the MaxDepth that follows the imports of the source
	// itself but not those of any downloaded declaration. A zero MaxDepth
	// means DefaultMaxDepth.
	RootOnly = -1
)

// DefaultTerminal lists modules whose declarations are stored but never
// scanned for further imports.
var DefaultTerminal = []string{"bun-types"}

// Delegate receives acquisition events. Every field is optional.
//
// Callbacks are invoked one at a time while the session lock is held, so
// they must not call back into the [Session].
type Delegate struct {
	ReceivedFile func(text, path string)
	Progress     func(downloaded, total int)
	ErrorMessage func(msg string, err error)
	Started      func()
	Finished     func(files map[string]string)
}

func (d Delegate) receivedFile(text, path string) {
	if d.ReceivedFile != nil {
		d.ReceivedFile(text, path)
	}
}

func (d Delegate) progress(downloaded, total int) {
	if d.Progress != nil {
		d.Progress(downloaded, total)
	}
}

func (d Delegate) errorMessage(msg string, err error) {
	if d.ErrorMessage != nil {
		d.ErrorMessage(msg, err)
	}
}

func (d Delegate) started() {
	if d.Started != nil {
		d.Started()
	}
}

func (d Delegate) finished(files map[string]string) {
	if d.Finished != nil {
		d.Finished(files)
	}
}

// Config configures a [Session].
type Config struct {
	Name        string                // Project name, forwarded to the registry as its user agent
	Delegate    Delegate              // Event callbacks
	Parse       func(string) []string // Extracts module specifiers from source text (required)
	Registry    Registry              // Metadata and file lookups (required)
	Remap       func(string) string   // Rewrites raw specifiers before normalization (optional)
	Logger      *log.Logger           // Defaults to a discarding logger
	MaxDepth    int                   // Default: DefaultMaxDepth; RootOnly for depth 0
	Terminal    []string              // Default: DefaultTerminal
	Concurrency int                   // Default: DefaultConcurrency
}

// WithDefaults returns a copy of Config with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	cfg := c
	switch {
	case cfg.MaxDepth == 0:
		cfg.MaxDepth = DefaultMaxDepth
	case cfg.MaxDepth < 0:
		cfg.MaxDepth = RootOnly
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Terminal == nil {
		cfg.Terminal = DefaultTerminal
	}
	if cfg.Remap == nil {
		cfg.Remap = func(s string) string { return s }
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return cfg
}

// DepthLimit returns the deepest level whose imports are followed.
func (c Config) DepthLimit() int {
	switch {
	case c.MaxDepth == 0:
		return DefaultMaxDepth
	case c.MaxDepth < 0:
		return 0
	}
	return c.MaxDepth
}
