package store

import (
	"context"
	"maps"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryRuns is the run limit used when NewMemorySink gets size <= 0.
const DefaultMemoryRuns = 256

// MemorySink keeps the most recent runs in process. It backs the serve mode
// when no MongoDB is configured.
type MemorySink struct {
	runs *lru.Cache[string, Run]
}

// NewMemorySink creates a sink holding at most size runs.
func NewMemorySink(size int) (*MemorySink, error) {
	if size <= 0 {
		size = DefaultMemoryRuns
	}
	runs, err := lru.New[string, Run](size)
	if err != nil {
		return nil, err
	}
	return &MemorySink{runs: runs}, nil
}

// Save stores a copy of run, evicting the oldest run when full.
func (s *MemorySink) Save(_ context.Context, run Run) error {
	run.Files = maps.Clone(run.Files)
	s.runs.Add(run.ID, run)
	return nil
}

// Load returns the run with the given ID.
func (s *MemorySink) Load(_ context.Context, id string) (*Run, error) {
	run, ok := s.runs.Get(id)
	if !ok {
		return nil, ErrRunNotFound
	}
	run.Files = maps.Clone(run.Files)
	return &run, nil
}

// Len returns the number of runs held.
func (s *MemorySink) Len() int { return s.runs.Len() }

// Close drops all runs.
func (s *MemorySink) Close(context.Context) error {
	s.runs.Purge()
	return nil
}

var (
	_ Loader = (*MemorySink)(nil)
	_ Loader = (*MongoSink)(nil)
)
