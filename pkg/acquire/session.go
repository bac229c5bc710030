package acquire

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/observability"
)

const packageJSON = "/package.json"

type moduleState int

const stateLoading moduleState = iota + 1

// Session owns the state of one acquisition: the modules already claimed,
// the virtual file map and the progress counters. The seen record and the
// file map persist across runs; the counters are reset by every run.
type Session struct {
	cfg Config
	log *log.Logger

	run sync.Mutex // serializes Run calls

	mu         sync.Mutex
	seen       map[string]moduleState
	files      map[string]string
	edges      []Edge
	toDownload int
	downloaded int
	succeeded  int
}

// New creates a Session from cfg.
func New(cfg Config) *Session {
	cfg = cfg.WithDefaults()
	return &Session{
		cfg:   cfg,
		log:   cfg.Logger,
		seen:  make(map[string]moduleState),
		files: make(map[string]string),
	}
}

// Setup returns the run function of a fresh Session, for callers that only
// need to feed it source texts.
func Setup(cfg Config) func(ctx context.Context, source string) error {
	return New(cfg).Run
}

// Run acquires the declarations needed by source. It returns once every
// lookup has settled; per-module failures are reported through the logger
// and the delegate, never as an error. Run fails only with ctx.Err().
func (s *Session) Run(ctx context.Context, source string) error {
	return s.RunFile(ctx, RootOrigin, source)
}

// RunFile is [Session.Run] with the name of the source file recorded as the
// origin of its imports in the trace.
func (s *Session) RunFile(ctx context.Context, origin, source string) error {
	if s.cfg.Registry == nil || s.cfg.Parse == nil {
		return dterrors.New(dterrors.ErrCodeInvalidConfig, "acquire: registry and parser are required")
	}

	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	s.toDownload, s.downloaded, s.succeeded = 0, 0, 0
	s.mu.Unlock()

	start := time.Now()
	observability.Acquire().OnRunStart(ctx, s.cfg.Name)

	s.resolveDeps(ctx, origin, source, 0)

	s.mu.Lock()
	downloaded := s.downloaded
	if downloaded > 0 {
		s.cfg.Delegate.finished(maps.Clone(s.files))
	}
	s.mu.Unlock()

	observability.Acquire().OnRunComplete(ctx, s.cfg.Name, downloaded, time.Since(start))
	s.log.Debug("acquisition finished", "origin", origin, "downloaded", downloaded, "elapsed", time.Since(start))
	return ctx.Err()
}

// Files returns a copy of the virtual file map.
func (s *Session) Files() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.files)
}

// Trace returns the import and provides edges recorded so far.
func (s *Session) Trace() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.edges)
}

// resolved is a tree together with the specifier that led to it.
type resolved struct {
	tree  *FileTree
	owner string
}

// pending is a download together with the specifier it was acquired for.
type pending struct {
	Download
	owner string
}

func (s *Session) resolveDeps(ctx context.Context, origin, source string, depth int) {
	if depth > s.cfg.DepthLimit() {
		return
	}

	refs := s.claim(origin, source)
	if len(refs) == 0 {
		return
	}

	trees := s.resolveTrees(ctx, refs)

	var own, missing []resolved
	for _, r := range trees {
		if r.tree.HasDeclarations() {
			own = append(own, r)
		} else {
			missing = append(missing, r)
		}
	}
	typed := s.resolveTypesTrees(ctx, missing)

	var downloads []pending
	for _, r := range own {
		for _, d := range CollectDeclarations(r.tree, ModulePrefix(r.tree.Module)) {
			downloads = append(downloads, pending{d, r.owner})
		}
	}
	for _, r := range typed {
		for _, d := range CollectDeclarations(r.tree, TypesPrefix(r.tree.Module)) {
			downloads = append(downloads, pending{d, r.owner})
		}
	}

	s.mu.Lock()
	s.toDownload += len(downloads)
	if depth == 0 && len(downloads) > 0 {
		s.cfg.Delegate.started()
	}
	s.mu.Unlock()

	s.fetchPackageJSON(ctx, trees, typed)
	s.download(ctx, downloads, depth)
}

// claim parses source and marks every unseen specifier as loading. It
// returns the references that this call is now responsible for.
func (s *Session) claim(origin, source string) []Reference {
	specs := s.cfg.Parse(source)

	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []Reference
	for _, spec := range specs {
		ref := ParseReference(spec, s.cfg.Remap)
		s.edges = append(s.edges, Edge{From: origin, To: ref.Raw, Kind: EdgeImport})
		if _, ok := s.seen[ref.Raw]; ok {
			continue
		}
		s.seen[ref.Raw] = stateLoading
		refs = append(refs, ref)
	}
	return refs
}

func (s *Session) group() *errgroup.Group {
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	return g
}

// resolveTrees resolves every reference concurrently and returns the
// successful trees in reference order.
func (s *Session) resolveTrees(ctx context.Context, refs []Reference) []resolved {
	results := make([]resolved, len(refs))
	g := s.group()
	for i, ref := range refs {
		g.Go(func() error {
			tree, err := ResolveTree(ctx, s.cfg.Registry, ref.Module, ref.Version, ref.Raw)
			observability.Acquire().OnTreeResolved(ctx, ref.Module, false, err)
			if err != nil {
				s.reportError(ref.Module, err)
				return nil
			}
			results[i] = resolved{tree: tree, owner: ref.Raw}
			return nil
		})
	}
	_ = g.Wait()
	return slices.DeleteFunc(results, func(r resolved) bool { return r.tree == nil })
}

// resolveTypesTrees looks up the "@types/" companion of every tree that
// ships no declarations of its own.
func (s *Session) resolveTypesTrees(ctx context.Context, trees []resolved) []resolved {
	results := make([]resolved, len(trees))
	g := s.group()
	for i, r := range trees {
		g.Go(func() error {
			module := TypesModule(r.tree.Module)
			tree, err := ResolveTree(ctx, s.cfg.Registry, module, defaultTag, TypesModule(r.tree.Raw))
			observability.Acquire().OnTreeResolved(ctx, module, true, err)
			if err != nil {
				s.reportError(module, err)
				return nil
			}
			results[i] = resolved{tree: tree, owner: r.owner}
			return nil
		})
	}
	_ = g.Wait()
	return slices.DeleteFunc(results, func(r resolved) bool { return r.tree == nil })
}

func (s *Session) reportError(module string, err error) {
	msg := dterrors.UserMessage(err)
	s.log.Error(msg, "module", module, "err", err)

	s.mu.Lock()
	s.cfg.Delegate.errorMessage(msg, err)
	s.mu.Unlock()
}

// fetchPackageJSON stores the package.json of every resolved tree. Failures
// are logged only.
func (s *Session) fetchPackageJSON(ctx context.Context, own, typed []resolved) {
	type target struct {
		tree   *FileTree
		prefix string
	}
	var targets []target
	for _, r := range own {
		targets = append(targets, target{r.tree, ModulePrefix(r.tree.Module)})
	}
	for _, r := range typed {
		targets = append(targets, target{r.tree, TypesPrefix(r.tree.Module)})
	}

	g := s.group()
	for _, tg := range targets {
		g.Go(func() error {
			text, err := s.cfg.Registry.FileText(ctx, tg.tree.Module, tg.tree.Version, packageJSON)
			if err != nil {
				s.log.Warn("could not fetch package.json", "module", tg.tree.Module, "version", tg.tree.Version, "err", err)
				return nil
			}
			path := tg.prefix + packageJSON

			s.mu.Lock()
			s.files[path] = text
			s.cfg.Delegate.receivedFile(text, path)
			s.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Session) download(ctx context.Context, downloads []pending, depth int) {
	g := s.group()
	for _, d := range downloads {
		g.Go(func() error {
			text, err := s.cfg.Registry.FileText(ctx, d.Module, d.Version, d.Path)
			observability.Acquire().OnFileDownloaded(ctx, d.Module, len(text), err)

			s.mu.Lock()
			s.downloaded++
			if err != nil {
				s.mu.Unlock()
				s.log.Error("could not download declaration file", "module", d.Module, "path", d.Path, "err", err)
				return nil
			}
			s.succeeded++
			s.files[d.VirtualPath] = text
			s.edges = append(s.edges, Edge{From: d.owner, To: d.VirtualPath, Kind: EdgeProvides})
			s.cfg.Delegate.receivedFile(text, d.VirtualPath)
			if s.succeeded%5 == 0 {
				s.cfg.Delegate.progress(s.downloaded, s.toDownload)
			}
			s.mu.Unlock()

			if !slices.Contains(s.cfg.Terminal, d.Module) {
				s.resolveDeps(ctx, d.VirtualPath, text, depth+1)
			}
			return nil
		})
	}
	_ = g.Wait()
}
