package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/render"
	"github.com/matzehuels/dtsfetch/pkg/store"
)

// fetchOptions holds the flags of the fetch command.
type fetchOptions struct {
	runOptions
	output        string
	mongo         bool
	graph         string
	graphPackages bool
	tui           bool
}

// source is one input file. Path is "-" for stdin.
type source struct {
	path string
	text string
}

// fetchResult is what one fetch produced, for the summary and the sinks.
type fetchResult struct {
	run    store.Run
	errors []string
	trace  []acquire.Edge
}

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch <file>...",
		Short: "Download declarations for the imports of source files",
		Long: `Download the TypeScript declarations of every module imported by the given files.

Imports of downloaded declarations are followed up to --max-depth levels. Files
are written under the output directory as node_modules/<package>/..., next to a
dtsfetch-run.json manifest. Use "-" to read a source from stdin.`,
		Example: `  dtsfetch fetch src/index.ts
  dtsfetch fetch -o typings --graph deps.svg src/*.ts
  echo 'import "react"' | dtsfetch fetch -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.mongo, "mongo", false, "also store the run in MongoDB (mongo.uri)")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "write the acquisition graph (.svg or .dot)")
	cmd.Flags().BoolVar(&opts.graphPackages, "graph-packages", false, "collapse graph files into packages")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live progress view")
	addRunFlags(cmd, &opts.runOptions)

	return cmd
}

// addRunFlags registers the flags shared by commands that acquire.
func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", -1, "deepest level whose imports are followed, 0 for the sources' own imports (-1 uses the config)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "parallel registry lookups (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached responses")
}

func (c *CLI) runFetch(ctx context.Context, paths []string, opts fetchOptions) error {
	logger := loggerFromContext(ctx)

	sources, err := readSources(paths, os.Stdin)
	if err != nil {
		return err
	}
	if opts.mongo && c.config.Mongo.URI == "" {
		return fmt.Errorf("--mongo needs mongo.uri in %s", configFile)
	}

	cch, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cch.Close()
	reg := c.newRegistry(cch, opts.refresh)

	prog := newProgress(logger)
	var res *fetchResult
	if opts.tui {
		res, err = c.acquireWithTUI(ctx, reg, sources, opts.runOptions)
	} else {
		res, err = c.acquireWithSpinner(ctx, reg, sources, opts.runOptions)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Acquired %d files", len(res.run.Files)))

	if err := c.saveRun(ctx, res.run, opts); err != nil {
		return err
	}
	if opts.graph != "" {
		if err := writeGraph(ctx, opts.graph, res.trace, opts.graphPackages); err != nil {
			return err
		}
	}

	printFetchSummary(res, opts)
	return nil
}

// acquireWithSpinner runs the session while a spinner reports progress.
func (c *CLI) acquireWithSpinner(ctx context.Context, reg acquire.Registry, sources []source, opts runOptions) (*fetchResult, error) {
	logger := loggerFromContext(ctx)
	spinner := newSpinnerWithContext(ctx, "Resolving imports...")
	spinner.Start()

	res := &fetchResult{}
	d := acquire.Delegate{
		Progress: func(downloaded, total int) {
			spinner.SetMessage(fmt.Sprintf("Downloading declarations %d/%d", downloaded, total))
		},
		ErrorMessage: func(msg string, err error) {
			logger.Debug("acquisition error", "err", err)
			res.errors = append(res.errors, msg)
		},
	}

	sess := acquire.New(c.newSessionConfig(reg, d, opts))
	if err := stopSpinner(spinner, runSources(ctx, sess, sources)); err != nil {
		return nil, err
	}

	res.run = store.NewRun(joinPaths(sources), sess.Files())
	res.trace = sess.Trace()
	return res, nil
}

// stopSpinner ends the spinner for a finished run. Failures are shown on
// the spinner line unless the run was interrupted.
func stopSpinner(s *Spinner, err error) error {
	switch {
	case err == nil, s.Cancelled():
		s.Stop()
	default:
		s.StopWithError(dterrors.UserMessage(err))
	}
	return err
}

// runSources feeds every source through one session, so later files reuse
// what earlier ones resolved.
func runSources(ctx context.Context, sess *acquire.Session, sources []source) error {
	for _, src := range sources {
		if err := sess.RunFile(ctx, src.path, src.text); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) saveRun(ctx context.Context, run store.Run, opts fetchOptions) error {
	logger := loggerFromContext(ctx)

	sink, err := store.NewDirSink(opts.output)
	if err != nil {
		return err
	}
	if err := sink.Save(ctx, run); err != nil {
		return fmt.Errorf("write files: %w", err)
	}
	logger.Debug("files written", "dir", sink.Dir(), "count", len(run.Files))

	if !opts.mongo {
		return nil
	}
	mongo, err := store.NewMongoSink(ctx, store.MongoConfig{
		URI:      c.config.Mongo.URI,
		Database: c.config.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer mongo.Close(context.WithoutCancel(ctx))
	if err := mongo.Save(ctx, run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	logger.Debug("run stored", "id", run.ID)
	return nil
}

// writeGraph renders the trace as DOT or, for .svg paths, as SVG.
func writeGraph(ctx context.Context, path string, trace []acquire.Edge, packages bool) error {
	dot := render.ToDOT(trace, render.Options{Packages: packages})
	data := []byte(dot)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".dot", ".gv":
	case ".svg":
		svg, err := render.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		data = svg
	default:
		return fmt.Errorf("unsupported graph format %q (want .svg or .dot)", ext)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// readSources reads every path, "-" meaning stdin.
func readSources(paths []string, stdin io.Reader) ([]source, error) {
	sources := make([]source, 0, len(paths))
	for _, p := range paths {
		var (
			data []byte
			err  error
		)
		if p == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sources = append(sources, source{path: p, text: string(data)})
	}
	return sources, nil
}

func joinPaths(sources []source) string {
	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = s.path
	}
	return strings.Join(paths, ", ")
}

func printFetchSummary(res *fetchResult, opts fetchOptions) {
	if len(res.run.Files) == 0 && len(res.errors) == 0 {
		printInfo("No imports found")
		return
	}

	size := 0
	for _, text := range res.run.Files {
		size += len(text)
	}
	printSuccess("Acquired declarations")
	printStats(len(res.run.Files), packageCount(res.run.Files), size, len(res.errors))
	printFile(filepath.Join(opts.output, "node_modules"))
	if opts.graph != "" {
		printFile(opts.graph)
	}
	if opts.mongo {
		printKeyValue("Run", res.run.ID)
	}
	for _, msg := range res.errors {
		printWarning("%s", msg)
	}
}

// packageCount counts the distinct packages among virtual paths.
func packageCount(files map[string]string) int {
	seen := make(map[string]struct{})
	for p := range files {
		rest, ok := strings.CutPrefix(p, "/node_modules/")
		if !ok {
			continue
		}
		parts := strings.SplitN(rest, "/", 3)
		name := parts[0]
		if strings.HasPrefix(name, "@") && len(parts) > 1 {
			name += "/" + parts[1]
		}
		seen[name] = struct{}{}
	}
	return len(seen)
}
