package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dtsfetch/internal/metrics"
	"github.com/matzehuels/dtsfetch/internal/server"
	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/observability"
	"github.com/matzehuels/dtsfetch/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
		opts      runOptions
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the acquisition HTTP API",
		Long: `Run an HTTP server that acquires declarations for posted sources.

Runs are kept in MongoDB when mongo.uri is configured and in memory otherwise.
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, !noMetrics, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable /metrics")
	addRunFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, withMetrics bool, opts runOptions) error {
	logger := loggerFromContext(ctx)

	var m *metrics.Metrics
	if withMetrics {
		m = metrics.New()
		observability.SetAcquireHooks(m)
		observability.SetCacheHooks(m)
		observability.SetHTTPHooks(m)
		defer observability.Reset()
	}

	cch, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cch.Close()

	runs, err := c.newRunStore(ctx)
	if err != nil {
		return err
	}
	defer runs.Close(context.WithoutCancel(ctx))

	srv := server.New(server.Options{
		Addr:    addr,
		Logger:  logger,
		Metrics: m,
		Runs:    runs,
		Acquire: c.newSessionConfig(c.newRegistry(cch, opts.refresh), acquire.Delegate{}, opts),
	})
	return srv.ListenAndServe(ctx)
}

// newRunStore picks MongoDB when configured and an in-memory store otherwise.
func (c *CLI) newRunStore(ctx context.Context) (store.Loader, error) {
	if c.config.Mongo.URI == "" {
		mem, err := store.NewMemorySink(0)
		if err != nil {
			return nil, err
		}
		return mem, nil
	}
	mongo, err := store.NewMongoSink(ctx, store.MongoConfig{
		URI:      c.config.Mongo.URI,
		Database: c.config.Mongo.Database,
	})
	if err != nil {
		return nil, err
	}
	return mongo, nil
}
