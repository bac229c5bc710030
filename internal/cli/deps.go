package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/imports"
)

// depRow is one import of a file and, when resolved, where its
// declarations would come from.
type depRow struct {
	ref      acquire.Reference
	builtin  bool
	version  string
	provider string
	err      string
}

// depsCommand creates the deps command.
func (c *CLI) depsCommand() *cobra.Command {
	var (
		resolve bool
		opts    runOptions
	)

	cmd := &cobra.Command{
		Use:   "deps <file>",
		Short: "List the imports of a file and how they normalize",
		Long: `List the module specifiers found in a source file together with the module
name and version tag they normalize to. With --resolve every module is looked up
on the registry to show the concrete version and whether it ships declarations
or needs its @types package.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := readSources(args, os.Stdin)
			if err != nil {
				return err
			}
			rows := parseDeps(sources[0].text)
			if resolve {
				cch, err := c.newCache(cmd.Context(), opts.noCache)
				if err != nil {
					return fmt.Errorf("open cache: %w", err)
				}
				defer cch.Close()
				concurrency := c.config.Concurrency
				if opts.concurrency > 0 {
					concurrency = opts.concurrency
				}
				if err := resolveDeps(cmd.Context(), c.newRegistry(cch, opts.refresh), rows, concurrency); err != nil {
					return err
				}
			}
			printDeps(cmd.OutOrStdout(), rows, resolve)
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve versions on the registry")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "parallel registry lookups (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached responses")

	return cmd
}

func parseDeps(src string) []depRow {
	specs := imports.Parse(src)
	rows := make([]depRow, len(specs))
	for i, spec := range specs {
		rows[i] = depRow{
			ref:     acquire.ParseReference(spec, imports.RemapModuleName),
			builtin: imports.IsNodeBuiltin(spec),
		}
	}
	return rows
}

// resolveDeps fills in version and provider for every row. Lookup failures
// are recorded on the row rather than returned.
func resolveDeps(ctx context.Context, reg acquire.Registry, rows []depRow, concurrency int) error {
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range rows {
		row := &rows[i]
		g.Go(func() error {
			tree, err := acquire.ResolveTree(ctx, reg, row.ref.Module, row.ref.Version, row.ref.Raw)
			if err != nil {
				row.err = errors.UserMessage(err)
				return nil
			}
			row.version = tree.Version
			if tree.HasDeclarations() {
				row.provider = "bundled"
				return nil
			}
			types := acquire.TypesModule(row.ref.Module)
			if _, err := acquire.ResolveTree(ctx, reg, types, "latest", types); err != nil {
				row.provider = "none"
				return nil
			}
			row.provider = types
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

func printDeps(w io.Writer, rows []depRow, resolved bool) {
	if len(rows) == 0 {
		fmt.Fprintln(w, StyleDim.Render("No imports found"))
		return
	}

	headers := []string{"Specifier", "Module", "Tag"}
	if resolved {
		headers = append(headers, "Version", "Declarations")
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		module := r.ref.Module
		if r.builtin {
			module += " (builtin)"
		}
		line := []string{r.ref.Raw, module, r.ref.Version}
		if resolved {
			if r.err != "" {
				line = append(line, "-", r.err)
			} else {
				line = append(line, r.version, r.provider)
			}
		}
		data[i] = line
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if rows[row].err != "" {
				return base.Foreground(colorRed)
			}
			if col == 0 {
				return base.Foreground(colorWhite)
			}
			return base.Foreground(colorGray)
		})
	fmt.Fprintln(w, t.Render())
}
