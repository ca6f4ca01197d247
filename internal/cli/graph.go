package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/orgdeps/pkg/graph"
	"github.com/matzehuels/orgdeps/pkg/render/nodelink"
	"github.com/matzehuels/orgdeps/pkg/storage"
)

// Output formats of the graph command.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var graphFormats = []string{formatJSON, formatDOT, formatSVG}

// graphOptions holds the flags of the graph command.
type graphOptions struct {
	display  string
	format   string
	output   string
	detailed bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Materialize a crawl artifact as a node-link graph",
		Long: `Materialize a crawl artifact as a node-link graph.

With --display internal (the default) only repositories of the organization
are kept; --display all includes external packages. The graph is written as
JSON, Graphviz DOT or SVG.`,
		Example: `  orgdeps graph --org graasp --in data/deps.json
  orgdeps graph --org graasp --display all --format svg --output graph.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Org == "" {
				return fmt.Errorf("organization is required (set ORG_NAME, org in the config file or --org)")
			}
			return runGraph(cmd.Context(), cmd.OutOrStdout(), cfg.Org, cfg.OutPath, opts)
		},
	}

	cmd.Flags().StringVar(&c.flags.OutPath, "in", c.flags.OutPath, "crawl artifact to read")
	cmd.Flags().StringVar(&opts.display, "display", string(graph.DisplayInternal), "nodes to keep: internal or all")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: "+strings.Join(graphFormats, ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "O", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with full commit hashes (dot, svg)")

	return cmd
}

func runGraph(ctx context.Context, stdout io.Writer, org, in string, opts graphOptions) error {
	display, err := graph.ParseDisplay(opts.display)
	if err != nil {
		return err
	}

	cache, err := storage.ReadArtifact(in)
	if err != nil {
		return err
	}
	g := graph.FromCache(cache.Entries(), org, display)
	loggerFromContext(ctx).Debugf("Materialized %d nodes, %d edges from %s", g.NodeCount(), g.EdgeCount(), in)

	var buf bytes.Buffer
	switch strings.ToLower(opts.format) {
	case formatJSON:
		err = graph.Write(g, &buf)
	case formatDOT:
		buf.WriteString(nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed}))
	case formatSVG:
		err = renderSVG(ctx, g, opts.detailed, &buf)
	default:
		return fmt.Errorf("unknown format %q (use %s)", opts.format, strings.Join(graphFormats, ", "))
	}
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if dir := filepath.Dir(opts.output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess(os.Stderr, "%s", joinDim(fmt.Sprintf("%d nodes", g.NodeCount()), fmt.Sprintf("%d edges", g.EdgeCount()), string(display)))
	printFile(os.Stderr, opts.output)
	return nil
}

func renderSVG(ctx context.Context, g graph.Graph, detailed bool, w io.Writer) error {
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %d nodes...", g.NodeCount()))
	spinner.Start()

	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: detailed}))
	switch {
	case err != nil && spinner.Cancelled():
		spinner.Stop()
		return ctx.Err()
	case err != nil:
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %d nodes", g.NodeCount()))
	_, err = w.Write(svg)
	return err
}
