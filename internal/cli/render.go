package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagemap/pkg/cache"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/render/dot"
)

// Output formats of the render command.
const (
	formatSVG = "svg"
	formatPNG = "png"
	formatDOT = "dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string
	format   string
	width    float64 // drawing width in inches
	detailed bool    // label paths with their length
	noCache  bool
	front    []int // stages drawn on top
	back     []int // stages drawn below all others
}

// renderCommand creates the "render" command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{width: dot.DefaultWidth}
	cmd := &cobra.Command{
		Use:   "render <map>",
		Short: "Render a map to SVG, PNG or DOT",
		Long: `Render a map with Graphviz. Stages keep their positions; paths are drawn
as straight lines between stage centers. --front and --back change the
drawing order for this rendering only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = formatFromPath(opts.output)
			}
			switch opts.format {
			case formatSVG, formatPNG, formatDOT:
			default:
				return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (must be svg, png or dot)", opts.format)
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <map>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg (default), png, dot")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "drawing width in inches")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label paths with their length")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render even if a cached artifact exists")
	cmd.Flags().IntSliceVar(&opts.front, "front", nil, "stages to draw on top")
	cmd.Flags().IntSliceVar(&opts.back, "back", nil, "stages to draw below all others")
	return cmd
}

// formatFromPath derives the format from an output file extension.
func formatFromPath(p string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), ".")
	if ext == "" {
		return formatSVG
	}
	return ext
}

func (c *CLI) runRender(ctx context.Context, id string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	s, err := c.openMap(ctx, id, nil)
	if err != nil {
		return err
	}
	defer s.close()

	for _, i := range opts.back {
		if err := s.Editor.ReorderToBack(i); err != nil {
			return err
		}
	}
	for _, i := range opts.front {
		if err := s.Editor.ReorderToFront(i); err != nil {
			return err
		}
	}
	s.Editor.Flush()

	source := s.Recorder.DOT(dot.Options{Width: opts.width, Aspect: s.Editor.Aspect(), Detailed: opts.detailed})
	logger.Debug("generated DOT", "stages", s.Editor.Count(), "bytes", len(source))

	var data []byte
	cached := false
	if opts.format == formatDOT {
		data = []byte(source)
	} else {
		store := c.artifactCache(cfg.Render.CacheDir, cfg.Render.NoCache || opts.noCache)
		defer store.Close()
		data, cached, err = renderArtifact(ctx, store, source, opts.format)
		if err != nil {
			return err
		}
	}

	output := opts.output
	if output == "" {
		output = s.Doc.ID + "." + opts.format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
	}

	printSuccess("Rendered %s", StyleHighlight.Render(s.Doc.Name))
	printStats(s.Editor.Count(), len(s.Editor.Paths()), cached)
	printFile(output)
	return nil
}

// artifactCache opens the render cache, falling back to a cache that never
// hits if the directory is unusable or caching is disabled.
func (c *CLI) artifactCache(dir string, disabled bool) cache.Cache {
	if disabled || dir == "" {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("render cache unavailable", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// renderArtifact runs Graphviz unless the cache already holds the artifact
// for source.
func renderArtifact(ctx context.Context, store cache.Cache, source, format string) ([]byte, bool, error) {
	logger := loggerFromContext(ctx)
	key := cache.ArtifactKey([]byte(source), format)
	if data, ok, err := store.Get(ctx, key); err != nil {
		logger.Warn("render cache read failed", "err", err)
	} else if ok {
		return data, true, nil
	}

	spin := newSpinner(ctx, stderr, fmt.Sprintf("Rendering %s...", strings.ToUpper(format)))
	spin.Start()
	p := newProgress(logger)

	var (
		data []byte
		err  error
	)
	if format == formatPNG {
		data, err = dot.RenderPNG(ctx, source)
	} else {
		data, err = dot.RenderSVG(ctx, source)
	}
	spin.Stop()
	if err != nil {
		if spin.Cancelled() {
			return nil, false, ctx.Err()
		}
		return nil, false, err
	}
	p.done("rendered " + format)

	if err := store.Set(ctx, key, data, 0); err != nil {
		logger.Warn("render cache write failed", "err", err)
	}
	return data, false, nil
}
