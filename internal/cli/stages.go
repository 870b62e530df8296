package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// withMap opens the map, runs fn and saves the map if fn changed it.
func (c *CLI) withMap(ctx context.Context, id string, confirmer editor.Confirmer, fn func(s *mapSession) error) error {
	s, err := c.openMap(ctx, id, confirmer)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s); err != nil {
		return err
	}
	return s.save(ctx)
}

// addCommand creates the "add" command.
func (c *CLI) addCommand() *cobra.Command {
	var (
		p     editor.AddParams
		tel   stage.Telemetry
		links []int
	)
	cmd := &cobra.Command{
		Use:   "add <map>",
		Short: "Add a stage",
		Long:  "Add a stage to a map. Without --x/--y the stage is centered; without --label it is named after the number of unnamed stages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			placed := flags.Changed("x") || flags.Changed("y") || flags.Changed("width") || flags.Changed("height")
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				if p.Type == "" {
					p.Type = s.StageType
				}
				if placed {
					w, h := s.Content.DefaultSize(p.Type)
					if !flags.Changed("width") {
						tel.Width = w
					}
					if !flags.Changed("height") {
						tel.Height = h * s.Editor.Aspect()
					}
					p.Telemetry = &tel
				}
				p.Neighbors = stage.NewNeighbors(links...)
				n, err := s.Editor.AddNode(p)
				if err != nil {
					return err
				}
				printSuccess("Added stage %d %s", n.Index, StyleHighlight.Render(n.Label))
				printDetail("at %s,%s size %sx%s", num(n.Telemetry.X), num(n.Telemetry.Y), num(n.Telemetry.Width), num(n.Telemetry.Height))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&p.Label, "label", "", "stage label")
	cmd.Flags().StringVar(&p.Type, "type", "", "content type (default from config)")
	cmd.Flags().Float64Var(&tel.X, "x", 0, "left edge in percent of the map width")
	cmd.Flags().Float64Var(&tel.Y, "y", 0, "top edge in percent of the map height")
	cmd.Flags().Float64Var(&tel.Width, "width", 0, "width in percent of the map width")
	cmd.Flags().Float64Var(&tel.Height, "height", 0, "height in percent of the map height")
	cmd.Flags().IntSliceVar(&links, "link", nil, "indices of stages to connect to")
	return cmd
}

// moveCommand creates the "move" command.
func (c *CLI) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <map> <index> <x> <y>",
		Short: "Move a stage",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			x, err := parseFloat("x", args[2])
			if err != nil {
				return err
			}
			y, err := parseFloat("y", args[3])
			if err != nil {
				return err
			}
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				if err := s.Editor.UpdatePosition(index, x, y); err != nil {
					return err
				}
				printSuccess("Moved stage %d to %s,%s", index, num(x), num(y))
				return nil
			})
		},
	}
}

// labelCommand creates the "label" command.
func (c *CLI) labelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "label <map> <index> <label>",
		Short: "Rename a stage",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				if err := s.Editor.SetLabel(index, args[2]); err != nil {
					return err
				}
				printSuccess("Renamed stage %d to %s", index, StyleHighlight.Render(args[2]))
				return nil
			})
		},
	}
}

// resizeCommand creates the "resize" command.
func (c *CLI) resizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <map> <index> <width> <height>",
		Short: "Resize a stage",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			w, err := parseFloat("width", args[2])
			if err != nil {
				return err
			}
			h, err := parseFloat("height", args[3])
			if err != nil {
				return err
			}
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				if err := s.Editor.SetSize(index, w, h); err != nil {
					return err
				}
				printSuccess("Resized stage %d to %sx%s", index, num(w), num(h))
				return nil
			})
		},
	}
}

// linkCommand creates the "link" command.
func (c *CLI) linkCommand() *cobra.Command {
	var add, remove bool
	cmd := &cobra.Command{
		Use:   "link <map> <index> [neighbor...]",
		Short: "Set the neighbors of a stage",
		Long: `Set the neighbors of a stage. The given stages become its exact neighbor
set; every other stage loses its path to it. With --add or --remove the
given stages are added to or removed from the current set instead.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if add && remove {
				return errors.New(errors.ErrCodeInvalidInput, "--add and --remove are exclusive")
			}
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			given := make([]int, 0, len(args)-2)
			for _, a := range args[2:] {
				i, err := parseIndex(a)
				if err != nil {
					return err
				}
				given = append(given, i)
			}
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				n, err := s.Editor.Node(index)
				if err != nil {
					return err
				}
				set := stage.NewNeighbors(given...)
				switch {
				case add:
					set = stage.NewNeighbors(append(n.Neighbors, given...)...)
				case remove:
					set = n.Clone().Neighbors
					for _, g := range given {
						set = set.Without(g)
					}
				}
				if err := s.Editor.SetNeighbors(index, set); err != nil {
					return err
				}
				n, _ = s.Editor.Node(index)
				if len(n.Neighbors) == 0 {
					printSuccess("Stage %d has no neighbors", index)
				} else {
					printSuccess("Stage %d is connected to %v", index, n.Neighbors.Strings())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "add to the current neighbors")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove from the current neighbors")
	return cmd
}

// editCommand creates the "edit" command, which changes several attributes
// in one validated edit session.
func (c *CLI) editCommand() *cobra.Command {
	var (
		label, contentType string
		width, height      float64
		links              []int
	)
	cmd := &cobra.Command{
		Use:   "edit <map> <index>",
		Short: "Edit a stage and validate the result",
		Long: `Edit several attributes of a stage at once. The changes are validated
together; if any field is invalid nothing is saved.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			return c.withMap(cmd.Context(), args[0], nil, func(s *mapSession) error {
				options, err := s.Editor.BeginEdit(index)
				if err != nil {
					return err
				}
				loggerFromContext(cmd.Context()).Debug("edit session", "index", index, "candidates", len(options))

				if flags.Changed("label") {
					err = stderrors.Join(err, s.Editor.SetLabel(index, label))
				}
				if flags.Changed("type") {
					err = stderrors.Join(err, s.Editor.SetType(index, contentType))
				}
				if flags.Changed("width") || flags.Changed("height") {
					n, _ := s.Editor.Node(index)
					w, h := n.Telemetry.Width, n.Telemetry.Height
					if flags.Changed("width") {
						w = width
					}
					if flags.Changed("height") {
						h = height
					}
					err = stderrors.Join(err, s.Editor.SetSize(index, w, h))
				}
				if flags.Changed("link") {
					err = stderrors.Join(err, s.Editor.SetNeighbors(index, links))
				}
				if err != nil {
					return err
				}

				ok, err := s.Editor.CommitEdit(index, s.Validator)
				if err != nil {
					return err
				}
				if !ok {
					verr := s.Editor.FieldErrors()
					printError("Stage %d was not saved", index)
					var fields *errors.ValidationError
					if stderrors.As(verr, &fields) {
						printFieldErrors(fields.Fields)
					}
					return verr
				}
				n, _ := s.Editor.Node(index)
				printSuccess("Saved stage %d %s", index, StyleHighlight.Render(n.Label))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "stage label")
	cmd.Flags().StringVar(&contentType, "type", "", "content type")
	cmd.Flags().Float64Var(&width, "width", 0, "width in percent of the map width")
	cmd.Flags().Float64Var(&height, "height", 0, "height in percent of the map height")
	cmd.Flags().IntSliceVar(&links, "link", nil, "exact neighbor set")
	return cmd
}

// removeCommand creates the "remove" command.
func (c *CLI) removeCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <map> <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a stage and its paths",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			var confirmer editor.Confirmer = editor.AutoConfirm{}
			tc := &teaConfirmer{in: c.In, out: c.Out}
			if !yes {
				confirmer = tc
			}
			return c.withMap(cmd.Context(), args[0], confirmer, func(s *mapSession) error {
				n, err := s.Editor.Node(index)
				if err != nil {
					return err
				}
				before := s.Editor.Count()
				if err := s.Editor.RequestRemove(index); err != nil {
					return err
				}
				if tc.err != nil {
					return fmt.Errorf("confirmation prompt: %w", tc.err)
				}
				if s.Editor.Count() == before {
					printInfo("Kept stage %d %s", index, n.Label)
					return nil
				}
				printSuccess("Removed stage %d %s", index, StyleHighlight.Render(n.Label))
				if index < s.Editor.Count() {
					printDetail("stages above %d moved down by one", index)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
