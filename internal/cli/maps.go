package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stagemap/pkg/document"
)

// newCommand creates the "new" command.
func (c *CLI) newCommand() *cobra.Command {
	var width, height float64
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if width <= 0 || height <= 0 {
				width, height = cfg.Map.Width, cfg.Map.Height
			}
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			doc := document.New(args[0], document.Map{Width: width, Height: height})
			if err := st.Put(ctx, doc); err != nil {
				return err
			}
			printSuccess("Created map %s", StyleHighlight.Render(doc.Name))
			printKeyValue("ID", doc.ID)
			printNextStep("Add a stage", fmt.Sprintf("%s add %s --label Start", appName, doc.ID))
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "map width in pixels (default from config)")
	cmd.Flags().Float64Var(&height, "height", 0, "map height in pixels (default from config)")
	return cmd
}

// listCommand creates the "list" command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all maps",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			maps, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(maps) == 0 {
				printInfo("No maps yet")
				printNextStep("Create one", appName+" new <name>")
				return nil
			}
			fmt.Fprintln(stdout, mapTable(maps))
			return nil
		},
	}
}

// importCommand creates the "import" command.
func (c *CLI) importCommand() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a map from a JSON or YAML document",
		Long: `Import a map from a JSON or YAML document. The document must describe a
consistent map; with --repair, one-sided neighbor references are mirrored and
references to missing stages are dropped first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var opts []document.ReadOption
			if repair {
				opts = append(opts, document.WithRepair())
			}
			doc, err := document.ReadFile(args[0], opts...)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Put(ctx, doc); err != nil {
				return err
			}
			printSuccess("Imported %s (%d stages)", StyleHighlight.Render(doc.Name), len(doc.Elements))
			printKeyValue("ID", doc.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "mirror one-sided neighbor references before validating")
	return cmd
}

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <map> <file>",
		Short: "Export a map as a JSON or YAML document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := document.WriteFile(args[1], doc); err != nil {
				return err
			}
			printSuccess("Exported %s", StyleHighlight.Render(doc.Name))
			printFile(args[1])
			return nil
		},
	}
}

// deleteCommand creates the "delete" command.
func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <map>",
		Short: "Delete a map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted map %s", args[0])
			return nil
		},
	}
}
