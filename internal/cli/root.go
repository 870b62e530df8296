package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stagemap/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "stagemap edits maps of connected stages",
		Long:         `stagemap edits maps of stages placed on a canvas and the undirected paths between them. Maps live in a configurable store and can be exported as documents or drawings.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/stagemap/config.toml)")

	root.AddGroup(
		&cobra.Group{ID: "maps", Title: "Maps:"},
		&cobra.Group{ID: "stages", Title: "Stages:"},
	)

	for _, cmd := range []*cobra.Command{
		c.newCommand(),
		c.listCommand(),
		c.importCommand(),
		c.exportCommand(),
		c.deleteCommand(),
		c.showCommand(),
		c.pathsCommand(),
		c.renderCommand(),
	} {
		cmd.GroupID = "maps"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.addCommand(),
		c.moveCommand(),
		c.labelCommand(),
		c.resizeCommand(),
		c.linkCommand(),
		c.editCommand(),
		c.removeCommand(),
	} {
		cmd.GroupID = "stages"
		root.AddCommand(cmd)
	}
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
