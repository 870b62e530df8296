package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// showCommand creates the "show" command.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <map>",
		Short: "Show the stages of a map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openMap(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			defer s.close()

			fmt.Fprintln(stdout, StyleTitle.Render(s.Doc.Name))
			printKeyValue("ID", s.Doc.ID)
			printKeyValue("Size", fmt.Sprintf("%sx%s", num(s.Doc.Map.Width), num(s.Doc.Map.Height)))
			printKeyValue("Updated", s.Doc.UpdatedAt.Local().Format("2006-01-02 15:04"))
			if s.Editor.Count() == 0 {
				printInfo("No stages yet")
				printNextStep("Add one", fmt.Sprintf("%s add %s", appName, s.Doc.ID))
				return nil
			}
			fmt.Fprintln(stdout, stageTable(s.Editor.Nodes()))
			printDetail("%d stages · %d paths", s.Editor.Count(), len(s.Editor.Paths()))
			return nil
		},
	}
}

// pathsCommand creates the "paths" command.
func (c *CLI) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <map>",
		Short: "Show the paths between stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openMap(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			defer s.close()

			paths := s.Editor.Paths()
			if len(paths) == 0 {
				printInfo("No paths; connect stages with %s", styleCommand.Render(appName+" link"))
				return nil
			}
			fmt.Fprintln(stdout, pathTable(s.Editor.Nodes(), paths))
			return nil
		},
	}
}
