package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stagemap/internal/server"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve maps over a JSON HTTP API",
		Long: `Serve the maps of the configured store over HTTP. Requests on the same map
are applied one at a time. Stop the server with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			artifacts := c.artifactCache(cfg.Render.CacheDir, cfg.Render.NoCache)
			defer artifacts.Close()

			printInfo("Serving %s maps on %s", cfg.Store.Backend, StyleHighlight.Render(cfg.Server.Addr))
			srv := server.New(st, cfg, server.WithLogger(c.Logger), server.WithCache(artifacts))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
