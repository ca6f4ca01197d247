package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/orgdeps/internal/server"
	"github.com/matzehuels/orgdeps/pkg/storage"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest snapshot to the visualization front-end",
		Long: `Serve the latest snapshot over HTTP.

Snapshots are read from MongoDB when --mongo is set and from the crawl
artifact (--in) otherwise. Every request reads the latest snapshot, so a
crawl running on a schedule is picked up without a restart.`,
		Example: `  orgdeps serve --org graasp --in data/deps.json --listen :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Org == "" {
				return fmt.Errorf("organization is required (set ORG_NAME, org in the config file or --org)")
			}

			ctx := cmd.Context()
			var source storage.Source = storage.NewFileSink(cfg.OutPath)
			if cfg.MongoURI != "" {
				mongo, err := storage.NewMongoSink(ctx, storage.MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
				if err != nil {
					return err
				}
				defer mongo.Close(context.Background())
				source = mongo
			}

			srv := server.New(cfg.Org, source, loggerFromContext(ctx))
			err = srv.ListenAndServe(ctx, cfg.Listen)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&c.flags.OutPath, "in", c.flags.OutPath, "crawl artifact to serve")
	cmd.Flags().StringVar(&c.flags.Listen, "listen", c.flags.Listen, "HTTP listen address")
	cmd.Flags().StringVar(&c.flags.MongoURI, "mongo", "", "read snapshots from MongoDB (env MONGO_URI)")

	return cmd
}
