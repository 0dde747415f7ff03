package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/catalog"
	"github.com/spigell/skill-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve matches over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is server.listen)")
	serveCmd.Flags().BoolP("watch", "w", false, "reload the catalog file when it changes")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("catalog.watch", serveCmd.Flags().Lookup("watch"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the skill-matcher server", zap.String("version", version))

	store := catalog.NewStore(loadCatalog(config, logger))

	if config.Catalog.Watch {
		if config.Catalog.File == "" {
			logger.Warn("catalog watch requested without a catalog file, ignoring")
		} else {
			watcher, err := catalog.NewWatcher(config.Catalog.File, store, logger)
			if err != nil {
				logger.Fatal("watching catalog", zap.Error(err))
			}
			go watcher.Run(ctx)
		}
	}

	srv := server.New(store, server.Options{
		MaxCardinality: config.Matching.MaxCardinality,
		Timeout:        config.Matching.Timeout,
		Filters:        *config.Filters,
	}, logger)

	if err := srv.Run(ctx, config.Server.Listen); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
