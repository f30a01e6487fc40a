package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procflow/procflow/api/rest"
	"github.com/procflow/procflow/internal/config"
	"github.com/procflow/procflow/pkg/engine"
	"github.com/procflow/procflow/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST server with the background job scheduler",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer func() { _ = log.Sync() }()

	e := engine.New(engine.Config{
		ScriptTimeout:   cfg.Engine.ScriptTimeout,
		AdapterTimeout:  cfg.Engine.AdapterTimeout,
		JobPollInterval: cfg.Jobs.PollInterval,
		Log:             log,
	})
	e.Start()
	defer e.Stop()

	server := rest.NewServer(e, &rest.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		EnableCORS:   cfg.Server.EnableCORS,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("server listening", zap.String("address", cfg.Server.Address))
	return server.StartWithContext(ctx)
}
