package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gameportal/gameportal/internal/api"
	"github.com/gameportal/gameportal/internal/config"
	"github.com/gameportal/gameportal/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GamePortal server",
	Long:  `Start the GamePortal server and its background janitors.`,
	Example: `gameportal serve --config config.yml
gameportal serve -c /path/to/config.yml --log-level debug`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	server, err := api.New(cfg, eng, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	// Start the janitors in a goroutine
	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error("engine error", "error", err)
		}
	}()

	// Start the API server in a goroutine
	go func() {
		log.Info("starting API server", "listen", cfg.Listen)
		if err := server.Run(); err != nil {
			log.Error("API server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("gameportal started successfully")
	<-c
	log.Info("shutting down gracefully...")

	cancel()
	if err := eng.Close(); err != nil {
		log.Error("failed to stop engine", "error", err)
	}

	// Give time for graceful shutdown
	time.Sleep(2 * time.Second)
}
