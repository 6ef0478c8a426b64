package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/server"
	"github.com/jonathan/career-navigator/internal/server/ratelimit"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the workflow and profile editing endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := a.db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	jwtConfig, err := cfg.JWT()
	if err != nil {
		return fmt.Errorf("invalid auth settings: %w", err)
	}
	passwordConfig, err := cfg.Password()
	if err != nil {
		return fmt.Errorf("invalid auth settings: %w", err)
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	srv, err := server.New(server.Config{
		Port:      port,
		Workflow:  a.service,
		Store:     a.db,
		JWT:       jwtConfig,
		Password:  passwordConfig,
		RateLimit: ratelimit.FromSettings(cfg.RateLimit),
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if !srv.AuthEnabled() {
		a.logger.Warn("no JWT secret configured, authentication is disabled")
	}

	return srv.Start(ctx)
}

// commandContext returns the command context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
