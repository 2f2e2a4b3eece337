package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/rommaana-agents/internal/app"
	"github.com/ashureev/rommaana-agents/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Command line access to the insurance agents",
	Long: `agentctl runs the claims, policy, support and compliance agents in-process.
It reads the same environment variables and .env file as the server.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRootConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var cfg *config.Config

func loadRootConfig(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var err error
	cfg, err = config.Load()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// setupContext returns a context canceled on SIGINT or SIGTERM.
func setupContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("initialize agents: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
