// Command facetforge generates idea categories and candidate options with a
// generative model, either one-shot from the command line or as an MCP
// server on stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"facetforge/internal/config"
	"facetforge/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// errSilent marks failures whose output was already written.
var errSilent = errors.New("command failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "facetforge",
		Short: "facetforge - idea category and option generator",
		Long: `facetforge breaks a subject into the categories (facets) along which it can
vary, as seen by an expert role, and fills each category with candidate
options using Gemini.

Run "facetforge serve" to expose the generator to MCP clients over stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logging.Initialize(loaded.Logging.LoggerConfig(verbose)); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if err := logging.InitAudit(loaded.Logging.AuditFile); err != nil {
				return err
			}
			cfg = loaded
			logger = logging.Root()
			logger.Debug("Configuration loaded", zap.String("path", configPath), zap.String("command", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging on stderr")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")

	root.AddCommand(
		newServeCmd(),
		newGenerateCmd(),
		newAnalyzeCmd(),
		newRunsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Name, cfg.Version)
		},
	}
}

func execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	logging.CloseAudit()
	logging.CloseAll()

	if err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
