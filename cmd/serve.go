package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chatgate/internal/app"
	"chatgate/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatgate MCP server",
	Long: `Starts the chatgate server and exposes the MCP endpoint at /mcp.

Each MCP session is authenticated on initialization through one of three
channels, in precedence order: a standard Authorization bearer header, an
X-Api-Id/X-Api-Secret header pair exchanged for a token at the ChatHub
OAuth endpoint, or a legacy token field in the initialize payload.

Configuration:
  chatgate loads config.yaml from --config-path or ~/.config/chatgate,
  then applies CHATGATE_* environment overrides. A .env file in the
  working directory is loaded first if present.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Deployment secrets and URLs may live in a .env file; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("Serve", "Failed to load .env file: %v", err)
	}

	app.Version = rootCmd.Version
	application, err := app.NewApplication(app.NewConfig(serveDebug, serveConfigPath))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
