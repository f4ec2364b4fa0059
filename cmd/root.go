package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the chatgate application.
var rootCmd = &cobra.Command{
	Use:   "chatgate",
	Short: "Expose a ChatHub messaging account as MCP tools",
	Long: `chatgate is a protocol adapter: it exposes a small set of ChatHub
messaging-platform API operations (account info, bot listing, dialog
listing, message sending) as MCP tools over the streamable HTTP
transport, authenticating each session against the ChatHub OAuth
service.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "chatgate version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
