package cmd

import (
	"context"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/docsynth/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document query, theme identification and listing tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		ids, err := a.store.DocumentIDs(context.Background())
		if err != nil {
			return err
		}
		a.logger.Info("docsynth MCP server started on stdio", "documents", len(ids))

		return mcpserver.NewServer(a.research, a.store, a.activity, a.logger).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
