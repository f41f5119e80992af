package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docsynth",
	Short: "Question answering and theme synthesis across a document collection",
	Long: `docsynth ingests a collection of documents, indexes their paragraphs in a
vector store and answers questions across them. Every answer carries a
DocID/Page/Para citation, and answers from many documents can be grouped
into a handful of cited themes. It runs as a CLI, an HTTP API or an MCP
server for AI agents.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys may live in a local .env file.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
