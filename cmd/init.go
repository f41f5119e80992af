package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docsynth configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, embedding model and vector store, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
