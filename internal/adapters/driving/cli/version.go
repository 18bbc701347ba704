package cli

import (
	"github.com/spf13/cobra"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// The version needs no services.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"version":         version,
			"pipelineVersion": domain.PipelineVersion,
			"schemaVersion":   domain.SchemaVersion,
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
