package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	buildIDFlag  string
	previousFlag string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build staged and canonical outputs from the fixtures",
	Long: `Reads the configured fixture set and writes a content-addressed build
directory holding staged rows, canonical rows and manifest.json.

The build mode (fixtures or full) comes from PIPELINE_MODE or the config file.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff a build against a previous build",
	Long: `Compares the canonical rows of a build with a previous build and writes
diff/added.jsonl, diff/changed.jsonl and diff/removed.jsonl.

Without --previous-build-id the latest successfully loaded build is used.
An empty --previous-build-id diffs against nothing.`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Apply a build to the canonical store",
	Long: `Applies a build's diff to the canonical store in one transaction.
Loading a build that already succeeded is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	for _, cmd := range []*cobra.Command{diffCmd, loadCmd} {
		cmd.Flags().StringVar(&buildIDFlag, "build-id", "", "build to use (required)")
		cmd.Flags().StringVar(&previousFlag, "previous-build-id", "", "baseline build")
		_ = cmd.MarkFlagRequired("build-id")
	}
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(loadCmd)
}

// previousBuild returns the baseline flag, or nil when it was not given.
func previousBuild(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("previous-build-id") {
		return nil
	}
	p := previousFlag
	return &p
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if builder == nil {
		return errors.New("build service not configured")
	}
	res, err := builder.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runDiff(cmd *cobra.Command, _ []string) error {
	if differ == nil {
		return errors.New("diff service not configured")
	}
	res, err := differ.Diff(cmd.Context(), buildIDFlag, previousBuild(cmd))
	if err != nil {
		return fmt.Errorf("diff failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if loader == nil {
		return errors.New("load service not configured")
	}
	res, err := loader.Load(cmd.Context(), buildIDFlag, previousBuild(cmd))
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), res)
}
