package main

import (
	"log/slog"
	"os"

	"github.com/neurodesk/pmd/pkg/common"
	"github.com/spf13/cobra"
)

var rootConfigPath string
var verbose bool

var rootCmd = cobra.Command{
	Use:           "pmd",
	Short:         "Render, inspect and test PMD prompt templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", common.DefaultConfigFile, "Path to pmd configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	renderCmd.Flags().StringArray("context", nil, "Context file (.yaml, .yml, .json, .toml or .star); may be repeated, later files win")
	renderCmd.Flags().StringArray("set", nil, "Set a context value as KEY=VALUE; applied after context files")
	renderCmd.Flags().Bool("expand", false, "Resolve includes instead of rendering placeholders")
	renderCmd.Flags().Bool("strict", false, "Fail on malformed directives, unbalanced blocks and undefined names")
	renderCmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&parseCmd)
	rootCmd.AddCommand(&metaCmd)

	lintCmd.Flags().Bool("check-includes", false, "Report includes that cannot be resolved")
	rootCmd.AddCommand(&lintCmd)

	testCmd.Flags().StringSlice("run", nil, "Only run cases with these names")
	rootCmd.AddCommand(&testCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
