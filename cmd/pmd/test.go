package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/neurodesk/pmd/pkg/suite"
	"github.com/spf13/cobra"
)

var testCmd = cobra.Command{
	Use:   "test SUITE...",
	Short: "Run golden template suites",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPmdConfig()
		if err != nil {
			return err
		}
		selectors, _ := cmd.Flags().GetStringSlice("run")

		var failed, total int
		for _, path := range args {
			s, err := suite.Load(path)
			if err != nil {
				return err
			}
			results := suite.Run(s, suite.Options{
				Loader:    cfg.loader(s.Dir()),
				Renderer:  cfg.rendererOptions(),
				Selectors: selectors,
			})
			total += len(results)
			failed += printResults(cmd.OutOrStdout(), path, results)
		}
		if total == 0 {
			return fmt.Errorf("no cases matched")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d passed\n", total-failed, total)
		if failed > 0 {
			return fmt.Errorf("%d case(s) failed", failed)
		}
		return nil
	},
}

func printResults(w io.Writer, path string, results []suite.Result) int {
	var failed int
	for _, r := range results {
		if r.Passed() {
			fmt.Fprintf(w, "ok   %s/%s\n", path, r.Case)
			continue
		}
		failed++
		fmt.Fprintf(w, "FAIL %s/%s\n", path, r.Case)
		if r.Err != nil {
			fmt.Fprintf(w, "    error: %v\n", r.Err)
		}
		if r.Diff != "" {
			fmt.Fprintf(w, "    output differs:\n%s\n", indent(r.Diff, "    "))
		}
		for _, m := range r.MetadataDiff {
			fmt.Fprintf(w, "    metadata: %s\n", m)
		}
	}
	return failed
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
