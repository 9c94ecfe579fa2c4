package main

import (
	"fmt"
	"io"

	"github.com/neurodesk/pmd/pkg/pmd"
	v "github.com/neurodesk/pmd/pkg/validator"
	"github.com/spf13/cobra"
)

var lintCmd = cobra.Command{
	Use:   "lint TEMPLATE...",
	Short: "Report malformed directives, unbalanced blocks and metadata problems",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPmdConfig()
		if err != nil {
			return err
		}
		checkIncludes, _ := cmd.Flags().GetBool("check-includes")

		var problems int
		for _, arg := range args {
			tpl, err := resolveTemplate(cfg, arg)
			if err != nil {
				return err
			}
			problems += reportFindings(cmd.OutOrStdout(), arg, lintTemplate(cfg, tpl, checkIncludes))
		}
		if problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		return nil
	},
}

type finding struct {
	line int
	msg  string
}

func lintTemplate(cfg pmdConfig, tpl template, checkIncludes bool) []finding {
	md, nodes, diags := pmd.NewParser().ParseDiagnostics(tpl.src)
	var out []finding
	for _, d := range diags {
		out = append(out, finding{line: d.Line, msg: d.Message})
	}

	if err := validateMetadata(md, cfg.RequiredMetadata); err != nil {
		for _, e := range unwrapJoined(err) {
			out = append(out, finding{msg: e.Error()})
		}
	}

	if checkIncludes {
		if _, err := tpl.library(cfg).ExpandFrom(tpl.name, nodes); err != nil {
			out = append(out, finding{msg: err.Error()})
		}
	}
	return out
}

func validateMetadata(md pmd.Metadata, required []string) error {
	errs := []error{v.RequiredKeys(md.Keys(), required, "metadata")}
	for _, k := range md.Keys() {
		val, _ := md.Get(k)
		errs = append(errs, v.HasNoDirectives(val, "@"+k))
	}
	if ver, ok := md.Get("version"); ok {
		errs = append(errs, v.Version(ver, "@version"))
	}
	return v.Every(errs...)
}

func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func reportFindings(w io.Writer, name string, fs []finding) int {
	for _, f := range fs {
		if f.line > 0 {
			fmt.Fprintf(w, "%s:%d: %s\n", name, f.line, f.msg)
		} else {
			fmt.Fprintf(w, "%s: %s\n", name, f.msg)
		}
	}
	return len(fs)
}
