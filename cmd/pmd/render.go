package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/neurodesk/pmd/pkg/contextfile"
	"github.com/neurodesk/pmd/pkg/pmd"
	"github.com/spf13/cobra"
)

var renderCmd = cobra.Command{
	Use:   "render TEMPLATE",
	Short: "Render a template against a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPmdConfig()
		if err != nil {
			return err
		}

		tpl, err := resolveTemplate(cfg, args[0])
		if err != nil {
			return err
		}

		contextFiles, _ := cmd.Flags().GetStringArray("context")
		assignments, _ := cmd.Flags().GetStringArray("set")
		ctx, err := buildContext(contextFiles, assignments)
		if err != nil {
			return err
		}

		expand, _ := cmd.Flags().GetBool("expand")
		strict, _ := cmd.Flags().GetBool("strict")
		out, err := renderTemplate(cfg, tpl, ctx, expand, strict)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, err := fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		}
		if err := atomic.WriteFile(output, strings.NewReader(out)); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		slog.Debug("wrote output", "path", output, "bytes", len(out))
		return nil
	},
}

func buildContext(files, assignments []string) (pmd.Context, error) {
	var ctxs []pmd.Context
	for _, f := range files {
		ctx, err := contextfile.Load(f)
		if err != nil {
			return nil, err
		}
		ctxs = append(ctxs, ctx)
	}
	set, err := contextfile.ParseAssignments(assignments)
	if err != nil {
		return nil, err
	}
	return contextfile.Merge(append(ctxs, set)...), nil
}

func renderTemplate(cfg pmdConfig, tpl template, ctx pmd.Context, expand, strict bool) (string, error) {
	md, nodes, diags := pmd.NewParser().ParseDiagnostics(tpl.src)
	if strict && len(diags) > 0 {
		return "", diagnosticsError(tpl.name, diags)
	}
	for _, d := range diags {
		slog.Debug("template recovered", "template", tpl.name, "line", d.Line, "problem", d.Message)
	}
	slog.Debug("parsed template", "template", tpl.name, "metadata", md.Len())

	if expand {
		var err error
		if nodes, err = tpl.library(cfg).ExpandFrom(tpl.name, nodes); err != nil {
			return "", fmt.Errorf("expanding includes: %w", err)
		}
	}

	r := pmd.NewRenderer(ctx, cfg.rendererOptions()...)
	if !strict {
		return r.Render(nodes), nil
	}
	out, diags := r.RenderDiagnostics(nodes)
	if len(diags) > 0 {
		return "", diagnosticsError(tpl.name, diags)
	}
	return out, nil
}

func diagnosticsError(name string, diags []pmd.Diagnostic) error {
	errs := make([]error, len(diags))
	for i, d := range diags {
		errs[i] = errors.New(d.String())
	}
	return fmt.Errorf("%s: %d problem(s):\n%w", name, len(diags), errors.Join(errs...))
}
