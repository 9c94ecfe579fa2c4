package main

import (
	"fmt"

	"github.com/neurodesk/pmd/pkg/pmd"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var parseCmd = cobra.Command{
	Use:   "parse TEMPLATE",
	Short: "Print the parsed tree of a template",
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
		_, err = fmt.Fprint(cmd.OutOrStdout(), pmd.Pretty(pmd.Parse(tpl.src)))
		return err
	},
}

var metaCmd = cobra.Command{
	Use:   "meta TEMPLATE",
	Short: "Print the metadata header of a template as YAML",
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
		md, _ := pmd.ExtractMetadata(tpl.src)
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(md)
	},
}
