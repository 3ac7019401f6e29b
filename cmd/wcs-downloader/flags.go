package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wcs-downloader/internal/rename"
)

type commonFlags struct {
	outputPath string
	substitute []string
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVarP(&f.outputPath, "output-path", "o", "images", "directory for the coverage files")
	cmd.Flags().StringArrayVarP(&f.substitute, "substitute", "s", nil, "rename rule PATTERN/REPLACEMENT, repeatable")
}

// resolved settings: an explicit flag wins over env and file values
func (a *app) outputPath(cmd *cobra.Command, f commonFlags) string {
	if cmd.Flags().Changed("output-path") {
		return f.outputPath
	}
	return a.cfg.OutputPath
}

func (a *app) rules(cmd *cobra.Command, f commonFlags) ([]rename.Rule, error) {
	raw := a.cfg.Substitute
	if cmd.Flags().Changed("substitute") {
		raw = f.substitute
	}
	return rename.ParseRules(raw)
}
