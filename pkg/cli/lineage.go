package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cvmigrate/internal/cvxml"
	"cvmigrate/internal/lineage"
	"cvmigrate/internal/report"
)

func newLineageCmd(opts *rootOptions) *cobra.Command {
	var viewDirs []string

	cmd := &cobra.Command{
		Use:   "lineage <view.calculationview> <field>",
		Short: "Trace an output field back to its original source column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewPath, field := args[0], args[1]
			view, err := cvxml.ParseFile(viewPath)
			if err != nil {
				return err
			}

			// Nested views resolve against the view's own directory plus any
			// extra search paths.
			dirs := append([]string{filepath.Dir(viewPath)}, viewDirs...)
			tracer := lineage.NewTracer(cvxml.NewFileResolver(dirs...))

			entries, events, err := tracer.Trace(view, field)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.FormatLineage(entries))
			for _, e := range events.Warnings() {
				opts.logger.Warn(e.Message, "code", string(e.Code), "node", e.Node, "field", e.Field)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&viewDirs, "views-dir", nil, "additional directories to resolve nested views from")
	return cmd
}
