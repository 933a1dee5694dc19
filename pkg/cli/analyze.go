package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cvmigrate/internal/cvxml"
	"cvmigrate/internal/graph"
	"cvmigrate/internal/remap"
	"cvmigrate/internal/report"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		csvOut     string
		flaggedOut string
	)

	cmd := &cobra.Command{
		Use:   "analyze <view.calculationview>",
		Short: "Classify how each source table of a view migrates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.mappingTable()
			if err != nil {
				return err
			}
			view, err := cvxml.ParseFile(args[0])
			if err != nil {
				return err
			}
			g, err := (graph.Builder{}).Build(view)
			if err != nil {
				return err
			}

			classifier := &remap.Classifier{Table: table}
			results, events := classifier.Classify(remap.UsageFromGraph(g))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "view %s: %d tables classified\n", view.ID, len(results))
			for _, r := range results {
				targets := strings.Join(r.TargetTables, ", ")
				if targets == "" {
					targets = "(none)"
				}
				fmt.Fprintf(out, "  [%s] %-20s -> %s", r.Case, r.SourceTable, targets)
				if len(r.MissingFields) > 0 {
					fmt.Fprintf(out, "  (%d unmapped fields)", len(r.MissingFields))
				}
				fmt.Fprintln(out)
			}

			flagged := remap.FlaggedFields(results)
			if len(flagged) > 0 {
				fmt.Fprintf(out, "%d fields flagged for review:\n", len(flagged))
				for _, f := range flagged {
					fmt.Fprintf(out, "  %s.%s (%s)\n", f.Table, f.Field, f.Reason)
				}
			}
			for _, e := range events.Warnings() {
				opts.logger.Warn(e.Message, "code", string(e.Code), "node", e.Node, "field", e.Field)
			}

			if csvOut != "" {
				if err := writeCSV(csvOut, func(f *os.File) error {
					return report.WriteClassification(f, results)
				}); err != nil {
					return err
				}
			}
			if flaggedOut != "" {
				if err := writeCSV(flaggedOut, func(f *os.File) error {
					return report.WriteFlaggedFields(f, flagged)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvOut, "csv", "", "write the classification report to this CSV file")
	cmd.Flags().StringVar(&flaggedOut, "flagged-csv", "", "write flagged fields to this CSV file")
	return cmd
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
