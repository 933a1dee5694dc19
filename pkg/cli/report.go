package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cvmigrate/internal/domain"
	"cvmigrate/internal/remap"
	"cvmigrate/internal/report"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		workers    int
		csvOut     string
		flaggedOut string
	)

	cmd := &cobra.Command{
		Use:   "report <dir>",
		Short: "Batch-classify every view under a directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.mappingTable()
			if err != nil {
				return err
			}
			paths, err := report.DiscoverViews(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no .calculationview files under %s", args[0])
			}

			batch := &report.Batch{
				Classifier: &remap.Classifier{Table: table},
				Workers:    workers,
				Logger:     opts.logger,
			}
			reports := batch.Run(cmd.Context(), paths)

			var (
				allResults []domain.TableMappingResult
				failed     int
			)
			out := cmd.OutOrStdout()
			for _, rep := range reports {
				if rep.Err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", rep.Path, rep.Err)
					continue
				}
				fmt.Fprintf(out, "OK   %s: %d tables, %d warnings\n", rep.Path, len(rep.Results), len(rep.Events.Warnings()))
				allResults = append(allResults, rep.Results...)
			}
			fmt.Fprintf(out, "%d views processed, %d failed\n", len(reports), failed)

			if csvOut != "" {
				if err := writeCSV(csvOut, func(f *os.File) error {
					return report.WriteClassification(f, allResults)
				}); err != nil {
					return err
				}
			}
			if flaggedOut != "" {
				if err := writeCSV(flaggedOut, func(f *os.File) error {
					return report.WriteFlaggedFields(f, remap.FlaggedFields(allResults))
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent workers (default: number of CPUs)")
	cmd.Flags().StringVar(&csvOut, "out", "", "write the combined classification report to this CSV file")
	cmd.Flags().StringVar(&flaggedOut, "flagged-out", "", "write the combined flagged-field list to this CSV file")
	return cmd
}
