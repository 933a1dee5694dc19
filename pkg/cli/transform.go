package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvmigrate/internal/cvxml"
	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
	"cvmigrate/internal/remap"
	"cvmigrate/internal/transform"
)

func newTransformCmd(opts *rootOptions) *cobra.Command {
	var (
		specPath     string
		fromMappings bool
	)

	cmd := &cobra.Command{
		Use:   "transform <view.calculationview>",
		Short: "Apply a rewrite specification to a view's dependency graph",
		Long: "Builds the dependency graph of a view and rewrites it, either from a YAML " +
			"rewrite specification (--spec) or directly from the mapping-table classification " +
			"(--from-mappings), then reports the resulting structure and warnings.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if specPath == "" && !fromMappings {
				return fmt.Errorf("either --spec or --from-mappings is required")
			}
			view, err := cvxml.ParseFile(args[0])
			if err != nil {
				return err
			}
			g, err := (graph.Builder{}).Build(view)
			if err != nil {
				return err
			}

			var events domain.Events
			if specPath != "" {
				spec, err := transform.LoadSpec(specPath)
				if err != nil {
					return err
				}
				res, err := transform.NewTransformer(opts.logger).Apply(g, spec)
				if err != nil {
					return err
				}
				events = res.Events
			} else {
				table, err := opts.mappingTable()
				if err != nil {
					return err
				}
				classifier := &remap.Classifier{Table: table}
				results, clsEvents := classifier.Classify(remap.UsageFromGraph(g))
				events = append(events, clsEvents...)
				applyEvents, err := remap.Apply(g, results)
				events = append(events, applyEvents...)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			order, cyclic := g.TopologicalOrder()
			fmt.Fprintf(out, "view %s: %d nodes after rewrite\n", view.ID, len(order))
			if cyclic {
				opts.logger.Warn("graph contains a cycle, order is best-effort")
			}
			for _, id := range order {
				n, _ := g.Node(id)
				fmt.Fprintf(out, "  %-10s %s  fields=%v\n", n.Kind, id, n.Fields.Sorted())
			}
			for _, e := range events {
				if e.Severity == domain.SeverityWarning || e.Severity == domain.SeverityError {
					opts.logger.Warn(e.Message, "code", string(e.Code), "node", e.Node)
				} else {
					opts.logger.Info(e.Message, "code", string(e.Code), "node", e.Node)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "YAML rewrite specification file")
	cmd.Flags().BoolVar(&fromMappings, "from-mappings", false, "derive the rewrite from the mapping-table classification")
	return cmd
}
