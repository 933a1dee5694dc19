// Package cli implements the cvmigrate command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"cvmigrate/internal/config"
	"cvmigrate/internal/remap"
)

var version = "dev"

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type rootOptions struct {
	mappings          string
	mappingsDB        string
	overrides         string
	customTables      string
	transparentTables string
	logLevel          string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "cvmigrate",
		Short:         "Calculation-view migration toolkit",
		Long:          "Analyzes, rewrites, and traces field lineage of calculation views migrating between schema generations.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadFromEnv()

			// Precedence: flag > environment > default.
			if !cmd.Flags().Changed("mappings") && cfg.MappingsPath != "" {
				opts.mappings = cfg.MappingsPath
			}
			if !cmd.Flags().Changed("mappings-db") && cfg.MappingsDBPath != "" {
				opts.mappingsDB = cfg.MappingsDBPath
			}
			if !cmd.Flags().Changed("overrides") && cfg.OverridesPath != "" {
				opts.overrides = cfg.OverridesPath
			}
			if !cmd.Flags().Changed("custom-tables") && cfg.CustomTablesPath != "" {
				opts.customTables = cfg.CustomTablesPath
			}
			if !cmd.Flags().Changed("transparent-tables") && cfg.TransparentPath != "" {
				opts.transparentTables = cfg.TransparentPath
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}

			opts.logger = cfg.NewLogger()
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	addMappingFlags(rootCmd.PersistentFlags(), opts)
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newTransformCmd(opts))
	rootCmd.AddCommand(newLineageCmd(opts))
	rootCmd.AddCommand(newReportCmd(opts))
	return rootCmd
}

func addMappingFlags(fs *pflag.FlagSet, opts *rootOptions) {
	fs.StringVar(&opts.mappings, "mappings", "", "field-mapping CSV file")
	fs.StringVar(&opts.mappingsDB, "mappings-db", "", "sqlite database with a field_mappings table")
	fs.StringVar(&opts.overrides, "overrides", "", "override mapping CSV file")
	fs.StringVar(&opts.customTables, "custom-tables", "", "custom-table pattern list file")
	fs.StringVar(&opts.transparentTables, "transparent-tables", "", "transparent-table list file")
}

// mappingTable loads the source-of-truth table from whichever source is
// configured, preferring the CSV file over the database.
func (o *rootOptions) mappingTable() (*remap.Table, error) {
	t := remap.NewTable()
	switch {
	case o.mappings != "":
		if err := t.LoadMappingsFile(o.mappings); err != nil {
			return nil, err
		}
	case o.mappingsDB != "":
		if err := t.LoadSQLite(o.mappingsDB); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("no mapping source configured: set --mappings or --mappings-db")
	}
	if o.overrides != "" {
		if err := t.LoadOverridesFile(o.overrides); err != nil {
			return nil, err
		}
	}
	if o.customTables != "" {
		patterns, err := remap.LoadListFile(o.customTables)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			t.AddCustomPattern(p)
		}
	}
	if o.transparentTables != "" {
		tables, err := remap.LoadListFile(o.transparentTables)
		if err != nil {
			return nil, err
		}
		for _, tbl := range tables {
			t.AddTransparent(tbl)
		}
	}
	return t, nil
}
