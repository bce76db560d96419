package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"pathwaycore/internal/result"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pathwayctl",
		Short:         "Pathway enrichment analysis over a precomputed snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file (PATHWAY_* variables override it)")
	flags.StringVar(&a.tracing, "trace", "none", "operation tracer: none, json or otel")
	flags.BoolVar(&a.dumpStats, "stats", false, "print operation counters to stderr when done")

	root.AddCommand(
		newInspectCmd(a),
		newAnalyseCmd(a),
		newCompareCmd(a),
		newTokenCmd(a),
		newTokensCmd(a),
		newForgetCmd(a),
		newNotFoundCmd(a),
		newResourcesCmd(a),
		newFoundCmd(a),
		newSpeciesCmd(a),
		newReactionsCmd(a),
		newPageCmd(a),
		newSnapshotCmd(a),
	)
	return root
}

// listing holds the sort and paging flags shared by result listings.
type listing struct {
	sortBy   string
	order    string
	resource string
	page     int
	pageSize int
}

func (l *listing) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&l.sortBy, "sort", string(result.DefaultSortKey), "sort key, e.g. ENTITIES_FDR or NAME")
	flags.StringVar(&l.order, "order", string(result.Ascending), "ASC or DESC")
	flags.StringVar(&l.resource, "resource", "TOTAL", "resource to filter by")
	flags.IntVar(&l.page, "page", 0, "1-indexed page; 0 lists every pathway")
	flags.IntVar(&l.pageSize, "page-size", result.DefaultPageSize, "pathways per page")
}

func (l listing) query() result.Query {
	return result.Query{SortBy: l.sortBy, Order: l.order, Resource: l.resource, Page: l.page, PageSize: l.pageSize}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
