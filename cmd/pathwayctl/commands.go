package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pathwaycore/internal/core"
	"pathwaycore/internal/result"
)

type speciesInfo struct {
	ID       int64  `json:"dbId"`
	TaxID    string `json:"taxId"`
	Name     string `json:"name"`
	Pathways int    `json:"pathways"`
}

type snapshotInfo struct {
	Key                   string        `json:"key"`
	CreatedAt             time.Time     `json:"createdAt"`
	Species               []speciesInfo `json:"species"`
	Pathways              int           `json:"pathways"`
	Identifiers           int           `json:"identifiers"`
	InteractorIdentifiers int           `json:"interactorIdentifiers"`
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Load the configured snapshot and print its content counts",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadedContainer(cmd.Context())
			if err != nil {
				return err
			}
			d, err := c.Data()
			if err != nil {
				return err
			}
			info := snapshotInfo{
				Key:                   a.cfg.Snapshot.Key,
				CreatedAt:             d.CreatedAt,
				Species:               make([]speciesInfo, 0, len(d.Hierarchies)),
				Pathways:              d.PathwayCount(),
				Identifiers:           d.Entities.Len(),
				InteractorIdentifiers: d.Interactors.Len(),
			}
			for _, h := range d.Hierarchies {
				info.Species = append(info.Species, speciesInfo{ID: h.Species.ID, TaxID: h.Species.TaxID, Name: h.Species.Name, Pathways: h.Len()})
			}
			return writeJSON(cmd.OutOrStdout(), info)
		}),
	}
}

func newAnalyseCmd(a *app) *cobra.Command {
	var (
		input       string
		sampleName  string
		projection  bool
		interactors bool
		l           listing
	)
	cmd := &cobra.Command{
		Use:   "analyse",
		Short: "Analyse a file of identifiers, optionally with expression values",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			ud, err := readUserData(f)
			if err != nil {
				return err
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Analyse(cmd.Context(), ud, core.AnalyseRequest{
				Projection:  projection,
				Interactors: interactors,
				SampleName:  sampleName,
				FileName:    filepath.Base(input),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.ResultSummary(l.query()))
		}),
	}
	cmd.Flags().StringVar(&input, "input", "", "file of submitted identifiers")
	cmd.Flags().StringVar(&sampleName, "sample", "", "sample name recorded on the result")
	cmd.Flags().BoolVar(&projection, "projection", false, "project identifiers onto the reference species")
	cmd.Flags().BoolVar(&interactors, "interactors", false, "also match identifiers against interactors")
	_ = cmd.MarkFlagRequired("input")
	l.bind(cmd)
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var l listing
	cmd := &cobra.Command{
		Use:   "compare SPECIES_ID",
		Short: "Compare a species with the reference species",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			speciesID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("species id %q: %w", args[0], err)
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.CompareSpecies(cmd.Context(), speciesID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.ResultSummary(l.query()))
		}),
	}
	l.bind(cmd)
	return cmd
}

// withResult loads the result named by the first argument.
func (a *app) withResult(fn func(cmd *cobra.Command, res *result.StoredResult, args []string) error) func(*cobra.Command, []string) error {
	return a.run(func(cmd *cobra.Command, args []string) error {
		svc, err := a.openService(cmd.Context())
		if err != nil {
			return err
		}
		res, err := svc.Result(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return fn(cmd, res, args[1:])
	})
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		l        listing
		pathways []string
	)
	cmd := &cobra.Command{
		Use:   "token TOKEN",
		Short: "Print a stored result, filtered, sorted and paged",
		Args:  cobra.ExactArgs(1),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, _ []string) error {
			if len(pathways) > 0 {
				return writeJSON(cmd.OutOrStdout(), res.FilterByPathways(pathways, l.resource))
			}
			return writeJSON(cmd.OutOrStdout(), res.ResultSummary(l.query()))
		}),
	}
	l.bind(cmd)
	cmd.Flags().StringSliceVar(&pathways, "pathways", nil, "only list these pathways, in result order")
	return cmd
}

func newTokensCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the tokens of stored results",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			tokens, err := svc.Tokens(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tokens)
		}),
	}
}

func newForgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget TOKEN",
		Short: "Delete a stored result",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := svc.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s", core.ErrTokenNotFound, args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		}),
	}
}

func newNotFoundCmd(a *app) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "not-found TOKEN",
		Short: "List submitted identifiers that matched nothing",
		Args:  cobra.ExactArgs(1),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, _ []string) error {
			req := result.PageRequest{}
			if cmd.Flags().Changed("page") || cmd.Flags().Changed("page-size") {
				req = result.Page(pageSize, page)
			}
			return writeJSON(cmd.OutOrStdout(), res.NotFoundIdentifiers(req))
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "1-indexed page")
	cmd.Flags().IntVar(&pageSize, "page-size", result.DefaultPageSize, "identifiers per page")
	return cmd
}

func newResourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resources TOKEN",
		Short: "Print the hit pathway count per resource",
		Args:  cobra.ExactArgs(1),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), res.ResourceSummary())
		}),
	}
}

func newFoundCmd(a *app) *cobra.Command {
	var (
		resource string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "found TOKEN PATHWAY...",
		Short: "Print the entities and interactors found in pathways",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, ids []string) error {
			if page > 0 {
				if len(ids) != 1 {
					return fmt.Errorf("--page needs exactly one pathway")
				}
				out, err := res.PathwayIdentifiers(ids[0], resource, pageSize, page)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(ids) == 1 {
				out, ok := res.FoundElementsForPathway(ids[0], resource)
				if !ok {
					return result.NotFoundError{Kind: "pathway", ID: ids[0]}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return writeJSON(cmd.OutOrStdout(), res.FoundElementsForPathways(ids, resource))
		}),
	}
	cmd.Flags().StringVar(&resource, "resource", "TOTAL", "resource to filter by")
	cmd.Flags().IntVar(&page, "page", 0, "page the entity identifiers of a single pathway")
	cmd.Flags().IntVar(&pageSize, "page-size", result.DefaultPageSize, "identifiers per page")
	return cmd
}

func newSpeciesCmd(a *app) *cobra.Command {
	var l listing
	cmd := &cobra.Command{
		Use:   "species TOKEN SPECIES_ID",
		Short: "List the hit pathways of one species",
		Args:  cobra.ExactArgs(2),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, args []string) error {
			speciesID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("species id %q: %w", args[0], err)
			}
			out, err := res.FilterBySpecies(speciesID, l.resource, l.sortBy, l.order)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}),
	}
	l.bind(cmd)
	return cmd
}

func newReactionsCmd(a *app) *cobra.Command {
	var resource string
	cmd := &cobra.Command{
		Use:   "reactions TOKEN PATHWAY...",
		Short: "List the reactions found in pathways",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, ids []string) error {
			return writeJSON(cmd.OutOrStdout(), res.FoundReactions(ids, resource))
		}),
	}
	cmd.Flags().StringVar(&resource, "resource", "TOTAL", "resource to filter by")
	return cmd
}

func newPageCmd(a *app) *cobra.Command {
	var l listing
	cmd := &cobra.Command{
		Use:   "page TOKEN PATHWAY",
		Short: "Print the page a pathway is listed on, or -1",
		Args:  cobra.ExactArgs(2),
		RunE: a.withResult(func(cmd *cobra.Command, res *result.StoredResult, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), res.PageOf(args[0], l.sortBy, l.order, l.resource, l.pageSize))
			return err
		}),
	}
	l.bind(cmd)
	return cmd
}
