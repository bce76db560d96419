// Package result holds finalized analysis results and answers the paged,
// sorted and filtered queries served for a token. A result is assembled by
// a Builder during analysis and is immutable once finalized; every query
// works on its own copy of the pathway list.
package result

import (
	"sort"

	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

// Builder assembles a result. It is used by a single analysis and is not
// safe for concurrent use.
type Builder struct {
	summary    analysisapi.AnalysisSummary
	expression analysisapi.ExpressionSummary
	warnings   []string
	notFound   []analysisapi.IdentifierSummary
	pathways   []*PathwayResult
}

// NewBuilder starts a result with its summary, input warnings, unresolved
// identifiers (kept in input order) and expression summary.
func NewBuilder(summary analysisapi.AnalysisSummary, warnings []string, notFound []domain.AnalysisIdentifier, expression analysisapi.ExpressionSummary) *Builder {
	b := &Builder{
		summary:  summary,
		warnings: cloneStrings(warnings),
		notFound: make([]analysisapi.IdentifierSummary, 0, len(notFound)),
	}
	b.expression = analysisapi.ExpressionSummary{
		ColumnNames: cloneStrings(expression.ColumnNames),
		Min:         cloneFloat(expression.Min),
		Max:         cloneFloat(expression.Max),
	}
	for _, id := range notFound {
		b.notFound = append(b.notFound, analysisapi.IdentifierSummary{ID: id.ID, Exp: cloneFloats(id.Exp)})
	}
	return b
}

// SetHitPathways freezes the hit pathways of the analysis arena. Statistics
// must already be computed.
func (b *Builder) SetHitPathways(hits []*domain.PathwayNodeData) {
	b.pathways = make([]*PathwayResult, 0, len(hits))
	for _, d := range hits {
		if d == nil || !d.Hit() {
			continue
		}
		b.pathways = append(b.pathways, freezePathway(d))
	}
}

// Finalize returns the immutable result, pathways ordered by p-value.
func (b *Builder) Finalize() *StoredResult {
	pathways := append([]*PathwayResult(nil), b.pathways...)
	sortPathways(pathways, DefaultSortKey, Ascending, domain.TotalName)
	return newStoredResult(b.summary, b.expression, b.warnings, b.notFound, pathways, resourceSummary(pathways))
}

// resourceSummary counts hit pathways per resource: TOTAL first, then by
// descending count with ties kept in encounter order.
func resourceSummary(pathways []*PathwayResult) []analysisapi.ResourceSummary {
	counts := make(map[string]int)
	var order []string
	for _, p := range pathways {
		for _, r := range p.Resources {
			if !p.HitFor(r) {
				continue
			}
			if _, seen := counts[r]; !seen {
				order = append(order, r)
			}
			counts[r]++
		}
	}
	out := make([]analysisapi.ResourceSummary, 0, len(order))
	for _, r := range order {
		out = append(out, analysisapi.ResourceSummary{Resource: r, Pathways: counts[r]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pathways > out[j].Pathways })
	return append([]analysisapi.ResourceSummary{{Resource: domain.TotalName, Pathways: len(pathways)}}, out...)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
