package result

import (
	"context"
	"testing"

	"pathwaycore/internal/analysistest"
	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

var columns = []string{"t0", "t1"}

// standardInput hits every human pathway and carries two identifiers that
// resolve nowhere.
func standardInput() []domain.AnalysisIdentifier {
	return []domain.AnalysisIdentifier{
		domain.NewAnalysisIdentifier("P10001", 1, 4),
		domain.NewAnalysisIdentifier("P10002", 3, 2),
		domain.NewAnalysisIdentifier("Q20001", 5, 6),
		domain.NewAnalysisIdentifier("15377", 2, 8),
		domain.NewAnalysisIdentifier("X00000", 9, 9),
		domain.NewAnalysisIdentifier("Y11111", 0, 0),
	}
}

// build resolves ids against the fixture directly on an arena and freezes the result.
func build(t *testing.T, summary analysisapi.AnalysisSummary, exp []string, ids ...domain.AnalysisIdentifier) *StoredResult {
	t.Helper()
	d := analysistest.Data(t)
	arena := domain.NewHierarchiesData(d.Hierarchies)
	var notFound []domain.AnalysisIdentifier
	for _, id := range ids {
		found := false
		for _, nodes := range d.Entities.Get(id.ID) {
			for _, n := range nodes {
				if arena.AddEntityHit(id, n) {
					found = true
				}
			}
		}
		if summary.Interactors {
			for _, nodes := range d.Interactors.Get(id.ID) {
				for _, n := range nodes {
					if arena.AddInteractorHit(id, n) {
						found = true
					}
				}
			}
		}
		if !found {
			notFound = append(notFound, id)
		}
	}
	if err := arena.ComputeStatistics(context.Background()); err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	b := NewBuilder(summary, []string{"line 3 ignored"}, notFound, analysisapi.ExpressionSummary{ColumnNames: exp})
	b.SetHitPathways(arena.HitPathwaysForSpecies(analysistest.HumanID))
	return b.Finalize()
}

func standardResult(t *testing.T) *StoredResult {
	t.Helper()
	summary := analysisapi.AnalysisSummary{Token: "tok-1", Type: analysisapi.TypeExpression}
	return build(t, summary, columns, standardInput()...)
}

func dbIDs(rows []analysisapi.PathwaySummary) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DBID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
