package domain

import (
	"context"
	"testing"
)

func TestArenaPropagatesHitsToAncestors(t *testing.T) {
	f := newFixture(t)
	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})

	if !arena.AddEntityHit(NewAnalysisIdentifier("A", 1, 2), f.e1) {
		t.Fatalf("expected hit to attach")
	}
	arena.AddEntityHit(NewAnalysisIdentifier("B", 10), f.e3)
	arena.AddEntityHit(NewAnalysisIdentifier("C", 3, 4), f.e1)
	arena.AddEntityHit(NewAnalysisIdentifier("A", 1, 2), f.e1)

	hits := arena.HitPathways()
	if len(hits) != 2 || hits[0].Node() != f.root || hits[1].Node() != f.left {
		t.Fatalf("unexpected hit pathways %v", hits)
	}
	root, _ := arena.Pathway(1)
	if n := len(root.EntityHits()); n != 3 {
		t.Fatalf("expected 3 distinct entity hits, got %d", n)
	}
	if got := root.Resources(); len(got) != 2 || got[0] != f.uniprot || got[1] != f.chebi {
		t.Fatalf("resources in first-hit order, got %v", got)
	}
	if rx := root.Reactions(Total); len(rx) != 2 || rx[0].DBID != 201 || rx[1].DBID != 203 {
		t.Fatalf("unexpected reactions %v", rx)
	}
	right, _ := arena.Pathway(3)
	if right.Hit() || right.HitFor(f.uniprot) {
		t.Fatalf("right branch must stay untouched")
	}
}

func TestArenaStatistics(t *testing.T) {
	f := newFixture(t)
	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	arena.AddEntityHit(NewAnalysisIdentifier("A"), f.e1)
	if err := arena.ComputeStatistics(context.Background()); err != nil {
		t.Fatalf("compute: %v", err)
	}
	root, _ := arena.Pathway(1)
	left, _ := arena.Pathway(2)

	rs := root.Statistics(f.uniprot)
	if rs.EntitiesFound != 1 || rs.EntitiesTotal != 10 || !approx(rs.EntitiesRatio, 0.1) {
		t.Fatalf("unexpected root stats %+v", rs)
	}
	if !approx(rs.EntitiesPValue, 0.1) || !approx(rs.EntitiesFDR, 0.1) {
		t.Fatalf("unexpected root significance %+v", rs)
	}
	ls := left.Statistics(f.uniprot)
	if !approx(ls.EntitiesPValue, 0.04) || !approx(ls.EntitiesFDR, 0.08) {
		t.Fatalf("unexpected left significance %+v", ls)
	}
	if rs.ReactionsFound != 1 || rs.ReactionsTotal != 8 {
		t.Fatalf("unexpected reaction counts %+v", rs)
	}
	missing := root.Statistics(f.chebi)
	if missing.EntitiesFound != 0 || missing.EntitiesPValue != 1 || missing.EntitiesTotal != 2 {
		t.Fatalf("unexpected stats for resource without hits %+v", missing)
	}
	for _, d := range arena.HitPathways() {
		for _, r := range append(d.Resources(), Total) {
			s := d.Statistics(r)
			if s.EntitiesFound > s.EntitiesTotal || s.EntitiesRatio < 0 || s.EntitiesRatio > 1 {
				t.Fatalf("found exceeds total for %s/%s: %+v", d.Node().StID, r, s)
			}
		}
	}
}

func TestArenaComputeStatisticsHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	arena.AddEntityHit(NewAnalysisIdentifier("A"), f.e1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := arena.ComputeStatistics(ctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestArenasAreIndependent(t *testing.T) {
	f := newFixture(t)
	first := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	second := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	first.AddEntityHit(NewAnalysisIdentifier("A"), f.e1)
	if len(second.HitPathways()) != 0 {
		t.Fatalf("hits leaked into another arena")
	}
	if f.root.Content.EntitiesTotal(f.uniprot) != 10 {
		t.Fatalf("static content must not change")
	}
}

func TestExpressionValuesAvg(t *testing.T) {
	f := newFixture(t)
	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	arena.AddEntityHit(NewAnalysisIdentifier("A", 1, 2), f.e1)
	arena.AddEntityHit(NewAnalysisIdentifier("B", 10), f.e3)
	arena.AddEntityHit(NewAnalysisIdentifier("C", 3, 4), f.e1)
	root, _ := arena.Pathway(1)

	u := root.ExpressionValuesAvg(f.uniprot)
	if len(u) != 2 || !approx(u[0], 2) || !approx(u[1], 3) {
		t.Fatalf("unexpected uniprot averages %v", u)
	}
	all := root.ExpressionValuesAvg(Total)
	if len(all) != 2 || !approx(all[0], 14.0/3.0) || !approx(all[1], 3) {
		t.Fatalf("unexpected total averages %v", all)
	}
	right, _ := arena.Pathway(3)
	if right.ExpressionValuesAvg(Total) != nil {
		t.Fatalf("expected nil averages without hits")
	}
}

func TestInteractorHitsAttributedToTargetResource(t *testing.T) {
	f := newFixture(t)
	interactor := NewInteractorNode("q99999")
	interactor.AddTarget(f.e2.Identifier, f.e2.Pathways)
	interactor.AddTarget(f.e2.Identifier, f.e2.Pathways)

	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	if !arena.AddInteractorHit(NewAnalysisIdentifier("D"), interactor) {
		t.Fatalf("expected interactor hit")
	}
	if err := arena.ComputeStatistics(context.Background()); err != nil {
		t.Fatalf("compute: %v", err)
	}
	right, _ := arena.Pathway(3)
	if !right.HitFor(f.uniprot) || right.HitFor(f.chebi) {
		t.Fatalf("interactor hit must be attributed to UNIPROT")
	}
	hits := right.InteractorHits()
	if len(hits) != 1 || hits[0].Accession != "Q99999" {
		t.Fatalf("unexpected interactor hits %v", hits)
	}
	s := right.Statistics(f.uniprot)
	if s.InteractorsFound != 1 || s.EntitiesFound != 0 || s.EntitiesPValue != 1 {
		t.Fatalf("unexpected interactor statistics %+v", s)
	}
}

func TestInteractorHitsOnlyCreditEachTargetsPathways(t *testing.T) {
	f := newFixture(t)
	interactor := NewInteractorNode("q88888")
	interactor.AddTarget(f.e2.Identifier, f.e2.Pathways)
	interactor.AddTarget(f.e3.Identifier, f.e3.Pathways)
	if ids := interactor.PathwayIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected pathway union %v", ids)
	}

	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	if !arena.AddInteractorHit(NewAnalysisIdentifier("E"), interactor) {
		t.Fatalf("expected interactor hit")
	}
	right, _ := arena.Pathway(3)
	if !right.HitFor(f.uniprot) || right.HitFor(f.chebi) {
		t.Fatalf("right must only carry the UNIPROT target, resources=%v", right.Resources())
	}
	for _, hit := range right.InteractorHits() {
		if hit.Main != f.e2.Identifier {
			t.Fatalf("right credited with %s", hit.Main)
		}
	}
	if rx := right.Reactions(f.uniprot); len(rx) != 1 || rx[0].DBID != 202 {
		t.Fatalf("unexpected right reactions %v", rx)
	}
	root, _ := arena.Pathway(1)
	if got := root.Resources(); len(got) != 2 || got[0] != f.uniprot || got[1] != f.chebi {
		t.Fatalf("root resources %v", got)
	}
	if rx := root.Reactions(f.chebi); len(rx) != 1 || rx[0].DBID != 203 {
		t.Fatalf("chebi reactions must come from its own target, got %v", rx)
	}
	left, _ := arena.Pathway(2)
	if left.Hit() {
		t.Fatalf("left has no target and must stay untouched")
	}
}

func TestComputeStatisticsSucceedsWithHits(t *testing.T) {
	f := newFixture(t)
	arena := NewHierarchiesData([]*PathwayHierarchy{f.hierarchy})
	arena.AddEntityHit(NewAnalysisIdentifier("A"), f.e1)
	arena.AddEntityHit(NewAnalysisIdentifier("B"), f.e3)
	if err := arena.ComputeStatistics(context.Background()); err != nil {
		t.Fatalf("compute with a live context: %v", err)
	}
	for _, d := range arena.HitPathways() {
		for _, r := range append(d.Resources(), Total) {
			s := d.Statistics(r)
			if s.EntitiesPValue <= 0 || s.EntitiesPValue > 1 || s.EntitiesFDR < s.EntitiesPValue || s.EntitiesFDR > 1 {
				t.Fatalf("unexpected significance for %s/%s: %+v", d.Node().StID, r, s)
			}
		}
	}
}

func TestAttachRejectsDuplicatesAndForeignParents(t *testing.T) {
	f := newFixture(t)
	if err := f.hierarchy.Attach(nil, &PathwayNode{DBID: 2}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	other := NewPathwayHierarchy(SpeciesNode{ID: 1, Name: "Mus musculus"})
	if err := other.Attach(f.root, &PathwayNode{DBID: 9}); err == nil {
		t.Fatalf("expected foreign parent error")
	}
	if !f.left.Is("r-hsa-2") || !f.left.Is("2") || f.left.Is("3") || f.left.Is("") {
		t.Fatalf("unexpected Is matching")
	}
	if f.left.Depth() != 1 || f.root.Depth() != 0 {
		t.Fatalf("unexpected depth")
	}
	if got := len(f.hierarchy.Pathways()); got != 3 {
		t.Fatalf("expected 3 pathways, got %d", got)
	}
}
