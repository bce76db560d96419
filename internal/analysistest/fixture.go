// Package analysistest builds a small, fully wired snapshot shared by the
// tests of the loader, analysis, result and service packages.
//
// Human (Homo sapiens):
//
//	R-HSA-100 Metabolism
//	  R-HSA-110 Glycolysis       P10001..P10010 (UNIPROT), one reaction each
//	  R-HSA-120 Gluconeogenesis  Q20001..Q20005 (UNIPROT), one reaction each
//	R-HSA-200 Signal Transduction
//	  R-HSA-210 Signaling by Insulin  CHEBI 15377, 15422; ENSEMBL ENSG00000000001; UNIPROT P30001
//
// Mouse (Mus musculus):
//
//	R-MMU-110 Glycolysis  Q91001 (ortholog of P10001), Q91002 (ortholog of P10002), Q91003
//
// The interactor Q99001 (INTACT, alias Q99001-PRO) binds Q20001.
// P10001 carries the aliases GAPDH and P10001-1.
package analysistest

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/snapshot"
	"pathwaycore/pkg/domain"
)

// Species and pathway identifiers of the fixture.
const (
	HumanID     int64 = 48887
	HumanTaxID        = "9606"
	MouseID     int64 = 48892
	MouseTaxID        = "10090"
	Metabolism  int64 = 100
	Glycolysis  int64 = 110
	Gluconeo    int64 = 120
	Signaling   int64 = 200
	Insulin     int64 = 210
	MouseGlyco  int64 = 1110
	Interactor        = "Q99001"
	SnapshotKey       = "snapshots/fixture.bin.gz"
)

// CreatedAt is the build time recorded in the fixture snapshot.
var CreatedAt = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Resource looks up a registered resource, failing the test when absent.
func Resource(tb testing.TB, name string) domain.Resource {
	tb.Helper()
	r, ok := domain.LookupResource(name)
	if !ok {
		tb.Fatalf("resource %s not registered", name)
	}
	return r
}

// GlycolysisIDs are the ten UNIPROT accessions of R-HSA-110.
func GlycolysisIDs() []string { return accessions("P1", 10) }

// GluconeogenesisIDs are the five UNIPROT accessions of R-HSA-120.
func GluconeogenesisIDs() []string { return accessions("Q2", 5) }

func accessions(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s%04d", prefix, i))
	}
	return out
}

// Data builds a fresh copy of the fixture snapshot.
func Data(tb testing.TB) *snapshot.Data {
	tb.Helper()
	d, err := build()
	if err != nil {
		tb.Fatalf("build fixture: %v", err)
	}
	return d
}

// Encoded returns the fixture in its serialized form.
func Encoded(tb testing.TB) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, Data(tb)); err != nil {
		tb.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// Store returns an in-memory blob store holding the encoded fixture under SnapshotKey.
func Store(tb testing.TB) blob.Store {
	tb.Helper()
	store := blob.NewMemory()
	if _, err := store.Put(context.Background(), SnapshotKey, bytes.NewReader(Encoded(tb)), blob.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		tb.Fatalf("store fixture: %v", err)
	}
	return store
}

func build() (*snapshot.Data, error) {
	uniprot, _ := domain.LookupResource("UNIPROT")
	chebi, _ := domain.LookupResource("CHEBI")
	ensembl, _ := domain.LookupResource("ENSEMBL")
	intact, _ := domain.LookupResource("INTACT")

	b := snapshot.NewBuilder()
	if _, err := b.AddSpecies(domain.SpeciesNode{ID: HumanID, TaxID: HumanTaxID, Name: "Homo sapiens"}); err != nil {
		return nil, err
	}
	if _, err := b.AddSpecies(domain.SpeciesNode{ID: MouseID, TaxID: MouseTaxID, Name: "Mus musculus"}); err != nil {
		return nil, err
	}
	pathways := []struct {
		species, parent int64
		node            domain.PathwayNode
	}{
		{HumanID, 0, domain.PathwayNode{StID: "R-HSA-100", DBID: Metabolism, Name: "Metabolism", HasDiagram: true}},
		{HumanID, Metabolism, domain.PathwayNode{StID: "R-HSA-110", DBID: Glycolysis, Name: "Glycolysis", HasDiagram: true, LowerLevel: true}},
		{HumanID, Metabolism, domain.PathwayNode{StID: "R-HSA-120", DBID: Gluconeo, Name: "Gluconeogenesis", LowerLevel: true}},
		{HumanID, 0, domain.PathwayNode{StID: "R-HSA-200", DBID: Signaling, Name: "Signal Transduction", HasDiagram: true}},
		{HumanID, Signaling, domain.PathwayNode{StID: "R-HSA-210", DBID: Insulin, Name: "Signaling by Insulin", LowerLevel: true}},
		{MouseID, 0, domain.PathwayNode{StID: "R-MMU-110", DBID: MouseGlyco, Name: "Glycolysis", HasDiagram: true, LowerLevel: true}},
	}
	for _, p := range pathways {
		if _, err := b.AddPathway(p.species, p.parent, p.node); err != nil {
			return nil, err
		}
	}

	add := func(id, species int64, main domain.MainIdentifier, pathway int64, reactions ...int64) (*domain.EntityNode, error) {
		e, err := b.AddEntity(id, species, main)
		if err != nil {
			return nil, err
		}
		rx := make([]domain.AnalysisReaction, 0, len(reactions))
		for _, r := range reactions {
			rx = append(rx, reaction(species, r))
		}
		return e, b.AddParticipation(e, pathway, rx...)
	}

	human := make(map[string]*domain.EntityNode)
	for i, acc := range GlycolysisIDs() {
		e, err := add(int64(1001+i), HumanID, domain.NewMainIdentifier(uniprot, acc), Glycolysis, int64(5001+i))
		if err != nil {
			return nil, err
		}
		human[acc] = e
	}
	for i, acc := range GluconeogenesisIDs() {
		e, err := add(int64(2001+i), HumanID, domain.NewMainIdentifier(uniprot, acc), Gluconeo, int64(6001+i))
		if err != nil {
			return nil, err
		}
		human[acc] = e
	}
	insulin := []struct {
		id        int64
		main      domain.MainIdentifier
		reactions []int64
	}{
		{3001, domain.NewMainIdentifier(chebi, "15377"), []int64{7001}},
		{3002, domain.NewMainIdentifier(chebi, "15422"), []int64{7002}},
		{4001, domain.NewMainIdentifier(ensembl, "ENSG00000000001"), []int64{7001}},
		{1101, domain.NewMainIdentifier(uniprot, "P30001"), []int64{7002}},
	}
	for _, e := range insulin {
		if _, err := add(e.id, HumanID, e.main, Insulin, e.reactions...); err != nil {
			return nil, err
		}
	}
	b.AddAlias(human["P10001"], "GAPDH")
	b.AddAlias(human["P10001"], "P10001-1")

	mouse := []struct {
		id       int64
		acc      string
		reaction int64
		ortholog string
	}{
		{9001, "Q91001", 8001, "P10001"},
		{9002, "Q91002", 8002, "P10002"},
		{9003, "Q91003", 8003, ""},
	}
	for _, m := range mouse {
		e, err := add(m.id, MouseID, domain.NewMainIdentifier(uniprot, m.acc), MouseGlyco, m.reaction)
		if err != nil {
			return nil, err
		}
		if m.ortholog != "" {
			if err := b.AddOrtholog(e, human[m.ortholog]); err != nil {
				return nil, err
			}
		}
	}

	interactors := domain.NewIdentifiersMap[*domain.InteractorNode]()
	target := human["Q20001"]
	in := domain.NewInteractorNode(Interactor)
	in.AddTarget(target.Identifier, target.Pathways)
	interactors.Add(Interactor, intact, in)
	interactors.Add("Q99001-PRO", intact, in)
	b.SetInteractors(interactors)

	return b.Build(CreatedAt)
}

func reaction(species, dbID int64) domain.AnalysisReaction {
	prefix := "R-HSA-"
	if species == MouseID {
		prefix = "R-MMU-"
	}
	return domain.AnalysisReaction{DBID: dbID, StID: fmt.Sprintf("%s%d", prefix, dbID)}
}
