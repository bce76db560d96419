package domain

import "testing"

// fixture is a three-pathway human hierarchy:
//
//	R-HSA-1 root   UNIPROT 10 (8 reactions), CHEBI 2
//	  R-HSA-2 left   UNIPROT 4, CHEBI 1; e1 with reaction 201
//	  R-HSA-3 right  UNIPROT 5; e2 with reaction 202
//
// e3 (CHEBI) takes part in the root directly with reaction 203. The species
// universe counts 100 UNIPROT and 20 CHEBI identifiers.
type fixture struct {
	uniprot, chebi    Resource
	hierarchy         *PathwayHierarchy
	root, left, right *PathwayNode
	e1, e2, e3        *EntityNode
}

func content(entities, reactions map[Resource]int) Content {
	c := NewContent()
	for r, n := range entities {
		c.Entities[r] = n
		c.Entities[Total] += n
	}
	for r, n := range reactions {
		c.Reactions[r] = n
		c.Reactions[Total] += n
	}
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uniprot, ok := LookupResource("UNIPROT")
	if !ok {
		t.Fatalf("UNIPROT not registered")
	}
	chebi, ok := LookupResource("CHEBI")
	if !ok {
		t.Fatalf("CHEBI not registered")
	}
	species := SpeciesNode{ID: 48887, TaxID: "9606", Name: "Homo sapiens"}
	f := &fixture{uniprot: uniprot, chebi: chebi, hierarchy: NewPathwayHierarchy(species)}
	f.hierarchy.Content = content(
		map[Resource]int{uniprot: 100, chebi: 20},
		map[Resource]int{uniprot: 40, chebi: 10},
	)

	f.root = &PathwayNode{StID: "R-HSA-1", DBID: 1, Name: "Metabolism", Content: content(
		map[Resource]int{uniprot: 10, chebi: 2},
		map[Resource]int{uniprot: 8, chebi: 2},
	)}
	f.left = &PathwayNode{StID: "R-HSA-2", DBID: 2, Name: "Glycolysis", LowerLevel: true, Content: content(
		map[Resource]int{uniprot: 4, chebi: 1},
		map[Resource]int{uniprot: 3, chebi: 1},
	)}
	f.right = &PathwayNode{StID: "R-HSA-3", DBID: 3, Name: "Gluconeogenesis", LowerLevel: true, Content: content(
		map[Resource]int{uniprot: 5},
		map[Resource]int{uniprot: 4},
	)}
	for _, step := range []struct{ parent, node *PathwayNode }{
		{nil, f.root}, {f.root, f.left}, {f.root, f.right},
	} {
		if err := f.hierarchy.Attach(step.parent, step.node); err != nil {
			t.Fatalf("attach %s: %v", step.node.StID, err)
		}
	}

	f.e1 = NewEntityNode(101, species, NewMainIdentifier(uniprot, "P00001"))
	f.e1.AddParticipation(2, AnalysisReaction{DBID: 201, StID: "R-HSA-201"})
	f.e2 = NewEntityNode(102, species, NewMainIdentifier(uniprot, "P00002"))
	f.e2.AddParticipation(3, AnalysisReaction{DBID: 202, StID: "R-HSA-202"})
	f.e3 = NewEntityNode(103, species, NewMainIdentifier(chebi, "15377"))
	f.e3.AddParticipation(1, AnalysisReaction{DBID: 203, StID: "R-HSA-203"})
	return f
}
