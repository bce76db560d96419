package domain

import "testing"

func TestIdentifiersMapAliasesResolveToSameNode(t *testing.T) {
	f := newFixture(t)
	m := NewIdentifiersMap[*EntityNode]()
	for _, alias := range []string{"P00001", " p00001 ", "9606.P00001", "P00001-1"} {
		m.Add(alias, f.uniprot, f.e1)
	}
	for _, alias := range []string{"p00001", "9606.p00001", "P00001-1"} {
		nodes := m.Resolve(alias, f.uniprot)
		if len(nodes) != 1 || nodes[0] != f.e1 {
			t.Fatalf("alias %q resolved to %v", alias, nodes)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 distinct identifiers, got %d", m.Len())
	}
	if m.Associations() != 3 {
		t.Fatalf("expected duplicate add to be a no-op, got %d associations", m.Associations())
	}
}

func TestIdentifiersMapPartitionsByResource(t *testing.T) {
	f := newFixture(t)
	m := NewIdentifiersMap[*EntityNode]()
	m.Add("X1", f.uniprot, f.e1)
	m.Add("X1", f.chebi, f.e3)
	m.Add("X1", f.uniprot, f.e2)

	got := m.Get("x1")
	if len(got) != 2 {
		t.Fatalf("expected two resources, got %d", len(got))
	}
	if u := got[f.uniprot]; len(u) != 2 || u[0] != f.e1 || u[1] != f.e2 {
		t.Fatalf("unexpected uniprot nodes %v", u)
	}
	got[f.uniprot] = nil
	if len(m.Resolve("X1", f.uniprot)) != 2 {
		t.Fatalf("mutating Get result must not affect the index")
	}
	if nodes := m.Resolve("X1", Total); nodes != nil {
		t.Fatalf("expected no TOTAL nodes, got %v", nodes)
	}
}

func TestIdentifiersMapMissingAndEmpty(t *testing.T) {
	m := NewIdentifiersMap[*EntityNode]()
	m.Add("   ", Total, nil)
	if m.Len() != 0 {
		t.Fatalf("blank identifiers must be ignored")
	}
	if got := m.Get("missing"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", got)
	}
	if m.Contains("missing") {
		t.Fatalf("unexpected identifier")
	}
}

func TestIdentifiersMapRangeOrder(t *testing.T) {
	f := newFixture(t)
	m := NewIdentifiersMap[*EntityNode]()
	m.Add("B", f.uniprot, f.e2)
	m.Add("A", f.uniprot, f.e1)
	m.Add("A", f.chebi, f.e3)
	var seen []string
	m.Range(func(id string, r Resource, nodes []*EntityNode) bool {
		seen = append(seen, id+"/"+r.Name)
		return true
	})
	want := []string{"A/CHEBI", "A/UNIPROT", "B/UNIPROT"}
	if len(seen) != len(want) {
		t.Fatalf("range visited %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("range order %v, want %v", seen, want)
		}
	}
	count := 0
	m.Range(func(string, Resource, []*EntityNode) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("range must stop when fn returns false")
	}
}
