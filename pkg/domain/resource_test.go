package domain

import "testing"

func TestLookupResource(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
		main bool
	}{
		{"UNIPROT", true, true},
		{" chebi ", true, true},
		{"total", true, false},
		{"INTACT", true, false},
		{"NOPE", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		r, ok := LookupResource(tc.name)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.name, ok, tc.ok)
		}
		if ok && r.IsMain() != tc.main {
			t.Fatalf("%q: main=%v want %v", tc.name, r.IsMain(), tc.main)
		}
	}
}

func TestRegisterResourceIsIdempotent(t *testing.T) {
	first := RegisterResource("test_source", KindPlain)
	second := RegisterResource("TEST_SOURCE", KindMain)
	if first != second {
		t.Fatalf("expected existing registration, got %v and %v", first, second)
	}
	if first.Name != "TEST_SOURCE" || first.IsMain() {
		t.Fatalf("unexpected resource %+v", first)
	}
	if agg := RegisterResource("agg_source", KindAggregate); agg.IsTotal() {
		t.Fatalf("only TOTAL may be aggregate")
	}
	for _, r := range Resources() {
		if r.IsTotal() {
			t.Fatalf("Resources must not list TOTAL")
		}
	}
	if !IsTotalName(" Total ") {
		t.Fatalf("expected TOTAL name match")
	}
}
