package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SpeciesNode identifies the species a hierarchy belongs to.
type SpeciesNode struct {
	ID    int64  `json:"dbId"`
	TaxID string `json:"taxId"`
	Name  string `json:"name"`
}

// Content holds static totals keyed by resource. The TOTAL entry counts
// across every resource.
type Content struct {
	Entities  map[Resource]int
	Reactions map[Resource]int
}

// NewContent returns empty totals.
func NewContent() Content {
	return Content{Entities: make(map[Resource]int), Reactions: make(map[Resource]int)}
}

// EntitiesTotal returns the entity denominator for a resource.
func (c Content) EntitiesTotal(r Resource) int { return c.Entities[r] }

// ReactionsTotal returns the reaction denominator for a resource.
func (c Content) ReactionsTotal(r Resource) int { return c.Reactions[r] }

// PathwayNode is one pathway in a species hierarchy. Nodes are built by the
// snapshot loader and never mutated afterwards.
type PathwayNode struct {
	StID       string
	DBID       int64
	Name       string
	Species    SpeciesNode
	HasDiagram bool
	LowerLevel bool
	Parent     *PathwayNode
	Children   []*PathwayNode
	Content    Content
}

// Is reports whether id designates this pathway by stable id or database id.
func (p *PathwayNode) Is(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if strings.EqualFold(id, p.StID) {
		return true
	}
	dbID, err := strconv.ParseInt(id, 10, 64)
	return err == nil && dbID == p.DBID
}

// Depth is the distance from the hierarchy root, roots having depth zero.
func (p *PathwayNode) Depth() int {
	d := 0
	for n := p.Parent; n != nil; n = n.Parent {
		d++
	}
	return d
}

// PathwayHierarchy is the pathway tree of one species. Content holds the
// species universe: distinct identifiers and reactions across all its pathways.
type PathwayHierarchy struct {
	Species SpeciesNode
	Roots   []*PathwayNode
	Content Content

	byID map[int64]*PathwayNode
}

// NewPathwayHierarchy returns an empty hierarchy for species.
func NewPathwayHierarchy(species SpeciesNode) *PathwayHierarchy {
	return &PathwayHierarchy{
		Species: species,
		Content: NewContent(),
		byID:    make(map[int64]*PathwayNode),
	}
}

// Attach adds node under parent, or as a root when parent is nil.
func (h *PathwayHierarchy) Attach(parent, node *PathwayNode) error {
	if node == nil {
		return fmt.Errorf("pathway node is nil")
	}
	if _, exists := h.byID[node.DBID]; exists {
		return fmt.Errorf("pathway %d already attached to species %s", node.DBID, h.Species.Name)
	}
	if parent != nil {
		if h.byID[parent.DBID] != parent {
			return fmt.Errorf("parent pathway %d is not part of species %s", parent.DBID, h.Species.Name)
		}
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	} else {
		node.Parent = nil
		h.Roots = append(h.Roots, node)
	}
	if node.Content.Entities == nil || node.Content.Reactions == nil {
		node.Content = NewContent()
	}
	node.Species = h.Species
	h.byID[node.DBID] = node
	return nil
}

// Find returns the pathway with the given database id.
func (h *PathwayHierarchy) Find(dbID int64) (*PathwayNode, bool) {
	n, ok := h.byID[dbID]
	return n, ok
}

// Len is the number of pathways in the hierarchy.
func (h *PathwayHierarchy) Len() int { return len(h.byID) }

// Walk visits the hierarchy in pre-order. Returning false from fn skips the
// node's children.
func (h *PathwayHierarchy) Walk(fn func(*PathwayNode) bool) {
	var visit func(*PathwayNode)
	visit = func(n *PathwayNode) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range h.Roots {
		visit(r)
	}
}

// Pathways lists every pathway in pre-order.
func (h *PathwayHierarchy) Pathways() []*PathwayNode {
	out := make([]*PathwayNode, 0, len(h.byID))
	h.Walk(func(n *PathwayNode) bool {
		out = append(out, n)
		return true
	})
	return out
}
