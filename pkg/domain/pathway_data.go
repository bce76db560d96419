package domain

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// EntityHit is a submitted identifier resolved to an entity's main identifier.
type EntityHit struct {
	Identifier string
	Main       MainIdentifier
	Exp        []float64
}

// InteractorHit is a submitted identifier resolved to an interactor that binds Main.
type InteractorHit struct {
	Identifier string
	Accession  string
	Main       MainIdentifier
	Exp        []float64
}

// Statistics are the enrichment figures of one pathway for one resource.
type Statistics struct {
	Resource         Resource
	EntitiesFound    int
	EntitiesTotal    int
	InteractorsFound int
	ReactionsFound   int
	ReactionsTotal   int
	EntitiesRatio    float64
	EntitiesPValue   float64
	EntitiesFDR      float64
	ReactionsRatio   float64
}

type entityKey struct {
	identifier string
	main       MainIdentifier
}

type interactorKey struct {
	identifier string
	accession  string
	main       MainIdentifier
}

// PathwayNodeData is the analysis-scoped aggregate of one pathway. It
// references the static node read-only and owns everything it records.
type PathwayNodeData struct {
	node   *PathwayNode
	parent *PathwayNodeData

	entities    []EntityHit
	entitySeen  map[entityKey]struct{}
	interactors []InteractorHit
	interSeen   map[interactorKey]struct{}

	foundEntities    map[Resource]map[MainIdentifier]struct{}
	foundInteractors map[Resource]map[string]struct{}
	reactions        map[Resource]map[AnalysisReaction]struct{}
	resources        []Resource

	stats map[Resource]*Statistics
}

func newPathwayNodeData(node *PathwayNode, parent *PathwayNodeData) *PathwayNodeData {
	return &PathwayNodeData{
		node:             node,
		parent:           parent,
		entitySeen:       make(map[entityKey]struct{}),
		interSeen:        make(map[interactorKey]struct{}),
		foundEntities:    make(map[Resource]map[MainIdentifier]struct{}),
		foundInteractors: make(map[Resource]map[string]struct{}),
		reactions:        make(map[Resource]map[AnalysisReaction]struct{}),
		stats:            make(map[Resource]*Statistics),
	}
}

// Node returns the static pathway this aggregate describes.
func (d *PathwayNodeData) Node() *PathwayNode { return d.node }

// Hit reports whether anything was found in the pathway.
func (d *PathwayNodeData) Hit() bool { return len(d.entities) > 0 || len(d.interactors) > 0 }

// HitFor reports whether entities or interactors were found for r. TOTAL is
// equivalent to Hit.
func (d *PathwayNodeData) HitFor(r Resource) bool {
	if r.IsTotal() {
		return d.Hit()
	}
	return len(d.foundEntities[r]) > 0 || len(d.foundInteractors[r]) > 0
}

// Resources lists the resources with hits in first-hit order.
func (d *PathwayNodeData) Resources() []Resource {
	return append([]Resource(nil), d.resources...)
}

// EntityHits returns the entity hits in the order they were recorded.
func (d *PathwayNodeData) EntityHits() []EntityHit {
	return append([]EntityHit(nil), d.entities...)
}

// InteractorHits returns the interactor hits in the order they were recorded.
func (d *PathwayNodeData) InteractorHits() []InteractorHit {
	return append([]InteractorHit(nil), d.interactors...)
}

// Reactions returns the found reactions for r ordered by database id.
func (d *PathwayNodeData) Reactions(r Resource) []AnalysisReaction {
	set := d.reactions[r]
	out := make([]AnalysisReaction, 0, len(set))
	for rx := range set {
		out = append(out, rx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DBID < out[j].DBID })
	return out
}

// Statistics returns the figures for r. Resources without hits report zero
// found with the static totals and a p-value of 1.
func (d *PathwayNodeData) Statistics(r Resource) Statistics {
	if s, ok := d.stats[r]; ok {
		return *s
	}
	s := d.baseStatistics(r)
	s.EntitiesPValue = 1
	s.EntitiesFDR = 1
	return s
}

// ExpressionValuesAvg averages the expression columns of the entity hits for
// r, or of every entity hit for TOTAL. It returns nil when no values exist.
func (d *PathwayNodeData) ExpressionValuesAvg(r Resource) []float64 {
	var sums []float64
	var counts []int
	for _, hit := range d.entities {
		if !r.IsTotal() && hit.Main.Resource != r {
			continue
		}
		for i, v := range hit.Exp {
			if i >= len(sums) {
				sums = append(sums, make([]float64, i-len(sums)+1)...)
				counts = append(counts, make([]int, i-len(counts)+1)...)
			}
			sums[i] += v
			counts[i]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
		}
	}
	return sums
}

func (d *PathwayNodeData) addEntity(hit EntityHit, reactions []AnalysisReaction) {
	key := entityKey{identifier: hit.Identifier, main: hit.Main}
	if _, seen := d.entitySeen[key]; !seen {
		d.entitySeen[key] = struct{}{}
		d.entities = append(d.entities, hit)
	}
	r := hit.Main.Resource
	d.touch(r)
	addMember(d.foundEntities, r, hit.Main)
	addMember(d.foundEntities, Total, hit.Main)
	d.addReactions(r, reactions)
}

func (d *PathwayNodeData) addInteractor(hit InteractorHit, reactions []AnalysisReaction) {
	key := interactorKey{identifier: hit.Identifier, accession: hit.Accession, main: hit.Main}
	if _, seen := d.interSeen[key]; !seen {
		d.interSeen[key] = struct{}{}
		d.interactors = append(d.interactors, hit)
	}
	r := hit.Main.Resource
	d.touch(r)
	addMember(d.foundInteractors, r, hit.Accession)
	addMember(d.foundInteractors, Total, hit.Accession)
	d.addReactions(r, reactions)
}

func (d *PathwayNodeData) addReactions(r Resource, reactions []AnalysisReaction) {
	for _, rx := range reactions {
		addMember(d.reactions, r, rx)
		addMember(d.reactions, Total, rx)
	}
}

func (d *PathwayNodeData) touch(r Resource) {
	for _, existing := range d.resources {
		if existing == r {
			return
		}
	}
	d.resources = append(d.resources, r)
}

func (d *PathwayNodeData) baseStatistics(r Resource) Statistics {
	s := Statistics{
		Resource:         r,
		EntitiesFound:    len(d.foundEntities[r]),
		EntitiesTotal:    d.node.Content.EntitiesTotal(r),
		InteractorsFound: len(d.foundInteractors[r]),
		ReactionsFound:   len(d.reactions[r]),
		ReactionsTotal:   d.node.Content.ReactionsTotal(r),
	}
	s.EntitiesFound = min(s.EntitiesFound, s.EntitiesTotal)
	s.ReactionsFound = min(s.ReactionsFound, s.ReactionsTotal)
	s.EntitiesRatio = ratio(s.EntitiesFound, s.EntitiesTotal)
	s.ReactionsRatio = ratio(s.ReactionsFound, s.ReactionsTotal)
	return s
}

func addMember[K comparable](m map[Resource]map[K]struct{}, r Resource, v K) {
	set, ok := m[r]
	if !ok {
		set = make(map[K]struct{})
		m[r] = set
	}
	set[v] = struct{}{}
}

// HierarchiesData is the private arena of one analysis: one PathwayNodeData
// per pathway of every species, writable only by the analysis that owns it.
type HierarchiesData struct {
	hierarchies []*PathwayHierarchy
	bySpecies   map[int64][]*PathwayNodeData
	byPathway   map[int64]*PathwayNodeData
	found       map[int64]map[Resource]map[MainIdentifier]struct{}
}

// NewHierarchiesData builds a fresh arena over the static hierarchies.
func NewHierarchiesData(hierarchies []*PathwayHierarchy) *HierarchiesData {
	h := &HierarchiesData{
		hierarchies: hierarchies,
		bySpecies:   make(map[int64][]*PathwayNodeData, len(hierarchies)),
		byPathway:   make(map[int64]*PathwayNodeData),
		found:       make(map[int64]map[Resource]map[MainIdentifier]struct{}),
	}
	for _, hierarchy := range hierarchies {
		list := make([]*PathwayNodeData, 0, hierarchy.Len())
		var visit func(n *PathwayNode, parent *PathwayNodeData)
		visit = func(n *PathwayNode, parent *PathwayNodeData) {
			d := newPathwayNodeData(n, parent)
			h.byPathway[n.DBID] = d
			list = append(list, d)
			for _, c := range n.Children {
				visit(c, d)
			}
		}
		for _, root := range hierarchy.Roots {
			visit(root, nil)
		}
		h.bySpecies[hierarchy.Species.ID] = list
	}
	return h
}

// Hierarchies returns the static hierarchies the arena was built over.
func (h *HierarchiesData) Hierarchies() []*PathwayHierarchy {
	return append([]*PathwayHierarchy(nil), h.hierarchies...)
}

// Pathway returns the aggregate of a pathway.
func (h *HierarchiesData) Pathway(dbID int64) (*PathwayNodeData, bool) {
	d, ok := h.byPathway[dbID]
	return d, ok
}

// AddEntityHit records that identifier resolved to node, attaching the hit to
// every pathway the node takes part in and to all of their ancestors.
// It reports whether any pathway of the arena received the hit.
func (h *HierarchiesData) AddEntityHit(identifier AnalysisIdentifier, node *EntityNode) bool {
	if node == nil {
		return false
	}
	hit := EntityHit{Identifier: identifier.ID, Main: node.Identifier, Exp: identifier.Exp}
	attached := false
	for _, pathwayID := range node.PathwayIDs() {
		d, ok := h.byPathway[pathwayID]
		if !ok {
			continue
		}
		attached = true
		reactions := node.Pathways[pathwayID]
		for n := d; n != nil; n = n.parent {
			n.addEntity(hit, reactions)
		}
		h.markFound(d.node.Species.ID, node.Identifier)
	}
	return attached
}

// AddInteractorHit records that identifier resolved to an interactor. Each
// bound identifier is credited only in the pathways it takes part in, under
// its own resource.
func (h *HierarchiesData) AddInteractorHit(identifier AnalysisIdentifier, node *InteractorNode) bool {
	if node == nil {
		return false
	}
	attached := false
	for _, main := range node.InteractsWith {
		hit := InteractorHit{Identifier: identifier.ID, Accession: node.Accession, Main: main, Exp: identifier.Exp}
		for _, pathwayID := range node.TargetPathwayIDs(main) {
			d, ok := h.byPathway[pathwayID]
			if !ok {
				continue
			}
			attached = true
			reactions := node.Targets[main][pathwayID]
			for n := d; n != nil; n = n.parent {
				n.addInteractor(hit, reactions)
			}
		}
	}
	return attached
}

func (h *HierarchiesData) markFound(species int64, main MainIdentifier) {
	byResource, ok := h.found[species]
	if !ok {
		byResource = make(map[Resource]map[MainIdentifier]struct{})
		h.found[species] = byResource
	}
	addMember(byResource, main.Resource, main)
	addMember(byResource, Total, main)
}

// ComputeStatistics derives ratios and p-values for every hit pathway, one
// goroutine per species, then adjusts p-values per resource across the
// whole arena with Benjamini-Hochberg.
func (h *HierarchiesData) ComputeStatistics(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, hierarchy := range h.hierarchies {
		g.Go(func() error {
			return h.computeSpecies(gctx, hierarchy)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return h.adjust(ctx)
}

func (h *HierarchiesData) computeSpecies(ctx context.Context, hierarchy *PathwayHierarchy) error {
	found := h.found[hierarchy.Species.ID]
	for _, d := range h.bySpecies[hierarchy.Species.ID] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Hit() {
			continue
		}
		for _, r := range append(d.Resources(), Total) {
			s := d.baseStatistics(r)
			s.EntitiesPValue = HypergeometricTail(
				hierarchy.Content.EntitiesTotal(r),
				s.EntitiesTotal,
				len(found[r]),
				s.EntitiesFound,
			)
			s.EntitiesFDR = s.EntitiesPValue
			d.stats[r] = &s
		}
	}
	return nil
}

func (h *HierarchiesData) adjust(ctx context.Context) error {
	groups := make(map[Resource][]*Statistics)
	var order []Resource
	for _, hierarchy := range h.hierarchies {
		for _, d := range h.bySpecies[hierarchy.Species.ID] {
			for _, r := range append(d.Resources(), Total) {
				s, ok := d.stats[r]
				if !ok || s.EntitiesFound == 0 {
					continue
				}
				if _, seen := groups[r]; !seen {
					order = append(order, r)
				}
				groups[r] = append(groups[r], s)
			}
		}
	}
	for _, r := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		group := groups[r]
		pValues := make([]float64, len(group))
		for i, s := range group {
			pValues[i] = s.EntitiesPValue
		}
		for i, q := range BenjaminiHochberg(pValues) {
			group[i].EntitiesFDR = q
		}
	}
	return nil
}

// HitPathways returns the pathways with hits, species by species in
// hierarchy order and pre-order within each species.
func (h *HierarchiesData) HitPathways() []*PathwayNodeData {
	var out []*PathwayNodeData
	for _, hierarchy := range h.hierarchies {
		out = append(out, h.HitPathwaysForSpecies(hierarchy.Species.ID)...)
	}
	return out
}

// HitPathwaysForSpecies returns the hit pathways of one species in pre-order.
func (h *HierarchiesData) HitPathwaysForSpecies(speciesID int64) []*PathwayNodeData {
	var out []*PathwayNodeData
	for _, d := range h.bySpecies[speciesID] {
		if d.Hit() {
			out = append(out, d)
		}
	}
	return out
}
