// Package snapshot builds, encodes and decodes the precomputed analysis data:
// the identifier indexes and the per-species pathway hierarchies.
package snapshot

import (
	"fmt"
	"time"

	"pathwaycore/pkg/domain"
)

// Data is the decoded snapshot. It is read-only once built.
type Data struct {
	Entities    *domain.IdentifiersMap[*domain.EntityNode]
	Interactors *domain.IdentifiersMap[*domain.InteractorNode]
	Hierarchies []*domain.PathwayHierarchy
	CreatedAt   time.Time
}

// Hierarchy returns the hierarchy of a species by database id.
func (d *Data) Hierarchy(speciesID int64) (*domain.PathwayHierarchy, bool) {
	for _, h := range d.Hierarchies {
		if h.Species.ID == speciesID {
			return h, true
		}
	}
	return nil, false
}

// SpeciesByTaxID resolves a species by taxonomy id.
func (d *Data) SpeciesByTaxID(taxID string) (domain.SpeciesNode, bool) {
	for _, h := range d.Hierarchies {
		if h.Species.TaxID == taxID {
			return h.Species, true
		}
	}
	return domain.SpeciesNode{}, false
}

// PathwayCount is the number of pathways across every species.
func (d *Data) PathwayCount() int {
	n := 0
	for _, h := range d.Hierarchies {
		n += h.Len()
	}
	return n
}

// Builder assembles snapshot data. It is single-threaded.
type Builder struct {
	hierarchies []*domain.PathwayHierarchy
	bySpecies   map[int64]*domain.PathwayHierarchy
	pathways    map[int64]*domain.PathwayNode
	entities    *domain.IdentifiersMap[*domain.EntityNode]
	entityList  []*domain.EntityNode
	byEntityID  map[int64]*domain.EntityNode
	interactors *domain.IdentifiersMap[*domain.InteractorNode]
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		bySpecies:   make(map[int64]*domain.PathwayHierarchy),
		pathways:    make(map[int64]*domain.PathwayNode),
		entities:    domain.NewIdentifiersMap[*domain.EntityNode](),
		byEntityID:  make(map[int64]*domain.EntityNode),
		interactors: domain.NewIdentifiersMap[*domain.InteractorNode](),
	}
}

// AddSpecies registers a species and returns its empty hierarchy.
func (b *Builder) AddSpecies(species domain.SpeciesNode) (*domain.PathwayHierarchy, error) {
	if _, exists := b.bySpecies[species.ID]; exists {
		return nil, fmt.Errorf("species %d already added", species.ID)
	}
	h := domain.NewPathwayHierarchy(species)
	b.hierarchies = append(b.hierarchies, h)
	b.bySpecies[species.ID] = h
	return h, nil
}

// AddPathway attaches a pathway to a species hierarchy. A zero parent makes
// it a root. Database ids are unique across species.
func (b *Builder) AddPathway(speciesID, parentDBID int64, node domain.PathwayNode) (*domain.PathwayNode, error) {
	h, ok := b.bySpecies[speciesID]
	if !ok {
		return nil, fmt.Errorf("unknown species %d", speciesID)
	}
	if _, exists := b.pathways[node.DBID]; exists {
		return nil, fmt.Errorf("pathway %d already added", node.DBID)
	}
	var parent *domain.PathwayNode
	if parentDBID != 0 {
		parent, ok = h.Find(parentDBID)
		if !ok {
			return nil, fmt.Errorf("parent pathway %d not found in species %d", parentDBID, speciesID)
		}
	}
	n := &domain.PathwayNode{
		StID:       node.StID,
		DBID:       node.DBID,
		Name:       node.Name,
		HasDiagram: node.HasDiagram,
		LowerLevel: node.LowerLevel,
	}
	if err := h.Attach(parent, n); err != nil {
		return nil, err
	}
	b.pathways[n.DBID] = n
	return n, nil
}

// AddEntity creates an entity node and indexes it under its main identifier.
func (b *Builder) AddEntity(id, speciesID int64, main domain.MainIdentifier) (*domain.EntityNode, error) {
	h, ok := b.bySpecies[speciesID]
	if !ok {
		return nil, fmt.Errorf("unknown species %d", speciesID)
	}
	if !main.Resource.IsMain() {
		return nil, fmt.Errorf("entity %d: resource %s cannot carry entities", id, main.Resource)
	}
	if _, exists := b.byEntityID[id]; exists {
		return nil, fmt.Errorf("entity %d already added", id)
	}
	e := domain.NewEntityNode(id, h.Species, main)
	b.entityList = append(b.entityList, e)
	b.byEntityID[id] = e
	b.entities.Add(main.ID, main.Resource, e)
	return e, nil
}

// Entity returns a previously added entity.
func (b *Builder) Entity(id int64) (*domain.EntityNode, bool) {
	e, ok := b.byEntityID[id]
	return e, ok
}

// AddAlias indexes an extra identifier for an entity under its resource.
func (b *Builder) AddAlias(e *domain.EntityNode, alias string) {
	b.entities.Add(alias, e.Identifier.Resource, e)
}

// AddParticipation records the reactions an entity takes part in within a
// pathway of its own species.
func (b *Builder) AddParticipation(e *domain.EntityNode, pathwayDBID int64, reactions ...domain.AnalysisReaction) error {
	p, ok := b.pathways[pathwayDBID]
	if !ok {
		return fmt.Errorf("entity %d: unknown pathway %d", e.ID, pathwayDBID)
	}
	if p.Species.ID != e.Species.ID {
		return fmt.Errorf("entity %d: pathway %d belongs to species %d", e.ID, pathwayDBID, p.Species.ID)
	}
	e.AddParticipation(pathwayDBID, reactions...)
	return nil
}

// AddOrtholog links an entity to its inferred counterpart in another species.
func (b *Builder) AddOrtholog(e, ortholog *domain.EntityNode) error {
	if e.Species.ID == ortholog.Species.ID {
		return fmt.Errorf("entity %d: ortholog %d is in the same species", e.ID, ortholog.ID)
	}
	e.AddOrtholog(ortholog)
	return nil
}

// Entities exposes the entity index, e.g. for interactor ingestion.
func (b *Builder) Entities() *domain.IdentifiersMap[*domain.EntityNode] { return b.entities }

// SetInteractors replaces the interactor index.
func (b *Builder) SetInteractors(m *domain.IdentifiersMap[*domain.InteractorNode]) {
	if m == nil {
		m = domain.NewIdentifiersMap[*domain.InteractorNode]()
	}
	b.interactors = m
}

// Build computes the static totals and returns the finished data.
func (b *Builder) Build(createdAt time.Time) (*Data, error) {
	if len(b.hierarchies) == 0 {
		return nil, fmt.Errorf("snapshot has no species")
	}
	pathwayTotals := make(map[*domain.PathwayNode]*totals, len(b.pathways))
	speciesTotals := make(map[int64]*totals, len(b.hierarchies))
	for _, e := range b.entityList {
		for _, pathwayID := range e.PathwayIDs() {
			p := b.pathways[pathwayID]
			reactions := e.Pathways[pathwayID]
			st := speciesTotals[p.Species.ID]
			if st == nil {
				st = newTotals()
				speciesTotals[p.Species.ID] = st
			}
			st.add(e.Identifier, reactions)
			for n := p; n != nil; n = n.Parent {
				t := pathwayTotals[n]
				if t == nil {
					t = newTotals()
					pathwayTotals[n] = t
				}
				t.add(e.Identifier, reactions)
			}
		}
	}
	for _, h := range b.hierarchies {
		for _, p := range h.Pathways() {
			p.Content = pathwayTotals[p].content()
		}
		h.Content = speciesTotals[h.Species.ID].content()
	}
	return &Data{
		Entities:    b.entities,
		Interactors: b.interactors,
		Hierarchies: append([]*domain.PathwayHierarchy(nil), b.hierarchies...),
		CreatedAt:   createdAt.UTC(),
	}, nil
}

type totals struct {
	entities  map[domain.Resource]map[domain.MainIdentifier]struct{}
	reactions map[domain.Resource]map[domain.AnalysisReaction]struct{}
}

func newTotals() *totals {
	return &totals{
		entities:  make(map[domain.Resource]map[domain.MainIdentifier]struct{}),
		reactions: make(map[domain.Resource]map[domain.AnalysisReaction]struct{}),
	}
}

func (t *totals) add(main domain.MainIdentifier, reactions []domain.AnalysisReaction) {
	for _, r := range []domain.Resource{main.Resource, domain.Total} {
		if t.entities[r] == nil {
			t.entities[r] = make(map[domain.MainIdentifier]struct{})
		}
		t.entities[r][main] = struct{}{}
		if t.reactions[r] == nil {
			t.reactions[r] = make(map[domain.AnalysisReaction]struct{})
		}
		for _, rx := range reactions {
			t.reactions[r][rx] = struct{}{}
		}
	}
}

func (t *totals) content() domain.Content {
	c := domain.NewContent()
	if t == nil {
		return c
	}
	for r, set := range t.entities {
		c.Entities[r] = len(set)
	}
	for r, set := range t.reactions {
		c.Reactions[r] = len(set)
	}
	return c
}
