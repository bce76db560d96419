package snapshot

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"pathwaycore/pkg/domain"
)

const formatVersion = 2

// ErrUnsupportedVersion is returned when a snapshot was written by a newer format.
var ErrUnsupportedVersion = errors.New("snapshot: unsupported format version")

// The wire form flattens the node graph into index-addressed tables so that
// every alias decodes back to the same node instance.
type wireSnapshot struct {
	Version         int
	CreatedAt       time.Time
	Resources       []wireResource
	Species         []wireSpecies
	Pathways        []wirePathway
	Entities        []wireEntity
	Interactors     []wireInteractor
	EntityIndex     []wireIndexEntry
	InteractorIndex []wireIndexEntry
}

type wireResource struct {
	Name string
	Kind uint8
}

type wireCount struct {
	Resource int
	Count    int
}

type wireSpecies struct {
	Node      domain.SpeciesNode
	Entities  []wireCount
	Reactions []wireCount
}

type wirePathway struct {
	Species    int
	Parent     int
	StID       string
	DBID       int64
	Name       string
	HasDiagram bool
	LowerLevel bool
	Entities   []wireCount
	Reactions  []wireCount
}

type wireParticipation struct {
	Pathway   int64
	Reactions []domain.AnalysisReaction
}

type wireMain struct {
	Resource int
	ID       string
}

type wireEntity struct {
	ID        int64
	Species   int
	Main      wireMain
	Pathways  []wireParticipation
	Orthologs []int
}

type wireInteractor struct {
	Accession string
	Targets   []wireTarget
}

type wireTarget struct {
	Main     wireMain
	Pathways []wireParticipation
}

type wireIndexEntry struct {
	Identifier string
	Resource   int
	Nodes      []int
}

type encoder struct {
	resources   []wireResource
	resourceIdx map[domain.Resource]int
}

func (e *encoder) resource(r domain.Resource) int {
	if i, ok := e.resourceIdx[r]; ok {
		return i
	}
	i := len(e.resources)
	e.resources = append(e.resources, wireResource{Name: r.Name, Kind: uint8(r.Kind)})
	e.resourceIdx[r] = i
	return i
}

func (e *encoder) counts(m map[domain.Resource]int) []wireCount {
	keys := make([]domain.Resource, 0, len(m))
	for r := range m {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	out := make([]wireCount, 0, len(keys))
	for _, r := range keys {
		out = append(out, wireCount{Resource: e.resource(r), Count: m[r]})
	}
	return out
}

func participations(m map[int64][]domain.AnalysisReaction) []wireParticipation {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]wireParticipation, 0, len(ids))
	for _, id := range ids {
		out = append(out, wireParticipation{Pathway: id, Reactions: m[id]})
	}
	return out
}

// Encode writes d as a gzip-compressed snapshot.
func Encode(w io.Writer, d *Data) error {
	if d == nil {
		return fmt.Errorf("encode snapshot: nil data")
	}
	enc := &encoder{resourceIdx: make(map[domain.Resource]int)}
	ws := wireSnapshot{Version: formatVersion, CreatedAt: d.CreatedAt}

	speciesIdx := make(map[int64]int, len(d.Hierarchies))
	pathwayIdx := make(map[*domain.PathwayNode]int)
	for si, h := range d.Hierarchies {
		speciesIdx[h.Species.ID] = si
		ws.Species = append(ws.Species, wireSpecies{
			Node:      h.Species,
			Entities:  enc.counts(h.Content.Entities),
			Reactions: enc.counts(h.Content.Reactions),
		})
		for _, p := range h.Pathways() {
			parent := -1
			if p.Parent != nil {
				parent = pathwayIdx[p.Parent]
			}
			pathwayIdx[p] = len(ws.Pathways)
			ws.Pathways = append(ws.Pathways, wirePathway{
				Species: si, Parent: parent,
				StID: p.StID, DBID: p.DBID, Name: p.Name,
				HasDiagram: p.HasDiagram, LowerLevel: p.LowerLevel,
				Entities:  enc.counts(p.Content.Entities),
				Reactions: enc.counts(p.Content.Reactions),
			})
		}
	}

	entityIdx := make(map[*domain.EntityNode]int)
	var entities []*domain.EntityNode
	collect := func(n *domain.EntityNode) {
		if _, seen := entityIdx[n]; !seen {
			entityIdx[n] = len(entities)
			entities = append(entities, n)
		}
	}
	d.Entities.Range(func(_ string, _ domain.Resource, nodes []*domain.EntityNode) bool {
		for _, n := range nodes {
			collect(n)
		}
		return true
	})
	for i := 0; i < len(entities); i++ {
		for _, o := range entities[i].Orthologs {
			collect(o)
		}
	}
	for _, n := range entities {
		si, ok := speciesIdx[n.Species.ID]
		if !ok {
			return fmt.Errorf("encode snapshot: entity %d references unknown species %d", n.ID, n.Species.ID)
		}
		we := wireEntity{
			ID:       n.ID,
			Species:  si,
			Main:     wireMain{Resource: enc.resource(n.Identifier.Resource), ID: n.Identifier.ID},
			Pathways: participations(n.Pathways),
		}
		for _, o := range n.Orthologs {
			we.Orthologs = append(we.Orthologs, entityIdx[o])
		}
		ws.Entities = append(ws.Entities, we)
	}
	d.Entities.Range(func(id string, r domain.Resource, nodes []*domain.EntityNode) bool {
		entry := wireIndexEntry{Identifier: id, Resource: enc.resource(r)}
		for _, n := range nodes {
			entry.Nodes = append(entry.Nodes, entityIdx[n])
		}
		ws.EntityIndex = append(ws.EntityIndex, entry)
		return true
	})

	if d.Interactors != nil {
		interactorIdx := make(map[*domain.InteractorNode]int)
		d.Interactors.Range(func(id string, r domain.Resource, nodes []*domain.InteractorNode) bool {
			entry := wireIndexEntry{Identifier: id, Resource: enc.resource(r)}
			for _, n := range nodes {
				i, seen := interactorIdx[n]
				if !seen {
					i = len(ws.Interactors)
					interactorIdx[n] = i
					wi := wireInteractor{Accession: n.Accession}
					for _, m := range n.InteractsWith {
						wi.Targets = append(wi.Targets, wireTarget{
							Main:     wireMain{Resource: enc.resource(m.Resource), ID: m.ID},
							Pathways: participations(n.Targets[m]),
						})
					}
					ws.Interactors = append(ws.Interactors, wi)
				}
				entry.Nodes = append(entry.Nodes, i)
			}
			ws.InteractorIndex = append(ws.InteractorIndex, entry)
			return true
		})
	}
	ws.Resources = enc.resources

	zw := gzip.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(&ws); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode. Resources named in the snapshot
// are registered so later lookups by name resolve to them.
func Decode(r io.Reader) (*Data, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	defer func() { _ = zr.Close() }()
	var ws wireSnapshot
	if err := gob.NewDecoder(zr).Decode(&ws); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if ws.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ws.Version)
	}
	return ws.restore()
}

func (ws *wireSnapshot) restore() (*Data, error) {
	resources := make([]domain.Resource, len(ws.Resources))
	for i, wr := range ws.Resources {
		if domain.IsTotalName(wr.Name) {
			resources[i] = domain.Total
			continue
		}
		resources[i] = domain.RegisterResource(wr.Name, domain.ResourceKind(wr.Kind))
	}
	res := func(i int) (domain.Resource, error) {
		if i < 0 || i >= len(resources) {
			return domain.Resource{}, fmt.Errorf("decode snapshot: resource index %d out of range", i)
		}
		return resources[i], nil
	}
	counts := func(in []wireCount) (map[domain.Resource]int, error) {
		out := make(map[domain.Resource]int, len(in))
		for _, c := range in {
			r, err := res(c.Resource)
			if err != nil {
				return nil, err
			}
			out[r] = c.Count
		}
		return out, nil
	}
	content := func(entities, reactions []wireCount) (domain.Content, error) {
		e, err := counts(entities)
		if err != nil {
			return domain.Content{}, err
		}
		rx, err := counts(reactions)
		if err != nil {
			return domain.Content{}, err
		}
		return domain.Content{Entities: e, Reactions: rx}, nil
	}

	d := &Data{
		Entities:    domain.NewIdentifiersMap[*domain.EntityNode](),
		Interactors: domain.NewIdentifiersMap[*domain.InteractorNode](),
		CreatedAt:   ws.CreatedAt,
	}
	for _, s := range ws.Species {
		h := domain.NewPathwayHierarchy(s.Node)
		c, err := content(s.Entities, s.Reactions)
		if err != nil {
			return nil, err
		}
		h.Content = c
		d.Hierarchies = append(d.Hierarchies, h)
	}
	pathways := make([]*domain.PathwayNode, len(ws.Pathways))
	for i, wp := range ws.Pathways {
		if wp.Species < 0 || wp.Species >= len(d.Hierarchies) {
			return nil, fmt.Errorf("decode snapshot: pathway %d has species index %d", wp.DBID, wp.Species)
		}
		c, err := content(wp.Entities, wp.Reactions)
		if err != nil {
			return nil, err
		}
		n := &domain.PathwayNode{StID: wp.StID, DBID: wp.DBID, Name: wp.Name, HasDiagram: wp.HasDiagram, LowerLevel: wp.LowerLevel, Content: c}
		var parent *domain.PathwayNode
		if wp.Parent >= 0 {
			if wp.Parent >= i {
				return nil, fmt.Errorf("decode snapshot: pathway %d listed before its parent", wp.DBID)
			}
			parent = pathways[wp.Parent]
		}
		if err := d.Hierarchies[wp.Species].Attach(parent, n); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		pathways[i] = n
	}

	entities := make([]*domain.EntityNode, len(ws.Entities))
	for i, we := range ws.Entities {
		if we.Species < 0 || we.Species >= len(d.Hierarchies) {
			return nil, fmt.Errorf("decode snapshot: entity %d has species index %d", we.ID, we.Species)
		}
		r, err := res(we.Main.Resource)
		if err != nil {
			return nil, err
		}
		n := domain.NewEntityNode(we.ID, d.Hierarchies[we.Species].Species, domain.MainIdentifier{Resource: r, ID: we.Main.ID})
		for _, p := range we.Pathways {
			n.AddParticipation(p.Pathway, p.Reactions...)
		}
		entities[i] = n
	}
	for i, we := range ws.Entities {
		for _, oi := range we.Orthologs {
			if oi < 0 || oi >= len(entities) {
				return nil, fmt.Errorf("decode snapshot: entity %d has ortholog index %d", we.ID, oi)
			}
			entities[i].AddOrtholog(entities[oi])
		}
	}
	for _, entry := range ws.EntityIndex {
		r, err := res(entry.Resource)
		if err != nil {
			return nil, err
		}
		for _, ni := range entry.Nodes {
			if ni < 0 || ni >= len(entities) {
				return nil, fmt.Errorf("decode snapshot: index entry %s has node index %d", entry.Identifier, ni)
			}
			d.Entities.Add(entry.Identifier, r, entities[ni])
		}
	}

	interactors := make([]*domain.InteractorNode, len(ws.Interactors))
	for i, wi := range ws.Interactors {
		n := domain.NewInteractorNode(wi.Accession)
		for _, t := range wi.Targets {
			r, err := res(t.Main.Resource)
			if err != nil {
				return nil, err
			}
			pathways := make(map[int64][]domain.AnalysisReaction, len(t.Pathways))
			for _, p := range t.Pathways {
				pathways[p.Pathway] = p.Reactions
			}
			n.AddTarget(domain.MainIdentifier{Resource: r, ID: t.Main.ID}, pathways)
		}
		interactors[i] = n
	}
	for _, entry := range ws.InteractorIndex {
		r, err := res(entry.Resource)
		if err != nil {
			return nil, err
		}
		for _, ni := range entry.Nodes {
			if ni < 0 || ni >= len(interactors) {
				return nil, fmt.Errorf("decode snapshot: interactor entry %s has node index %d", entry.Identifier, ni)
			}
			d.Interactors.Add(entry.Identifier, r, interactors[ni])
		}
	}
	return d, nil
}
