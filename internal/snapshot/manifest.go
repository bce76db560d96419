package snapshot

import (
	"encoding/json"
	"fmt"
	"io"

	"pathwaycore/pkg/domain"
)

// Manifest is a JSON description of snapshot content, used to import data
// exported from the upstream knowledge base.
type Manifest struct {
	Species  []ManifestSpecies `json:"species"`
	Entities []ManifestEntity  `json:"entities"`
}

// ManifestSpecies lists one species and its pathways, parents first.
type ManifestSpecies struct {
	ID       int64             `json:"dbId"`
	TaxID    string            `json:"taxId"`
	Name     string            `json:"name"`
	Pathways []ManifestPathway `json:"pathways"`
}

// ManifestPathway is one pathway; Parent is zero for roots.
type ManifestPathway struct {
	StID       string `json:"stId"`
	DBID       int64  `json:"dbId"`
	Name       string `json:"name"`
	Parent     int64  `json:"parent,omitempty"`
	HasDiagram bool   `json:"hasDiagram,omitempty"`
	LowerLevel bool   `json:"llp,omitempty"`
}

// ManifestEntity is one physical entity with its aliases and participation.
type ManifestEntity struct {
	ID         int64                   `json:"dbId"`
	Species    int64                   `json:"species"`
	Resource   string                  `json:"resource"`
	Identifier string                  `json:"identifier"`
	Aliases    []string                `json:"aliases,omitempty"`
	Pathways   []ManifestParticipation `json:"pathways"`
	Orthologs  []int64                 `json:"orthologs,omitempty"`
}

// ManifestParticipation lists the reactions of an entity in a pathway.
type ManifestParticipation struct {
	Pathway   int64                     `json:"pathway"`
	Reactions []domain.AnalysisReaction `json:"reactions"`
}

// ReadManifest decodes a JSON manifest, rejecting unknown fields.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return m, nil
}

// Apply adds the manifest content to b. Orthologs may reference entities
// listed later in the manifest.
func (m Manifest) Apply(b *Builder) error {
	for _, s := range m.Species {
		if _, err := b.AddSpecies(domain.SpeciesNode{ID: s.ID, TaxID: s.TaxID, Name: s.Name}); err != nil {
			return err
		}
		for _, p := range s.Pathways {
			node := domain.PathwayNode{StID: p.StID, DBID: p.DBID, Name: p.Name, HasDiagram: p.HasDiagram, LowerLevel: p.LowerLevel}
			if _, err := b.AddPathway(s.ID, p.Parent, node); err != nil {
				return err
			}
		}
	}
	for _, me := range m.Entities {
		r, ok := domain.LookupResource(me.Resource)
		if !ok {
			r = domain.RegisterResource(me.Resource, domain.KindMain)
		}
		e, err := b.AddEntity(me.ID, me.Species, domain.NewMainIdentifier(r, me.Identifier))
		if err != nil {
			return err
		}
		for _, alias := range me.Aliases {
			b.AddAlias(e, alias)
		}
		for _, p := range me.Pathways {
			if err := b.AddParticipation(e, p.Pathway, p.Reactions...); err != nil {
				return err
			}
		}
	}
	for _, me := range m.Entities {
		e, _ := b.Entity(me.ID)
		for _, oid := range me.Orthologs {
			o, ok := b.Entity(oid)
			if !ok {
				return fmt.Errorf("entity %d: unknown ortholog %d", me.ID, oid)
			}
			if err := b.AddOrtholog(e, o); err != nil {
				return err
			}
		}
	}
	return nil
}
