package result

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

const recordVersion = 1

// EntityHit is a frozen entity hit: the submitted identifier and the main
// identifier it resolved to.
type EntityHit struct {
	Identifier string    `json:"identifier"`
	Resource   string    `json:"resource"`
	MainID     string    `json:"mainId"`
	Exp        []float64 `json:"exp,omitempty"`
}

// InteractorHit is a frozen interactor hit.
type InteractorHit struct {
	Identifier string    `json:"identifier"`
	Accession  string    `json:"accession"`
	Resource   string    `json:"resource"`
	MainID     string    `json:"mainId"`
	Exp        []float64 `json:"exp,omitempty"`
}

// ResourceStats are the frozen figures of a pathway for one resource.
type ResourceStats struct {
	Resource         string    `json:"resource"`
	EntitiesFound    int       `json:"entitiesFound"`
	EntitiesTotal    int       `json:"entitiesTotal"`
	InteractorsFound int       `json:"interactorsFound"`
	ReactionsFound   int       `json:"reactionsFound"`
	ReactionsTotal   int       `json:"reactionsTotal"`
	EntitiesRatio    float64   `json:"entitiesRatio"`
	EntitiesPValue   float64   `json:"entitiesPValue"`
	EntitiesFDR      float64   `json:"entitiesFdr"`
	ReactionsRatio   float64   `json:"reactionsRatio"`
	Exp              []float64 `json:"exp,omitempty"`
	Reactions        []int64   `json:"reactions,omitempty"`
}

// PathwayResult is one hit pathway of a finalized result. Values are never
// modified after Finalize.
type PathwayResult struct {
	StID        string                     `json:"stId"`
	DBID        int64                      `json:"dbId"`
	Name        string                     `json:"name"`
	Species     analysisapi.SpeciesSummary `json:"species"`
	LLP         bool                       `json:"llp"`
	HasDiagram  bool                       `json:"hasDiagram"`
	Resources   []string                   `json:"resources"`
	Stats       []ResourceStats            `json:"statistics"`
	Entities    []EntityHit                `json:"entities"`
	Interactors []InteractorHit            `json:"interactors,omitempty"`
}

// Is reports whether id designates the pathway by stable or database id.
func (p *PathwayResult) Is(id string) bool {
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

// In reports whether any of ids designates the pathway.
func (p *PathwayResult) In(ids []string) bool {
	for _, id := range ids {
		if p.Is(id) {
			return true
		}
	}
	return false
}

// Statistics returns the figures for a resource name. Resources without hits
// report zero found and a p-value of 1.
func (p *PathwayResult) Statistics(resource string) ResourceStats {
	for _, s := range p.Stats {
		if s.Resource == resource {
			return s
		}
	}
	return ResourceStats{Resource: resource, EntitiesPValue: 1, EntitiesFDR: 1}
}

// HitFor reports whether the pathway has entity or interactor hits for a
// resource name; TOTAL matches every hit pathway.
func (p *PathwayResult) HitFor(resource string) bool {
	if domain.IsTotalName(resource) {
		return true
	}
	for _, r := range p.Resources {
		if r == resource {
			s := p.Statistics(r)
			return s.EntitiesFound > 0 || s.InteractorsFound > 0
		}
	}
	return false
}

func (p *PathwayResult) summary(resource string, interactors bool) analysisapi.PathwaySummary {
	s := p.Statistics(resource)
	out := analysisapi.PathwaySummary{
		StID:    p.StID,
		DBID:    p.DBID,
		Name:    p.Name,
		Species: p.Species,
		LLP:     p.LLP,
		Entities: analysisapi.EntityStatistics{
			Resource: resource,
			Total:    s.EntitiesTotal,
			Found:    s.EntitiesFound,
			Ratio:    s.EntitiesRatio,
			PValue:   s.EntitiesPValue,
			FDR:      s.EntitiesFDR,
			Exp:      cloneFloats(s.Exp),
		},
		Reactions: analysisapi.ReactionStatistics{
			Resource: resource,
			Total:    s.ReactionsTotal,
			Found:    s.ReactionsFound,
			Ratio:    s.ReactionsRatio,
		},
	}
	if interactors {
		out.Entities.InteractorsFound = s.InteractorsFound
	}
	return out
}

func freezePathway(d *domain.PathwayNodeData) *PathwayResult {
	n := d.Node()
	p := &PathwayResult{
		StID:       n.StID,
		DBID:       n.DBID,
		Name:       n.Name,
		Species:    analysisapi.SpeciesSummary{DBID: n.Species.ID, TaxID: n.Species.TaxID, Name: n.Species.Name},
		LLP:        n.LowerLevel,
		HasDiagram: n.HasDiagram,
	}
	resources := d.Resources()
	for _, r := range resources {
		p.Resources = append(p.Resources, r.Name)
	}
	for _, r := range append([]domain.Resource{domain.Total}, resources...) {
		s := d.Statistics(r)
		rs := ResourceStats{
			Resource:         r.Name,
			EntitiesFound:    s.EntitiesFound,
			EntitiesTotal:    s.EntitiesTotal,
			InteractorsFound: s.InteractorsFound,
			ReactionsFound:   s.ReactionsFound,
			ReactionsTotal:   s.ReactionsTotal,
			EntitiesRatio:    s.EntitiesRatio,
			EntitiesPValue:   s.EntitiesPValue,
			EntitiesFDR:      s.EntitiesFDR,
			ReactionsRatio:   s.ReactionsRatio,
			Exp:              d.ExpressionValuesAvg(r),
		}
		for _, rx := range d.Reactions(r) {
			rs.Reactions = append(rs.Reactions, rx.DBID)
		}
		p.Stats = append(p.Stats, rs)
	}
	for _, h := range d.EntityHits() {
		p.Entities = append(p.Entities, EntityHit{
			Identifier: h.Identifier,
			Resource:   h.Main.Resource.Name,
			MainID:     h.Main.ID,
			Exp:        cloneFloats(h.Exp),
		})
	}
	for _, h := range d.InteractorHits() {
		p.Interactors = append(p.Interactors, InteractorHit{
			Identifier: h.Identifier,
			Accession:  h.Accession,
			Resource:   h.Main.Resource.Name,
			MainID:     h.Main.ID,
			Exp:        cloneFloats(h.Exp),
		})
	}
	return p
}

// Record is the serialized form of a finalized result.
type Record struct {
	Version         int                             `json:"version"`
	Summary         analysisapi.AnalysisSummary     `json:"summary"`
	Expression      analysisapi.ExpressionSummary   `json:"expression"`
	Warnings        []string                        `json:"warnings,omitempty"`
	NotFound        []analysisapi.IdentifierSummary `json:"notFound"`
	Pathways        []*PathwayResult                `json:"pathways"`
	ResourceSummary []analysisapi.ResourceSummary   `json:"resourceSummary"`
}

// Marshal serializes a finalized result.
func Marshal(r *StoredResult) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("marshal result: nil result")
	}
	rec := Record{
		Version:         recordVersion,
		Summary:         r.summary,
		Expression:      r.expression,
		Warnings:        r.warnings,
		NotFound:        r.notFound,
		Pathways:        r.pathways,
		ResourceSummary: r.resourceSummary,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal result %s: %w", r.summary.Token, err)
	}
	return b, nil
}

// Unmarshal restores a result serialized by Marshal.
func Unmarshal(b []byte) (*StoredResult, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", ErrDataFormat, err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported result version %d", ErrDataFormat, rec.Version)
	}
	for i, p := range rec.Pathways {
		if p == nil {
			return nil, fmt.Errorf("%w: pathway entry %d is empty", ErrDataFormat, i)
		}
	}
	return newStoredResult(rec.Summary, rec.Expression, rec.Warnings, rec.NotFound, rec.Pathways, rec.ResourceSummary), nil
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	return append([]float64(nil), in...)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
