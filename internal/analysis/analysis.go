// Package analysis runs enrichment analyses: submitted identifiers are
// resolved against the shared identifier indexes, attached to a private
// pathway arena, scored, and frozen into a stored result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pathwaycore/internal/logging"
	"pathwaycore/internal/result"
	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

// DefaultReferenceTaxID is the species projections target when none is configured.
const DefaultReferenceTaxID = "9606"

var (
	// ErrUnknownSpecies is returned when a projection target or compared species is absent.
	ErrUnknownSpecies = errors.New("analysis: unknown species")
	// ErrMissingToken is returned when a request carries no token.
	ErrMissingToken = errors.New("analysis: token is required")
)

// UserData is the parsed submission: identifiers in input order, the names
// of their expression columns, and warnings raised while parsing.
type UserData struct {
	Identifiers []domain.AnalysisIdentifier
	ColumnNames []string
	Warnings    []string
	SampleName  string
	Projection  bool
}

// Request carries the per-analysis options.
type Request struct {
	Token       string
	Projection  bool
	Interactors bool
	SampleName  string
	FileName    string
	Text        bool
}

// Data is the read side of the data container used by the engine.
type Data interface {
	EntitiesMap() (*domain.IdentifiersMap[*domain.EntityNode], error)
	InteractorsMap() (*domain.IdentifiersMap[*domain.InteractorNode], error)
	Species() ([]domain.SpeciesNode, error)
	Hierarchies() (*domain.HierarchiesData, error)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = logging.OrNoop(l) }
}

// WithReferenceTaxID sets the species projections target.
func WithReferenceTaxID(taxID string) Option {
	return func(a *Analyzer) {
		if taxID != "" {
			a.referenceTaxID = taxID
		}
	}
}

// Analyzer runs analyses against shared data. It is safe for concurrent use;
// every analysis works in its own arena.
type Analyzer struct {
	data           Data
	logger         logging.Logger
	referenceTaxID string
}

// New returns an Analyzer reading from data.
func New(data Data, opts ...Option) *Analyzer {
	a := &Analyzer{data: data, logger: logging.Noop(), referenceTaxID: DefaultReferenceTaxID}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// ReferenceTaxID is the species projections target.
func (a *Analyzer) ReferenceTaxID() string { return a.referenceTaxID }

type run struct {
	entities    *domain.IdentifiersMap[*domain.EntityNode]
	interactors *domain.IdentifiersMap[*domain.InteractorNode]
	arena       *domain.HierarchiesData
	reference   *domain.SpeciesNode
}

func (a *Analyzer) prepare(projection bool) (*run, []domain.SpeciesNode, error) {
	entities, err := a.data.EntitiesMap()
	if err != nil {
		return nil, nil, err
	}
	interactors, err := a.data.InteractorsMap()
	if err != nil {
		return nil, nil, err
	}
	species, err := a.data.Species()
	if err != nil {
		return nil, nil, err
	}
	arena, err := a.data.Hierarchies()
	if err != nil {
		return nil, nil, err
	}
	r := &run{entities: entities, interactors: interactors, arena: arena}
	if projection {
		ref, ok := findSpecies(species, func(s domain.SpeciesNode) bool { return s.TaxID == a.referenceTaxID })
		if !ok {
			return nil, nil, fmt.Errorf("%w: reference tax id %s", ErrUnknownSpecies, a.referenceTaxID)
		}
		r.reference = &ref
	}
	return r, species, nil
}

func findSpecies(species []domain.SpeciesNode, match func(domain.SpeciesNode) bool) (domain.SpeciesNode, bool) {
	for _, s := range species {
		if match(s) {
			return s, true
		}
	}
	return domain.SpeciesNode{}, false
}

// Analyse runs an over-representation or expression analysis of ud.
func (a *Analyzer) Analyse(ctx context.Context, ud UserData, req Request) (*result.StoredResult, error) {
	if req.Token == "" {
		return nil, ErrMissingToken
	}
	projection := req.Projection || ud.Projection
	r, _, err := a.prepare(projection)
	if err != nil {
		return nil, err
	}
	identifiers := Deduplicate(ud.Identifiers)
	notFound, err := a.resolve(ctx, r, identifiers, req.Interactors)
	if err != nil {
		return nil, err
	}

	summary := analysisapi.AnalysisSummary{
		Token:       req.Token,
		Projection:  projection,
		Interactors: req.Interactors,
		Type:        analysisapi.TypeOverrepresentation,
		SampleName:  firstNonEmpty(req.SampleName, ud.SampleName),
		Text:        req.Text,
		FileName:    req.FileName,
	}
	if len(ud.ColumnNames) > 0 {
		summary.Type = analysisapi.TypeExpression
	}
	if r.reference != nil {
		summary.Species = r.reference.ID
	}
	return a.finish(ctx, r, summary, ud.Warnings, notFound, expressionSummary(ud.ColumnNames, identifiers), len(identifiers))
}

// CompareSpecies projects every entity of a species onto the reference
// species and analyses the result as a species comparison.
func (a *Analyzer) CompareSpecies(ctx context.Context, speciesID int64, req Request) (*result.StoredResult, error) {
	if req.Token == "" {
		return nil, ErrMissingToken
	}
	r, species, err := a.prepare(true)
	if err != nil {
		return nil, err
	}
	if _, ok := findSpecies(species, func(s domain.SpeciesNode) bool { return s.ID == speciesID }); !ok {
		return nil, fmt.Errorf("%w: species %d", ErrUnknownSpecies, speciesID)
	}
	var identifiers []domain.AnalysisIdentifier
	seen := make(map[*domain.EntityNode]struct{})
	r.entities.Range(func(_ string, _ domain.Resource, nodes []*domain.EntityNode) bool {
		for _, n := range nodes {
			if n.Species.ID != speciesID {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			identifiers = append(identifiers, domain.NewAnalysisIdentifier(n.Identifier.ID))
		}
		return true
	})
	identifiers = Deduplicate(identifiers)
	if _, err := a.resolve(ctx, r, identifiers, false); err != nil {
		return nil, err
	}
	summary := analysisapi.AnalysisSummary{
		Token:      req.Token,
		Projection: true,
		Type:       analysisapi.TypeSpeciesComparison,
		Species:    speciesID,
		SampleName: req.SampleName,
	}
	return a.finish(ctx, r, summary, nil, nil, analysisapi.ExpressionSummary{ColumnNames: []string{}}, len(identifiers))
}

func (a *Analyzer) finish(ctx context.Context, r *run, summary analysisapi.AnalysisSummary, warnings []string, notFound []domain.AnalysisIdentifier, expression analysisapi.ExpressionSummary, submitted int) (*result.StoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.arena.ComputeStatistics(ctx); err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	var hits []*domain.PathwayNodeData
	if r.reference != nil {
		hits = r.arena.HitPathwaysForSpecies(r.reference.ID)
	} else {
		hits = r.arena.HitPathways()
	}
	b := result.NewBuilder(summary, warnings, notFound, expression)
	b.SetHitPathways(hits)
	res := b.Finalize()
	a.logger.Info("analysis completed",
		"token", summary.Token,
		"type", summary.Type,
		"identifiers", submitted,
		"not_found", len(notFound),
		"pathways", res.PathwaysFound())
	return res, nil
}

// resolve attaches every identifier to the arena and returns those that
// match no node of the index. An identifier whose nodes reach no reported
// pathway, for example a node without a reference ortholog under
// projection, is neither hit nor reported as not found.
func (a *Analyzer) resolve(ctx context.Context, r *run, identifiers []domain.AnalysisIdentifier, withInteractors bool) ([]domain.AnalysisIdentifier, error) {
	var notFound []domain.AnalysisIdentifier
	for _, id := range identifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		byResource := r.entities.Get(id.ID)
		known := len(byResource) > 0
		for _, res := range sortedResources(byResource) {
			for _, node := range byResource[res] {
				for _, target := range r.project(node) {
					r.arena.AddEntityHit(id, target)
				}
			}
		}
		if withInteractors {
			byResource := r.interactors.Get(id.ID)
			known = known || len(byResource) > 0
			for _, res := range sortedResources(byResource) {
				for _, node := range byResource[res] {
					r.arena.AddInteractorHit(id, node)
				}
			}
		}
		if !known {
			notFound = append(notFound, id.Clone())
		}
	}
	return notFound, nil
}

// project maps a node onto the reference species when projecting.
func (r *run) project(node *domain.EntityNode) []*domain.EntityNode {
	if r.reference == nil || node.Species.ID == r.reference.ID {
		return []*domain.EntityNode{node}
	}
	var out []*domain.EntityNode
	for _, o := range node.Orthologs {
		if o.Species.ID == r.reference.ID {
			out = append(out, o)
		}
	}
	return out
}

func sortedResources[N any](m map[domain.Resource][]N) []domain.Resource {
	out := make([]domain.Resource, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deduplicate drops blank identifiers and repeats of a normalized id,
// keeping the first occurrence and the input order.
func Deduplicate(in []domain.AnalysisIdentifier) []domain.AnalysisIdentifier {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.AnalysisIdentifier, 0, len(in))
	for _, id := range in {
		key := domain.NormalizeIdentifier(id.ID)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c := id.Clone()
		c.ID = key
		out = append(out, c)
	}
	return out
}

func expressionSummary(columns []string, identifiers []domain.AnalysisIdentifier) analysisapi.ExpressionSummary {
	out := analysisapi.ExpressionSummary{ColumnNames: append([]string{}, columns...)}
	if len(columns) == 0 {
		return out
	}
	for _, id := range identifiers {
		for _, v := range id.Exp {
			if out.Min == nil || v < *out.Min {
				out.Min = &v
			}
			if out.Max == nil || v > *out.Max {
				out.Max = &v
			}
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
