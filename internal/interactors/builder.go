package interactors

import (
	"context"
	"strings"

	"pathwaycore/internal/logging"
	"pathwaycore/pkg/domain"
)

// Builder turns interaction records into an interactor index.
type Builder struct {
	logger logging.Logger
}

// NewBuilder returns a builder logging to logger (nil discards).
func NewBuilder(logger logging.Logger) *Builder {
	return &Builder{logger: logging.OrNoop(logger)}
}

type nodeKey struct {
	resource  domain.Resource
	accession string
}

// Build looks up every distinct entity of the index as an interaction target
// and returns the resulting interactor index. At most one node exists per
// (resource, accession); a failing lookup is logged and skipped.
func (b *Builder) Build(ctx context.Context, entities *domain.IdentifiersMap[*domain.EntityNode], src Source) (*domain.IdentifiersMap[*domain.InteractorNode], error) {
	index := domain.NewIdentifiersMap[*domain.InteractorNode]()
	if entities == nil || src == nil {
		return index, nil
	}
	targets := distinctEntities(entities)
	nodes := make(map[nodeKey]*domain.InteractorNode)
	lookups := make(map[string][]Interactor)
	failures := 0
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		accession := target.Identifier.ID
		records, seen := lookups[accession]
		if !seen {
			var err error
			records, err = src.Interactors(ctx, accession)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				failures++
				b.logger.Warn("interactor lookup failed", "target", accession, "error", err)
				continue
			}
			lookups[accession] = records
		}
		for _, rec := range records {
			acc := domain.NormalizeIdentifier(rec.Accession)
			if acc == "" || strings.TrimSpace(rec.Resource) == "" {
				b.logger.Warn("skipping incomplete interactor", "target", accession, "accession", rec.Accession, "resource", rec.Resource)
				continue
			}
			r, ok := domain.LookupResource(rec.Resource)
			if !ok {
				r = domain.RegisterResource(rec.Resource, domain.KindPlain)
			}
			node := b.node(index, nodes, r, acc)
			node.AddTarget(target.Identifier, target.Pathways)
			index.Add(rec.Alias, r, node)
			index.Add(rec.AliasWithoutSpecies, r, node)
		}
	}
	b.logger.Info("interactors built",
		"targets", len(targets),
		"interactors", len(nodes),
		"identifiers", index.Len(),
		"failures", failures)
	return index, nil
}

func (b *Builder) node(index *domain.IdentifiersMap[*domain.InteractorNode], nodes map[nodeKey]*domain.InteractorNode, r domain.Resource, acc string) *domain.InteractorNode {
	key := nodeKey{resource: r, accession: acc}
	if n, ok := nodes[key]; ok {
		return n
	}
	if existing := index.Resolve(acc, r); len(existing) > 0 {
		b.logger.Warn("duplicate interactor node", "resource", r.Name, "accession", acc, "kept", existing[0].Accession)
		nodes[key] = existing[0]
		return existing[0]
	}
	n := domain.NewInteractorNode(acc)
	nodes[key] = n
	index.Add(acc, r, n)
	return n
}

func distinctEntities(entities *domain.IdentifiersMap[*domain.EntityNode]) []*domain.EntityNode {
	seen := make(map[*domain.EntityNode]struct{})
	var out []*domain.EntityNode
	entities.Range(func(_ string, _ domain.Resource, nodes []*domain.EntityNode) bool {
		for _, n := range nodes {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
		return true
	})
	return out
}
