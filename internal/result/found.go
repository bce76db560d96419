package result

import (
	"slices"

	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

// resourceFilter matches hit resources; TOTAL matches all.
type resourceFilter string

func (f resourceFilter) match(resource string) bool {
	return domain.IsTotalName(string(f)) || string(f) == resource
}

// foundEntities groups the entity hits of p by submitted identifier, in
// hit order, keeping only the resources f matches.
func foundEntities(p *PathwayResult, f resourceFilter) ([]analysisapi.FoundEntity, []string) {
	var out []analysisapi.FoundEntity
	var resources []string
	index := make(map[string]int)
	for _, h := range p.Entities {
		if !f.match(h.Resource) {
			continue
		}
		resources = appendUnique(resources, h.Resource)
		i, ok := index[h.Identifier]
		if !ok {
			i = len(out)
			index[h.Identifier] = i
			out = append(out, analysisapi.FoundEntity{ID: h.Identifier, Exp: cloneFloats(h.Exp)})
		}
		out[i].MapsTo = addMapping(out[i].MapsTo, h.Resource, h.MainID)
	}
	return out, resources
}

// foundInteractors groups the interactor hits of p by submitted identifier.
func foundInteractors(p *PathwayResult, f resourceFilter) ([]analysisapi.FoundInteractor, []string) {
	var out []analysisapi.FoundInteractor
	var resources []string
	index := make(map[string]int)
	for _, h := range p.Interactors {
		if !f.match(h.Resource) {
			continue
		}
		resources = appendUnique(resources, h.Resource)
		i, ok := index[h.Identifier]
		if !ok {
			i = len(out)
			index[h.Identifier] = i
			out = append(out, analysisapi.FoundInteractor{ID: h.Identifier, Exp: cloneFloats(h.Exp)})
		}
		out[i].MapsTo = appendUnique(out[i].MapsTo, h.Accession)
		out[i].InteractsWith = addMapping(out[i].InteractsWith, h.Resource, h.MainID)
	}
	return out, resources
}

func addMapping(maps []analysisapi.IdentifierMap, resource, id string) []analysisapi.IdentifierMap {
	for i := range maps {
		if maps[i].Resource == resource {
			maps[i].IDs = appendUnique(maps[i].IDs, id)
			return maps
		}
	}
	return append(maps, analysisapi.IdentifierMap{Resource: resource, IDs: []string{id}})
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func (r *StoredResult) foundElements(id string, p *PathwayResult, f resourceFilter) (analysisapi.FoundElements, bool) {
	entities, entityResources := foundEntities(p, f)
	interactors, interactorResources := foundInteractors(p, f)
	if len(entities) == 0 && len(interactors) == 0 {
		return analysisapi.FoundElements{}, false
	}
	resources := entityResources
	for _, res := range interactorResources {
		resources = appendUnique(resources, res)
	}
	if entities == nil {
		entities = []analysisapi.FoundEntity{}
	}
	if interactors == nil {
		interactors = []analysisapi.FoundInteractor{}
	}
	return analysisapi.FoundElements{
		Pathway:          id,
		FoundEntities:    len(entities),
		FoundInteractors: len(interactors),
		Entities:         entities,
		Interactors:      interactors,
		Resources:        resources,
		ExpNames:         cloneStrings(r.expression.ColumnNames),
	}, true
}

// FoundElementsForPathway returns the entities and interactors found in one
// pathway for a resource. It reports false when the pathway is not a hit
// pathway or nothing was found for the resource.
func (r *StoredResult) FoundElementsForPathway(id, resource string) (analysisapi.FoundElements, bool) {
	p, ok := r.Pathway(id)
	if !ok {
		return analysisapi.FoundElements{}, false
	}
	return r.foundElements(id, p, resourceFilter(normalizeResource(resource)))
}

// FoundElementsForPathways returns the found elements of every listed
// pathway that has any, in the order requested.
func (r *StoredResult) FoundElementsForPathways(ids []string, resource string) []analysisapi.FoundElements {
	f := resourceFilter(normalizeResource(resource))
	out := []analysisapi.FoundElements{}
	for _, id := range ids {
		p, ok := r.Pathway(id)
		if !ok {
			continue
		}
		if fe, ok := r.foundElements(id, p, f); ok {
			out = append(out, fe)
		}
	}
	return out
}

// FoundEntities returns the entity hits of a pathway for a resource.
func (r *StoredResult) FoundEntities(id, resource string) (analysisapi.FoundEntities, bool) {
	p, ok := r.Pathway(id)
	if !ok {
		return analysisapi.FoundEntities{}, false
	}
	entities, resources := foundEntities(p, resourceFilter(normalizeResource(resource)))
	if entities == nil {
		entities = []analysisapi.FoundEntity{}
	}
	return analysisapi.FoundEntities{
		Found:       len(entities),
		Identifiers: entities,
		Resources:   resources,
		ExpNames:    cloneStrings(r.expression.ColumnNames),
	}, true
}

// FoundInteractors returns the interactor hits of a pathway for a resource.
func (r *StoredResult) FoundInteractors(id, resource string) (analysisapi.FoundInteractors, bool) {
	p, ok := r.Pathway(id)
	if !ok {
		return analysisapi.FoundInteractors{}, false
	}
	interactors, resources := foundInteractors(p, resourceFilter(normalizeResource(resource)))
	if interactors == nil {
		interactors = []analysisapi.FoundInteractor{}
	}
	return analysisapi.FoundInteractors{
		Found:     len(interactors),
		Entities:  interactors,
		Resources: resources,
		ExpNames:  cloneStrings(r.expression.ColumnNames),
	}, true
}

// PathwayIdentifiers pages the identifiers found in one pathway for a
// resource. A missing pathway, or one with nothing found for the resource,
// is reported as a NotFoundError. Page numbers of zero or below list everything.
func (r *StoredResult) PathwayIdentifiers(id, resource string, pageSize, page int) (analysisapi.PathwayIdentifiers, error) {
	p, ok := r.Pathway(id)
	if !ok {
		return analysisapi.PathwayIdentifiers{}, NotFoundError{Kind: "pathway", ID: id}
	}
	entities, resources := foundEntities(p, resourceFilter(normalizeResource(resource)))
	if len(entities) == 0 {
		return analysisapi.PathwayIdentifiers{}, NotFoundError{Kind: "pathway", ID: id}
	}
	total := len(entities)
	if page > 0 {
		if pageSize <= 0 {
			pageSize = DefaultPageSize
		}
		from, to := pageBounds(total, pageSize, page)
		entities = entities[from:to]
	}
	return analysisapi.PathwayIdentifiers{
		Pathway:     id,
		Found:       total,
		Identifiers: entities,
		Resources:   resources,
		ExpNames:    cloneStrings(r.expression.ColumnNames),
	}, nil
}
