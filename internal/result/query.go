package result

import (
	"fmt"
	"slices"
	"strings"

	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

// DefaultPageSize applies when a listing is requested without a page size.
const DefaultPageSize = 20

// StoredResult is a finalized analysis result. It is safe for concurrent use:
// nothing it holds is modified after construction and every query sorts and
// filters its own copy of the pathway list.
type StoredResult struct {
	summary         analysisapi.AnalysisSummary
	expression      analysisapi.ExpressionSummary
	warnings        []string
	notFound        []analysisapi.IdentifierSummary
	pathways        []*PathwayResult
	resourceSummary []analysisapi.ResourceSummary
}

func newStoredResult(summary analysisapi.AnalysisSummary, expression analysisapi.ExpressionSummary, warnings []string, notFound []analysisapi.IdentifierSummary, pathways []*PathwayResult, resources []analysisapi.ResourceSummary) *StoredResult {
	if notFound == nil {
		notFound = []analysisapi.IdentifierSummary{}
	}
	if pathways == nil {
		pathways = []*PathwayResult{}
	}
	if len(resources) == 0 {
		resources = resourceSummary(pathways)
	}
	return &StoredResult{
		summary:         summary,
		expression:      expression,
		warnings:        warnings,
		notFound:        notFound,
		pathways:        pathways,
		resourceSummary: resources,
	}
}

// Query selects, orders and pages a result listing.
type Query struct {
	SortBy   string
	Order    string
	Resource string // defaults to TOTAL
	PageSize int    // defaults to DefaultPageSize
	Page     int    // 1-indexed; zero or below lists every pathway
}

// PageRequest pages identifier listings. The zero value lists everything.
type PageRequest struct {
	Size   int
	Number int
	Paged  bool
}

// Page requests one page of the given size.
func Page(size, number int) PageRequest { return PageRequest{Size: size, Number: number, Paged: true} }

func normalizeResource(resource string) string {
	name := strings.ToUpper(strings.TrimSpace(resource))
	if name == "" {
		return domain.TotalName
	}
	return name
}

// working returns a private copy of the pathway list filtered by resource.
// TOTAL keeps every pathway; unknown resources keep none.
func (r *StoredResult) working(resource string) []*PathwayResult {
	if domain.IsTotalName(resource) {
		return slices.Clone(r.pathways)
	}
	out := make([]*PathwayResult, 0, len(r.pathways))
	for _, p := range r.pathways {
		if p.HitFor(resource) {
			out = append(out, p)
		}
	}
	return out
}

func (r *StoredResult) sorted(sortBy, order, resource string) []*PathwayResult {
	list := r.working(resource)
	sortPathways(list, ParseSortKey(sortBy), ParseOrder(order), resource)
	return list
}

// Summary returns the analysis summary.
func (r *StoredResult) Summary() analysisapi.AnalysisSummary { return r.summary }

// Token is the token the result is stored under.
func (r *StoredResult) Token() string { return r.summary.Token }

// Warnings returns the input warnings carried by the result.
func (r *StoredResult) Warnings() []string { return cloneStrings(r.warnings) }

// ExpressionSummary returns the expression column names and bounds.
func (r *StoredResult) ExpressionSummary() analysisapi.ExpressionSummary {
	return analysisapi.ExpressionSummary{
		ColumnNames: cloneStrings(r.expression.ColumnNames),
		Min:         cloneFloat(r.expression.Min),
		Max:         cloneFloat(r.expression.Max),
	}
}

// ResourceSummary returns the hit pathway count per resource, TOTAL first.
func (r *StoredResult) ResourceSummary() []analysisapi.ResourceSummary {
	return slices.Clone(r.resourceSummary)
}

// PathwaysFound is the number of hit pathways.
func (r *StoredResult) PathwaysFound() int { return len(r.pathways) }

// Pathway looks up a hit pathway by stable or database id.
func (r *StoredResult) Pathway(id string) (*PathwayResult, bool) {
	for _, p := range r.pathways {
		if p.Is(id) {
			return p, true
		}
	}
	return nil, false
}

// pageBounds returns the slice bounds of the 1-indexed page of n items.
// Pages past the end, or a non-positive size, yield an empty range. The
// comparison is done before multiplying so huge page numbers cannot overflow.
func pageBounds(n, size, page int) (from, to int) {
	if n == 0 || size <= 0 || page < 1 || page-1 > (n-1)/size {
		return n, n
	}
	from = (page - 1) * size
	return from, from + min(size, n-from)
}

// ResultSummary filters by resource, sorts and pages the hit pathways.
func (r *StoredResult) ResultSummary(q Query) analysisapi.AnalysisResult {
	resource := normalizeResource(q.Resource)
	list := r.sorted(q.SortBy, q.Order, resource)
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if q.Page > 0 {
		from, to := pageBounds(len(list), pageSize, q.Page)
		list = list[from:to]
	}
	rows := make([]analysisapi.PathwaySummary, 0, len(list))
	for _, p := range list {
		rows = append(rows, p.summary(resource, r.summary.Interactors))
	}
	return analysisapi.AnalysisResult{
		Summary:             r.summary,
		Expression:          r.ExpressionSummary(),
		IdentifiersNotFound: len(r.notFound),
		PathwaysFound:       len(r.pathways),
		Pathways:            rows,
		ResourceSummary:     r.ResourceSummary(),
		Warnings:            r.Warnings(),
	}
}

// PageOf returns the 1-indexed page holding a pathway after filtering and
// sorting, or -1 when the pathway is not listed.
func (r *StoredResult) PageOf(pathwayID, sortBy, order, resource string, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	for i, p := range r.sorted(sortBy, order, normalizeResource(resource)) {
		if p.Is(pathwayID) {
			return i/pageSize + 1
		}
	}
	return -1
}

// FilterByPathways lists the given pathways that remain after filtering by
// resource, in result order.
func (r *StoredResult) FilterByPathways(ids []string, resource string) []analysisapi.PathwaySummary {
	resource = normalizeResource(resource)
	out := []analysisapi.PathwaySummary{}
	for _, p := range r.working(resource) {
		if p.In(ids) {
			out = append(out, p.summary(resource, r.summary.Interactors))
		}
	}
	return out
}

// FilterBySpecies lists the pathways of one species after filtering by
// resource and sorting, with the bounds of their averaged expression values.
func (r *StoredResult) FilterBySpecies(speciesID int64, resource, sortBy, order string) (analysisapi.SpeciesFilteredResult, error) {
	if strings.TrimSpace(resource) == "" {
		return analysisapi.SpeciesFilteredResult{}, fmt.Errorf("%w: resource is required", ErrDataFormat)
	}
	resource = normalizeResource(resource)
	out := analysisapi.SpeciesFilteredResult{Type: r.summary.Type, Pathways: []analysisapi.PathwayBase{}}
	var lo, hi *float64
	for _, p := range r.sorted(sortBy, order, resource) {
		if p.Species.DBID != speciesID {
			continue
		}
		s := p.Statistics(resource)
		out.Pathways = append(out.Pathways, analysisapi.PathwayBase{
			StID:     p.StID,
			DBID:     p.DBID,
			PValue:   s.EntitiesPValue,
			FDR:      s.EntitiesFDR,
			Exp:      cloneFloats(s.Exp),
			Entities: s.EntitiesFound,
		})
		for _, v := range s.Exp {
			if lo == nil || v < *lo {
				lo = cloneFloat(&v)
			}
			if hi == nil || v > *hi {
				hi = cloneFloat(&v)
			}
		}
	}
	if len(r.expression.ColumnNames) > 0 {
		out.Expression = &analysisapi.ExpressionSummary{ColumnNames: cloneStrings(r.expression.ColumnNames), Min: lo, Max: hi}
	}
	return out, nil
}

// NotFoundIdentifiers lists the submitted identifiers that resolved nowhere,
// in input order. Paging only applies when requested; negative values are
// treated as zero and pages past the end are empty.
func (r *StoredResult) NotFoundIdentifiers(page PageRequest) []analysisapi.IdentifierSummary {
	list := r.notFound
	if page.Paged {
		from, to := pageBounds(len(list), page.Size, max(page.Number, 1))
		if from == to {
			return []analysisapi.IdentifierSummary{}
		}
		list = list[from:to]
	}
	out := make([]analysisapi.IdentifierSummary, 0, len(list))
	for _, id := range list {
		out = append(out, analysisapi.IdentifierSummary{ID: id.ID, Exp: cloneFloats(id.Exp)})
	}
	return out
}

// FoundEntitiesMap maps every submitted identifier found as an entity to
// the main identifiers it resolved to, restricted to one resource unless
// resource is TOTAL.
func (r *StoredResult) FoundEntitiesMap(resource string) map[string][]string {
	resource = normalizeResource(resource)
	out := make(map[string][]string)
	seen := make(map[[2]string]struct{})
	for _, p := range r.pathways {
		for _, h := range p.Entities {
			if !domain.IsTotalName(resource) && h.Resource != resource {
				continue
			}
			key := [2]string{h.Identifier, h.Resource + ":" + h.MainID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out[h.Identifier] = append(out[h.Identifier], h.MainID)
		}
	}
	for id := range out {
		slices.Sort(out[id])
	}
	return out
}

// AnalysisIdentifiers lists the submitted identifiers found as entities, ascending.
func (r *StoredResult) AnalysisIdentifiers() []string {
	m := r.FoundEntitiesMap(domain.TotalName)
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// FoundReactions returns the database ids of the reactions found in the
// given pathways for a resource. TOTAL covers every resource; resources
// that carry no entities yield nothing.
func (r *StoredResult) FoundReactions(ids []string, resource string) []int64 {
	resource = normalizeResource(resource)
	set := make(map[int64]struct{})
	for _, p := range r.pathways {
		if !p.In(ids) {
			continue
		}
		for _, rx := range p.Statistics(resource).Reactions {
			set[rx] = struct{}{}
		}
	}
	out := make([]int64, 0, len(set))
	for rx := range set {
		out = append(out, rx)
	}
	slices.Sort(out)
	return out
}
