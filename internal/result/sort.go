package result

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey selects the figure pathways are ordered by.
type SortKey string

const (
	SortName           SortKey = "NAME"
	SortTotalEntities  SortKey = "TOTAL_ENTITIES"
	SortTotalReactions SortKey = "TOTAL_REACTIONS"
	SortFoundEntities  SortKey = "FOUND_ENTITIES"
	SortFoundReactions SortKey = "FOUND_REACTIONS"
	SortEntitiesRatio  SortKey = "ENTITIES_RATIO"
	SortEntitiesPValue SortKey = "ENTITIES_PVALUE"
	SortEntitiesFDR    SortKey = "ENTITIES_FDR"
	SortReactionsRatio SortKey = "REACTIONS_RATIO"

	// DefaultSortKey applies when no or an unknown key is given.
	DefaultSortKey = SortEntitiesPValue
)

// Order is the direction of a sort.
type Order string

const (
	Ascending  Order = "ASC"
	Descending Order = "DESC"
)

// sortValues maps every numeric key to the figure it reads from the
// resource-scoped statistics. NAME is handled by the comparator itself.
var sortValues = map[SortKey]func(ResourceStats) float64{
	SortTotalEntities:  func(s ResourceStats) float64 { return float64(s.EntitiesTotal) },
	SortTotalReactions: func(s ResourceStats) float64 { return float64(s.ReactionsTotal) },
	SortFoundEntities:  func(s ResourceStats) float64 { return float64(s.EntitiesFound) },
	SortFoundReactions: func(s ResourceStats) float64 { return float64(s.ReactionsFound) },
	SortEntitiesRatio:  func(s ResourceStats) float64 { return s.EntitiesRatio },
	SortEntitiesPValue: func(s ResourceStats) float64 { return s.EntitiesPValue },
	SortEntitiesFDR:    func(s ResourceStats) float64 { return s.EntitiesFDR },
	SortReactionsRatio: func(s ResourceStats) float64 { return s.ReactionsRatio },
}

// ParseSortKey resolves a key name case-insensitively, falling back to DefaultSortKey.
func ParseSortKey(name string) SortKey {
	key := SortKey(strings.ToUpper(strings.TrimSpace(name)))
	if key == SortName {
		return key
	}
	if _, ok := sortValues[key]; ok {
		return key
	}
	return DefaultSortKey
}

// ParseOrder returns Descending for "DESC" in any case and Ascending otherwise.
func ParseOrder(name string) Order {
	if strings.EqualFold(strings.TrimSpace(name), string(Descending)) {
		return Descending
	}
	return Ascending
}

// comparator orders pathways by key for the given resource with the pathway
// name as secondary key. Descending reverses the whole ordering.
func comparator(key SortKey, order Order, resource string) func(a, b *PathwayResult) int {
	var compare func(a, b *PathwayResult) int
	if value, ok := sortValues[key]; ok {
		compare = func(a, b *PathwayResult) int {
			if c := cmp.Compare(value(a.Statistics(resource)), value(b.Statistics(resource))); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		}
	} else {
		compare = func(a, b *PathwayResult) int { return strings.Compare(a.Name, b.Name) }
	}
	if order == Descending {
		return func(a, b *PathwayResult) int { return compare(b, a) }
	}
	return compare
}

func sortPathways(list []*PathwayResult, key SortKey, order Order, resource string) {
	slices.SortStableFunc(list, comparator(key, order, resource))
}
