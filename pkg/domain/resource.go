// Package domain holds the in-memory analysis model: resources, identifiers,
// entity and interactor nodes, the identifier index, and the per-species
// pathway hierarchies together with the analysis-scoped aggregates built over
// them.
package domain

import (
	"sort"
	"strings"
	"sync"
)

// ResourceKind distinguishes the capabilities of a Resource.
type ResourceKind uint8

const (
	// KindAggregate is reserved for the TOTAL pseudo-resource.
	KindAggregate ResourceKind = iota
	// KindMain marks resources whose identifiers cross-reference entities in pathways.
	KindMain
	// KindPlain marks resources only known through interactors.
	KindPlain
)

func (k ResourceKind) String() string {
	switch k {
	case KindAggregate:
		return "aggregate"
	case KindMain:
		return "main"
	case KindPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// TotalName is the name of the aggregate pseudo-resource.
const TotalName = "TOTAL"

// Resource is a named identifier source. Values are comparable and safe to use as map keys.
type Resource struct {
	Name string
	Kind ResourceKind
}

// Total aggregates every real resource.
var Total = Resource{Name: TotalName, Kind: KindAggregate}

// IsMain reports whether the resource can carry cross-referenced entities.
func (r Resource) IsMain() bool { return r.Kind == KindMain }

// IsTotal reports whether r is the aggregate pseudo-resource.
func (r Resource) IsTotal() bool { return r.Kind == KindAggregate }

func (r Resource) String() string { return r.Name }

var (
	registryMu sync.RWMutex
	registry   = map[string]Resource{TotalName: Total}
)

func init() {
	for _, name := range []string{"UNIPROT", "ENSEMBL", "CHEBI", "NCBI_PROTEIN", "EMBL", "COMPOUND", "MIRBASE", "IUPHAR"} {
		RegisterResource(name, KindMain)
	}
	RegisterResource("INTACT", KindPlain)
}

// RegisterResource adds a resource to the registry. Names are case-insensitive.
// Registering a name that already exists returns the existing resource unchanged.
func RegisterResource(name string, kind ResourceKind) Resource {
	key := resourceKey(name)
	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := registry[key]; ok {
		return existing
	}
	if kind == KindAggregate {
		kind = KindMain
	}
	r := Resource{Name: key, Kind: kind}
	registry[key] = r
	return r
}

// LookupResource resolves a resource by name. Unknown names report false.
func LookupResource(name string) (Resource, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[resourceKey(name)]
	return r, ok
}

// Resources lists the registered resources (excluding TOTAL) ordered by name.
func Resources() []Resource {
	registryMu.RLock()
	out := make([]Resource, 0, len(registry))
	for _, r := range registry {
		if !r.IsTotal() {
			out = append(out, r)
		}
	}
	registryMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsTotalName reports whether name designates the TOTAL pseudo-resource.
func IsTotalName(name string) bool {
	return resourceKey(name) == TotalName
}

func resourceKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
