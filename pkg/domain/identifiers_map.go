package domain

import "sort"

// IdentifiersMap indexes nodes by normalized identifier and resource.
//
// Construction is single-threaded and additive. Once construction is over the
// map is only read, and reads never mutate it, so concurrent readers need no locking.
type IdentifiersMap[N comparable] struct {
	entries map[string]map[Resource][]N
	nodes   int
}

// NewIdentifiersMap returns an empty index.
func NewIdentifiersMap[N comparable]() *IdentifiersMap[N] {
	return &IdentifiersMap[N]{entries: make(map[string]map[Resource][]N)}
}

// Add indexes node under identifier for resource. Adding the same triple twice is a no-op.
// Empty identifiers are ignored.
func (m *IdentifiersMap[N]) Add(identifier string, r Resource, node N) {
	key := NormalizeIdentifier(identifier)
	if key == "" {
		return
	}
	byResource, ok := m.entries[key]
	if !ok {
		byResource = make(map[Resource][]N, 1)
		m.entries[key] = byResource
	}
	for _, existing := range byResource[r] {
		if existing == node {
			return
		}
	}
	byResource[r] = append(byResource[r], node)
	m.nodes++
}

// Get returns the resource to nodes mapping of an identifier. The returned map
// is a copy and is empty, never nil, when the identifier is unknown.
func (m *IdentifiersMap[N]) Get(identifier string) map[Resource][]N {
	byResource := m.entries[NormalizeIdentifier(identifier)]
	out := make(map[Resource][]N, len(byResource))
	for r, nodes := range byResource {
		out[r] = append([]N(nil), nodes...)
	}
	return out
}

// Resolve returns the nodes an identifier maps to within one resource.
func (m *IdentifiersMap[N]) Resolve(identifier string, r Resource) []N {
	nodes := m.entries[NormalizeIdentifier(identifier)][r]
	if len(nodes) == 0 {
		return nil
	}
	return append([]N(nil), nodes...)
}

// Contains reports whether the identifier resolves in any resource.
func (m *IdentifiersMap[N]) Contains(identifier string) bool {
	return len(m.entries[NormalizeIdentifier(identifier)]) > 0
}

// Len is the number of distinct identifiers.
func (m *IdentifiersMap[N]) Len() int { return len(m.entries) }

// Associations is the number of (identifier, resource, node) triples.
func (m *IdentifiersMap[N]) Associations() int { return m.nodes }

// Identifiers lists the indexed identifiers in ascending order.
func (m *IdentifiersMap[N]) Identifiers() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range visits every entry in identifier then resource-name order until fn returns false.
func (m *IdentifiersMap[N]) Range(fn func(identifier string, r Resource, nodes []N) bool) {
	for _, key := range m.Identifiers() {
		byResource := m.entries[key]
		resources := make([]Resource, 0, len(byResource))
		for r := range byResource {
			resources = append(resources, r)
		}
		sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })
		for _, r := range resources {
			if !fn(key, r, byResource[r]) {
				return
			}
		}
	}
}
