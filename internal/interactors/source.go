// Package interactors ingests molecular interaction data into the interactor
// index of a snapshot. Every entity in the snapshot is looked up as an
// interaction target and the partners found become interactor nodes that
// inherit the target's pathway participation.
package interactors

import (
	"context"
	"sort"
	"sync"

	"pathwaycore/pkg/domain"
)

// Interactor is one interaction partner of a target accession.
type Interactor struct {
	Accession           string `json:"accession"`
	Alias               string `json:"alias,omitempty"`
	AliasWithoutSpecies string `json:"aliasWithoutSpecies,omitempty"`
	Resource            string `json:"resource"`
}

// Source returns the interaction partners of a target accession.
type Source interface {
	Interactors(ctx context.Context, target string) ([]Interactor, error)
}

// MemorySource is an in-memory Source keyed by normalized target accession.
type MemorySource struct {
	mu      sync.RWMutex
	targets map[string][]Interactor
}

// NewMemorySource returns an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{targets: make(map[string][]Interactor)}
}

// Add records an interaction partner of target.
func (s *MemorySource) Add(target string, in Interactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.NormalizeIdentifier(target)
	s.targets[key] = append(s.targets[key], in)
}

// Targets lists the known targets, ascending.
func (s *MemorySource) Targets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.targets))
	for k := range s.targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Interactors implements Source.
func (s *MemorySource) Interactors(ctx context.Context, target string) ([]Interactor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Interactor(nil), s.targets[domain.NormalizeIdentifier(target)]...), nil
}
