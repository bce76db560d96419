package domain

import "sort"

// EntityNode is a physical entity resolvable through the identifier index.
// Pathways maps a pathway DBID to the reactions the entity takes part in there.
type EntityNode struct {
	ID         int64
	Species    SpeciesNode
	Identifier MainIdentifier
	Pathways   map[int64][]AnalysisReaction
	// Orthologs are the inferred counterparts in the reference species.
	Orthologs []*EntityNode
}

// NewEntityNode constructs an entity node with no pathway participation yet.
func NewEntityNode(id int64, species SpeciesNode, identifier MainIdentifier) *EntityNode {
	return &EntityNode{
		ID:         id,
		Species:    species,
		Identifier: identifier,
		Pathways:   make(map[int64][]AnalysisReaction),
	}
}

// AddParticipation records that the entity takes part in the given reactions of a pathway.
func (n *EntityNode) AddParticipation(pathway int64, reactions ...AnalysisReaction) {
	n.Pathways[pathway] = appendReactions(n.Pathways[pathway], reactions)
}

// AddOrtholog links an inferred counterpart, ignoring duplicates and self links.
func (n *EntityNode) AddOrtholog(o *EntityNode) {
	if o == nil || o == n {
		return
	}
	for _, existing := range n.Orthologs {
		if existing == o {
			return
		}
	}
	n.Orthologs = append(n.Orthologs, o)
}

// PathwayIDs returns the pathways the entity participates in, ascending.
func (n *EntityNode) PathwayIDs() []int64 {
	return sortedPathwayIDs(n.Pathways)
}

// InteractorNode is an interaction partner of one or more main identifiers.
// Targets keeps the pathway participation of each bound identifier apart so
// a hit is only credited where its own target takes part.
type InteractorNode struct {
	Accession     string
	InteractsWith []MainIdentifier
	Targets       map[MainIdentifier]map[int64][]AnalysisReaction
}

// NewInteractorNode constructs an interactor node for an accession.
func NewInteractorNode(accession string) *InteractorNode {
	return &InteractorNode{
		Accession: NormalizeIdentifier(accession),
		Targets:   make(map[MainIdentifier]map[int64][]AnalysisReaction),
	}
}

// AddTarget records a main identifier the interactor binds to together with
// the pathways that identifier takes part in. Repeated targets merge.
func (n *InteractorNode) AddTarget(m MainIdentifier, pathways map[int64][]AnalysisReaction) {
	byPathway, ok := n.Targets[m]
	if !ok {
		byPathway = make(map[int64][]AnalysisReaction, len(pathways))
		n.Targets[m] = byPathway
		n.InteractsWith = append(n.InteractsWith, m)
	}
	for _, id := range sortedPathwayIDs(pathways) {
		byPathway[id] = appendReactions(byPathway[id], pathways[id])
	}
}

// TargetPathwayIDs returns the pathways m takes part in, ascending.
func (n *InteractorNode) TargetPathwayIDs(m MainIdentifier) []int64 {
	return sortedPathwayIDs(n.Targets[m])
}

// PathwayIDs returns the pathways reached through any target, ascending.
func (n *InteractorNode) PathwayIDs() []int64 {
	union := make(map[int64][]AnalysisReaction)
	for _, byPathway := range n.Targets {
		for id := range byPathway {
			union[id] = nil
		}
	}
	return sortedPathwayIDs(union)
}

func appendReactions(dst []AnalysisReaction, add []AnalysisReaction) []AnalysisReaction {
	if dst == nil {
		dst = make([]AnalysisReaction, 0, len(add))
	}
next:
	for _, r := range add {
		for _, existing := range dst {
			if existing == r {
				continue next
			}
		}
		dst = append(dst, r)
	}
	return dst
}

func sortedPathwayIDs(m map[int64][]AnalysisReaction) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
