package domain

import "strings"

// NormalizeIdentifier is the single normalization rule shared by index
// insertion and lookup: surrounding whitespace is dropped and the value is
// upper-cased. Matching is exact equality after normalization.
func NormalizeIdentifier(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// AnalysisIdentifier is one submitted identifier with its optional expression values.
type AnalysisIdentifier struct {
	ID  string    `json:"id"`
	Exp []float64 `json:"exp,omitempty"`
}

// NewAnalysisIdentifier builds a submitted identifier, normalizing the id.
func NewAnalysisIdentifier(id string, exp ...float64) AnalysisIdentifier {
	var values []float64
	if len(exp) > 0 {
		values = append([]float64(nil), exp...)
	}
	return AnalysisIdentifier{ID: NormalizeIdentifier(id), Exp: values}
}

// Clone returns a copy that shares no backing arrays with the receiver.
func (a AnalysisIdentifier) Clone() AnalysisIdentifier {
	if a.Exp != nil {
		a.Exp = append([]float64(nil), a.Exp...)
	}
	return a
}

// MainIdentifier is an identifier scoped to the resource it belongs to.
type MainIdentifier struct {
	Resource Resource
	ID       string
}

// NewMainIdentifier builds a resource-scoped identifier.
func NewMainIdentifier(r Resource, id string) MainIdentifier {
	return MainIdentifier{Resource: r, ID: NormalizeIdentifier(id)}
}

func (m MainIdentifier) String() string { return m.Resource.Name + ":" + m.ID }

// AnalysisReaction identifies a reaction contained in a pathway.
type AnalysisReaction struct {
	DBID int64  `json:"dbId"`
	StID string `json:"stId"`
}
