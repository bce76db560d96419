// Package analysisapi defines the serializable values the analysis core hands
// to outer layers. Nothing here references internal node types.
package analysisapi

// AnalysisType names the kind of analysis a result was produced by.
type AnalysisType string

const (
	TypeOverrepresentation AnalysisType = "OVERREPRESENTATION"
	TypeExpression         AnalysisType = "EXPRESSION"
	TypeSpeciesComparison  AnalysisType = "SPECIES_COMPARISON"
)

// AnalysisSummary describes how a result was computed.
type AnalysisSummary struct {
	Token       string       `json:"token"`
	Projection  bool         `json:"projection"`
	Interactors bool         `json:"interactors"`
	Type        AnalysisType `json:"type"`
	SampleName  string       `json:"sampleName,omitempty"`
	Species     int64        `json:"species,omitempty"`
	Text        bool         `json:"text"`
	FileName    string       `json:"fileName,omitempty"`
}

// SpeciesSummary identifies the species of a pathway.
type SpeciesSummary struct {
	DBID  int64  `json:"dbId"`
	TaxID string `json:"taxId"`
	Name  string `json:"name"`
}

// EntityStatistics are the entity figures of a pathway for one resource.
type EntityStatistics struct {
	Resource         string    `json:"resource"`
	Total            int       `json:"total"`
	Found            int       `json:"found"`
	InteractorsFound int       `json:"interactorsFound,omitempty"`
	Ratio            float64   `json:"ratio"`
	PValue           float64   `json:"pValue"`
	FDR              float64   `json:"fdr"`
	Exp              []float64 `json:"exp,omitempty"`
}

// ReactionStatistics are the reaction figures of a pathway for one resource.
type ReactionStatistics struct {
	Resource string  `json:"resource"`
	Total    int     `json:"total"`
	Found    int     `json:"found"`
	Ratio    float64 `json:"ratio"`
}

// PathwaySummary is one row of a result listing.
type PathwaySummary struct {
	StID      string             `json:"stId"`
	DBID      int64              `json:"dbId"`
	Name      string             `json:"name"`
	Species   SpeciesSummary     `json:"species"`
	LLP       bool               `json:"llp"`
	Entities  EntityStatistics   `json:"entities"`
	Reactions ReactionStatistics `json:"reactions"`
}

// PathwayBase is the reduced pathway row of species-filtered views.
type PathwayBase struct {
	StID     string    `json:"stId"`
	DBID     int64     `json:"dbId"`
	PValue   float64   `json:"pValue"`
	FDR      float64   `json:"fdr"`
	Exp      []float64 `json:"exp,omitempty"`
	Entities int       `json:"entities"`
}

// ResourceSummary counts the hit pathways of a resource.
type ResourceSummary struct {
	Resource string `json:"resource"`
	Pathways int    `json:"pathways"`
}

// IdentifierSummary is a submitted identifier echoed back.
type IdentifierSummary struct {
	ID  string    `json:"id"`
	Exp []float64 `json:"exp,omitempty"`
}

// ExpressionSummary names the expression columns and, in filtered views,
// their observed bounds.
type ExpressionSummary struct {
	ColumnNames []string `json:"columnNames"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// AnalysisResult is the paged listing of a result.
type AnalysisResult struct {
	Summary             AnalysisSummary   `json:"summary"`
	Expression          ExpressionSummary `json:"expression"`
	IdentifiersNotFound int               `json:"identifiersNotFound"`
	PathwaysFound       int               `json:"pathwaysFound"`
	Pathways            []PathwaySummary  `json:"pathways"`
	ResourceSummary     []ResourceSummary `json:"resourceSummary"`
	Warnings            []string          `json:"warnings,omitempty"`
}

// IdentifierMap lists the identifiers of one resource a submitted identifier maps to.
type IdentifierMap struct {
	Resource string   `json:"resource"`
	IDs      []string `json:"ids"`
}

// FoundEntity is a submitted identifier found among a pathway's entities.
type FoundEntity struct {
	ID     string          `json:"id"`
	Exp    []float64       `json:"exp,omitempty"`
	MapsTo []IdentifierMap `json:"mapsTo"`
}

// FoundInteractor is a submitted identifier found as an interactor of a pathway's entities.
type FoundInteractor struct {
	ID            string          `json:"id"`
	Exp           []float64       `json:"exp,omitempty"`
	MapsTo        []string        `json:"mapsTo"`
	InteractsWith []IdentifierMap `json:"interactsWith"`
}

// FoundEntities are the entity hits of a pathway.
type FoundEntities struct {
	Found       int           `json:"found"`
	Identifiers []FoundEntity `json:"identifiers"`
	Resources   []string      `json:"resources"`
	ExpNames    []string      `json:"expNames"`
}

// FoundInteractors are the interactor hits of a pathway.
type FoundInteractors struct {
	Found     int               `json:"found"`
	Entities  []FoundInteractor `json:"entities"`
	Resources []string          `json:"resources"`
	ExpNames  []string          `json:"expNames"`
}

// FoundElements combines entity and interactor hits of one pathway.
type FoundElements struct {
	Pathway          string            `json:"pathway"`
	FoundEntities    int               `json:"foundEntities"`
	FoundInteractors int               `json:"foundInteractors"`
	Entities         []FoundEntity     `json:"entities"`
	Interactors      []FoundInteractor `json:"interactors"`
	Resources        []string          `json:"resources"`
	ExpNames         []string          `json:"expNames"`
}

// PathwayIdentifiers is the paged identifier listing of one pathway.
type PathwayIdentifiers struct {
	Pathway     string        `json:"pathway"`
	Found       int           `json:"found"`
	Identifiers []FoundEntity `json:"identifiers"`
	Resources   []string      `json:"resources"`
	ExpNames    []string      `json:"expNames"`
}

// SpeciesFilteredResult restricts a result to one species.
type SpeciesFilteredResult struct {
	Type       AnalysisType       `json:"type"`
	Expression *ExpressionSummary `json:"expressionSummary,omitempty"`
	Pathways   []PathwayBase      `json:"pathways"`
}
