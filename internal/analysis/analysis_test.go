package analysis

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"pathwaycore/internal/analysistest"
	"pathwaycore/internal/blob"
	"pathwaycore/internal/data"
	"pathwaycore/internal/result"
	"pathwaycore/internal/snapshot"
	"pathwaycore/pkg/analysisapi"
	"pathwaycore/pkg/domain"
)

// staticData serves a built snapshot without the background loader.
type staticData struct{ d *snapshot.Data }

func (s staticData) EntitiesMap() (*domain.IdentifiersMap[*domain.EntityNode], error) {
	return s.d.Entities, nil
}

func (s staticData) InteractorsMap() (*domain.IdentifiersMap[*domain.InteractorNode], error) {
	return s.d.Interactors, nil
}

func (s staticData) Species() ([]domain.SpeciesNode, error) {
	out := make([]domain.SpeciesNode, 0, len(s.d.Hierarchies))
	for _, h := range s.d.Hierarchies {
		out = append(out, h.Species)
	}
	return out, nil
}

func (s staticData) Hierarchies() (*domain.HierarchiesData, error) {
	return domain.NewHierarchiesData(s.d.Hierarchies), nil
}

type captureLogger struct {
	mu    sync.Mutex
	infos []string
}

func (c *captureLogger) Debug(string, ...any) {}
func (c *captureLogger) Info(msg string, _ ...any) {
	c.mu.Lock()
	c.infos = append(c.infos, msg)
	c.mu.Unlock()
}
func (c *captureLogger) Warn(string, ...any)  {}
func (c *captureLogger) Error(string, ...any) {}

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	return New(staticData{d: analysistest.Data(t)}, opts...)
}

func ids(values ...string) []domain.AnalysisIdentifier {
	out := make([]domain.AnalysisIdentifier, 0, len(values))
	for _, v := range values {
		out = append(out, domain.NewAnalysisIdentifier(v))
	}
	return out
}

func pathwayIDs(res *result.StoredResult, q result.Query) []int64 {
	var out []int64
	for _, p := range res.ResultSummary(q).Pathways {
		out = append(out, p.DBID)
	}
	return out
}

func TestAnalyseOverrepresentation(t *testing.T) {
	logger := &captureLogger{}
	a := newAnalyzer(t, WithLogger(logger))
	res, err := a.Analyse(context.Background(), UserData{Identifiers: ids("P10001", "P10002", "X00000"), Warnings: []string{"w1"}}, Request{Token: "t1", FileName: "input.txt"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	s := res.Summary()
	if s.Type != analysisapi.TypeOverrepresentation || s.Token != "t1" || s.Projection || s.FileName != "input.txt" {
		t.Fatalf("summary = %+v", s)
	}
	if got := pathwayIDs(res, result.Query{SortBy: "FOUND_ENTITIES", Order: "DESC"}); len(got) != 2 {
		t.Fatalf("hit pathways = %v", got)
	}
	if page := res.PageOf("R-HSA-110", "FOUND_ENTITIES", "DESC", "TOTAL", 20); page != 1 {
		t.Fatalf("page of glycolysis = %d", page)
	}
	if page := res.PageOf("R-HSA-120", "FOUND_ENTITIES", "DESC", "TOTAL", 20); page != -1 {
		t.Fatalf("gluconeogenesis should not be listed, page %d", page)
	}
	row := res.FilterByPathways([]string{"R-HSA-110"}, "TOTAL")[0]
	if row.Entities.Found != 2 || row.Entities.Total != 10 {
		t.Fatalf("glycolysis row = %+v", row.Entities)
	}
	nf := res.NotFoundIdentifiers(result.PageRequest{})
	if len(nf) != 1 || nf[0].ID != "X00000" {
		t.Fatalf("not found = %+v", nf)
	}
	if got := res.AnalysisIdentifiers(); !reflect.DeepEqual(got, []string{"P10001", "P10002"}) {
		t.Fatalf("analysis identifiers = %v", got)
	}
	if !reflect.DeepEqual(res.Warnings(), []string{"w1"}) {
		t.Fatalf("warnings = %v", res.Warnings())
	}
	if len(logger.infos) != 1 || logger.infos[0] != "analysis completed" {
		t.Fatalf("logs = %v", logger.infos)
	}
}

func TestAnalyseOnlyOneResolves(t *testing.T) {
	res, err := newAnalyzer(t).Analyse(context.Background(), UserData{Identifiers: ids("P10003", "B", "C")}, Request{Token: "abc"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	var nf []string
	for _, id := range res.NotFoundIdentifiers(result.PageRequest{}) {
		nf = append(nf, id.ID)
	}
	if !reflect.DeepEqual(nf, []string{"B", "C"}) {
		t.Fatalf("not found = %v", nf)
	}
	if got := res.AnalysisIdentifiers(); !reflect.DeepEqual(got, []string{"P10003"}) {
		t.Fatalf("analysis identifiers = %v", got)
	}
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	in := []domain.AnalysisIdentifier{
		{ID: " p10001 ", Exp: []float64{1}},
		{ID: "P10001", Exp: []float64{2}},
		{ID: "  "},
		{ID: "q20001"},
	}
	got := Deduplicate(in)
	want := []domain.AnalysisIdentifier{{ID: "P10001", Exp: []float64{1}}, {ID: "Q20001"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deduplicate = %+v, want %+v", got, want)
	}
	got[0].Exp[0] = 99
	if in[0].Exp[0] != 1 {
		t.Fatalf("deduplicate shares expression values with its input")
	}
}

func TestAnalyseExpression(t *testing.T) {
	ud := UserData{
		Identifiers: []domain.AnalysisIdentifier{
			domain.NewAnalysisIdentifier("P10001", 1.5, -2),
			domain.NewAnalysisIdentifier("Q20001", 4, 0.5),
			domain.NewAnalysisIdentifier("NOPE", 10, 10),
		},
		ColumnNames: []string{"a", "b"},
		SampleName:  "sample",
	}
	res, err := newAnalyzer(t).Analyse(context.Background(), ud, Request{Token: "exp"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	s := res.Summary()
	if s.Type != analysisapi.TypeExpression || s.SampleName != "sample" {
		t.Fatalf("summary = %+v", s)
	}
	e := res.ExpressionSummary()
	if !reflect.DeepEqual(e.ColumnNames, []string{"a", "b"}) || *e.Min != -2 || *e.Max != 10 {
		t.Fatalf("expression = %+v", e)
	}
	fe, ok := res.FoundElementsForPathway("R-HSA-110", "TOTAL")
	if !ok || !reflect.DeepEqual(fe.ExpNames, []string{"a", "b"}) || !reflect.DeepEqual(fe.Entities[0].Exp, []float64{1.5, -2}) {
		t.Fatalf("found elements = %+v", fe)
	}
}

func TestAnalyseProjection(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.Analyse(context.Background(), UserData{Identifiers: ids("Q91001", "Q91003")}, Request{Token: "p", Projection: true})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if s := res.Summary(); !s.Projection || s.Species != analysistest.HumanID {
		t.Fatalf("summary = %+v", s)
	}
	got := pathwayIDs(res, result.Query{SortBy: "NAME"})
	if !reflect.DeepEqual(got, []int64{analysistest.Glycolysis, analysistest.Metabolism}) {
		t.Fatalf("projected pathways = %v", got)
	}
	if m := res.FoundEntitiesMap("UNIPROT"); !reflect.DeepEqual(m, map[string][]string{"Q91001": {"P10001"}}) {
		t.Fatalf("found entities map = %v", m)
	}
	if nf := res.NotFoundIdentifiers(result.PageRequest{}); len(nf) != 0 {
		t.Fatalf("identifier known to the index reported as not found: %+v", nf)
	}
	if got := res.AnalysisIdentifiers(); !reflect.DeepEqual(got, []string{"Q91001"}) {
		t.Fatalf("analysis identifiers = %v", got)
	}

	plain, err := a.Analyse(context.Background(), UserData{Identifiers: ids("Q91001", "Q91003")}, Request{Token: "np"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if got := pathwayIDs(plain, result.Query{}); !reflect.DeepEqual(got, []int64{analysistest.MouseGlyco}) {
		t.Fatalf("unprojected pathways = %v", got)
	}

	viaUserData, err := a.Analyse(context.Background(), UserData{Identifiers: ids("Q91001"), Projection: true}, Request{Token: "ud"})
	if err != nil || !viaUserData.Summary().Projection {
		t.Fatalf("projection from user data not honoured: %v", err)
	}
}

func TestAnalyseProjectionUnknownReference(t *testing.T) {
	a := newAnalyzer(t, WithReferenceTaxID("7227"))
	if a.ReferenceTaxID() != "7227" {
		t.Fatalf("reference = %s", a.ReferenceTaxID())
	}
	_, err := a.Analyse(context.Background(), UserData{Identifiers: ids("P10001")}, Request{Token: "x", Projection: true})
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("expected ErrUnknownSpecies, got %v", err)
	}
}

func TestAnalyseInteractors(t *testing.T) {
	a := newAnalyzer(t)
	with, err := a.Analyse(context.Background(), UserData{Identifiers: ids(analysistest.Interactor)}, Request{Token: "i", Interactors: true})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if got := pathwayIDs(with, result.Query{SortBy: "NAME"}); !reflect.DeepEqual(got, []int64{analysistest.Gluconeo, analysistest.Metabolism}) {
		t.Fatalf("pathways = %v", got)
	}
	if len(with.NotFoundIdentifiers(result.PageRequest{})) != 0 {
		t.Fatalf("interactor counted as not found")
	}
	without, err := a.Analyse(context.Background(), UserData{Identifiers: ids(analysistest.Interactor)}, Request{Token: "n"})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if without.PathwaysFound() != 0 || len(without.NotFoundIdentifiers(result.PageRequest{})) != 1 {
		t.Fatalf("interactors used without being requested")
	}
}

func TestAnalyseRejectsInvalidRequests(t *testing.T) {
	a := newAnalyzer(t)
	if _, err := a.Analyse(context.Background(), UserData{}, Request{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Analyse(ctx, UserData{Identifiers: ids("P10001")}, Request{Token: "c"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyseBeforeDataLoaded(t *testing.T) {
	c := data.New(data.NewBlobSource(blob.NewMemory()))
	_, err := New(c).Analyse(context.Background(), UserData{Identifiers: ids("P10001")}, Request{Token: "early"})
	if !errors.Is(err, data.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestConcurrentAnalysesAreIndependent(t *testing.T) {
	c := data.New(data.NewBlobSource(analysistest.Store(t)))
	c.Initialize(analysistest.SnapshotKey)
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	a := New(c)
	inputs := [][]string{{"P10001", "P10002"}, {"Q20001"}, {"15377"}, {"P10001", "Q20002"}}
	results := make([]*result.StoredResult, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in []string) {
			defer wg.Done()
			res, err := a.Analyse(context.Background(), UserData{Identifiers: ids(in...)}, Request{Token: fmt.Sprintf("t%d", i)})
			if err != nil {
				t.Errorf("analyse %d: %v", i, err)
				return
			}
			results[i] = res
		}(i, in)
	}
	wg.Wait()
	want := [][]int64{
		{analysistest.Glycolysis, analysistest.Metabolism},
		{analysistest.Gluconeo, analysistest.Metabolism},
		{analysistest.Signaling, analysistest.Insulin},
		{analysistest.Gluconeo, analysistest.Glycolysis, analysistest.Metabolism},
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d missing", i)
		}
		if got := pathwayIDs(res, result.Query{SortBy: "NAME"}); !reflect.DeepEqual(got, want[i]) {
			t.Fatalf("result %d pathways = %v, want %v", i, got, want[i])
		}
	}
	metabolism := results[0].FilterByPathways([]string{"R-HSA-100"}, "TOTAL")[0]
	if metabolism.Entities.Found != 2 {
		t.Fatalf("results leaked into each other: metabolism found %d", metabolism.Entities.Found)
	}
}

func TestCompareSpecies(t *testing.T) {
	a := newAnalyzer(t)
	res, err := a.CompareSpecies(context.Background(), analysistest.MouseID, Request{Token: "cmp"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	s := res.Summary()
	if s.Type != analysisapi.TypeSpeciesComparison || s.Species != analysistest.MouseID || !s.Projection {
		t.Fatalf("summary = %+v", s)
	}
	row := res.FilterByPathways([]string{"R-HSA-110"}, "UNIPROT")
	if len(row) != 1 || row[0].Entities.Found != 2 {
		t.Fatalf("glycolysis = %+v", row)
	}
	if _, err := a.CompareSpecies(context.Background(), 1, Request{Token: "cmp"}); !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("expected ErrUnknownSpecies, got %v", err)
	}
	if _, err := a.CompareSpecies(context.Background(), analysistest.MouseID, Request{}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
