package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
)

type fakeRetriever struct {
	queries  []string
	passages []Passage
	err      error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func (f *fakeRetriever) Stats(ctx context.Context) (CollectionStats, error) {
	return CollectionStats{DocumentCount: 1}, nil
}

type fakeGenerator struct {
	initialCalls  int
	improvedCalls int
	initialErr    error
	improvedPrev  string
	improvedCrit  string
}

func (f *fakeGenerator) GenerateInitial(ctx context.Context, query string, passages []Passage) (string, error) {
	f.initialCalls++
	if f.initialErr != nil {
		return "", f.initialErr
	}
	return "initial answer", nil
}

func (f *fakeGenerator) GenerateImproved(ctx context.Context, query, previousAnswer, critique string, passages []Passage) (string, error) {
	f.improvedCalls++
	f.improvedPrev = previousAnswer
	f.improvedCrit = critique
	return "improved answer", nil
}

type fakeCritic struct {
	critiques  []Critique
	calls      int
	err        error
	improveErr error
	improved   string
}

func (f *fakeCritic) Critique(ctx context.Context, query, answer string, sources []string) (Critique, error) {
	f.calls++
	if f.err != nil {
		return Critique{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.critiques) {
		idx = len(f.critiques) - 1
	}
	return f.critiques[idx], nil
}

func (f *fakeCritic) ImproveQuery(ctx context.Context, query string, critique Critique) (string, error) {
	if f.improveErr != nil {
		return "", f.improveErr
	}
	if f.improved != "" {
		return f.improved, nil
	}
	return query + " (refined)", nil
}

func approvedCritique() Critique {
	return Critique{Approved: true, Confidence: 0.9, RawText: "APPROVED"}
}

func rejectedCritique(flaws ...string) Critique {
	conf := 0.7
	if len(flaws) > 0 && len(flaws) <= 2 {
		conf = 0.5
	} else if len(flaws) > 2 {
		conf = 0.3
	}
	return Critique{Approved: false, Confidence: conf, Flaws: flaws, RawText: "FLAW: something"}
}

func stages(trace []Step) []Stage {
	out := make([]Stage, len(trace))
	for i, s := range trace {
		out[i] = s.Stage
	}
	return out
}

func assertStages(t *testing.T, trace []Step, want ...Stage) {
	t.Helper()
	got := stages(trace)
	if len(got) != len(want) {
		t.Fatalf("trace stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace stages = %v, want %v", got, want)
		}
	}
}

func TestRunApprovedFirstPass(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{
		{Content: "useState returns a pair", SourceID: "React Docs - Hooks"},
	}}
	critic := &fakeCritic{critiques: []Critique{approvedCritique()}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "How do I use useState?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	assertStages(t, result.Trace, StageRetrieve, StageGenerate, StageCritique, StageFinalize)
	if result.FinalAnswer != "initial answer" {
		t.Errorf("final answer = %q", result.FinalAnswer)
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", result.Confidence)
	}
	if !result.Approved {
		t.Error("expected approved result")
	}
	if result.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", result.Iterations)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "React Docs - Hooks" {
		t.Errorf("sources = %v", result.Sources)
	}
}

func TestRunRejectedThenApproved(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	gen := &fakeGenerator{}
	critic := &fakeCritic{
		critiques: []Critique{rejectedCritique("outdated API"), approvedCritique()},
		improved:  "How do I use useState in React 18?",
	}
	ctrl, err := NewController(retriever, gen, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "How do I use useState?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	assertStages(t, result.Trace,
		StageRetrieve, StageGenerate, StageCritique,
		StageRewriteQuery, StageRetrieve, StageGenerate, StageCritique,
		StageFinalize)

	if result.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", result.Confidence)
	}
	if result.FinalAnswer != "improved answer" {
		t.Errorf("final answer = %q", result.FinalAnswer)
	}
	if result.Query != "How do I use useState?" {
		t.Errorf("result query = %q, want original query", result.Query)
	}
	if gen.initialCalls != 1 || gen.improvedCalls != 1 {
		t.Errorf("generator calls = %d initial, %d improved", gen.initialCalls, gen.improvedCalls)
	}
	if gen.improvedPrev != "initial answer" {
		t.Errorf("improved generation saw previous answer %q", gen.improvedPrev)
	}
	if gen.improvedCrit != "FLAW: something" {
		t.Errorf("improved generation saw critique %q, want the rejecting critique text", gen.improvedCrit)
	}
	if len(retriever.queries) != 2 || retriever.queries[1] != "How do I use useState in React 18?" {
		t.Errorf("retriever queries = %v", retriever.queries)
	}
}

func TestRunExhaustsIterationBudget(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{critiques: []Critique{rejectedCritique("wrong version")}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic, WithMaxIterations(1))
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// One rewrite cycle, then the second rejection exhausts the budget.
	if critic.calls != 2 {
		t.Errorf("critique calls = %d, want 2", critic.calls)
	}
	if result.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Iterations)
	}
	if result.Approved {
		t.Error("expected unapproved result")
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want last critique confidence 0.5", result.Confidence)
	}
	last := result.Trace[len(result.Trace)-1]
	if last.Stage != StageFinalize {
		t.Errorf("last stage = %v", last.Stage)
	}
}

func TestRunZeroIterationsNeverRewrites(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{critiques: []Critique{rejectedCritique("flaw one")}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic, WithMaxIterations(0))
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	assertStages(t, result.Trace, StageRetrieve, StageGenerate, StageCritique, StageFinalize)
	if critic.calls != 1 {
		t.Errorf("critique calls = %d, want 1", critic.calls)
	}
}

func TestRunAlwaysTerminates(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{critiques: []Critique{rejectedCritique("a", "b", "c")}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic, WithMaxIterations(3))
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if critic.calls != 4 {
		t.Errorf("critique calls = %d, want maxIterations+1 = 4", critic.calls)
	}
	if result.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", result.Confidence)
	}
}

func TestRunRetrievalFailureContinues(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("%w: store unavailable", ragerrors.ErrRetrieval)}
	critic := &fakeCritic{critiques: []Critique{approvedCritique()}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FinalAnswer != "initial answer" {
		t.Errorf("final answer = %q", result.FinalAnswer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("sources = %v, want none", result.Sources)
	}
	if result.Trace[0].Error == "" {
		t.Error("expected retrieve step to record the error")
	}
}

func TestRunGenerationFailureUsesFallback(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	gen := &fakeGenerator{initialErr: errors.New("model overloaded")}
	critic := &fakeCritic{critiques: []Critique{approvedCritique()}}
	ctrl, err := NewController(retriever, gen, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.FinalAnswer != "Error generating response" {
		t.Errorf("final answer = %q", result.FinalAnswer)
	}
}

func TestRunCriticFailureFailsOpen(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{err: errors.New("critic unavailable")}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !result.Approved {
		t.Error("critic failure should approve the answer")
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", result.Confidence)
	}
	assertStages(t, result.Trace, StageRetrieve, StageGenerate, StageCritique, StageFinalize)
}

func TestRunRewriteFailureKeepsQuery(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{
		critiques:  []Critique{rejectedCritique("flaw"), approvedCritique()},
		improveErr: errors.New("rewrite model down"),
	}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	_, err = ctrl.Run(context.Background(), "original query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(retriever.queries) != 2 {
		t.Fatalf("retriever queries = %v", retriever.queries)
	}
	if retriever.queries[1] != "original query" {
		t.Errorf("second retrieval used %q, want unchanged query", retriever.queries[1])
	}
}

func TestRunRejectedWithoutFlawsStillRewrites(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{critiques: []Critique{rejectedCritique(), approvedCritique()}}
	ctrl, err := NewController(retriever, &fakeGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	found := false
	for _, step := range result.Trace {
		if step.Stage == StageRewriteQuery {
			found = true
		}
	}
	if !found {
		t.Error("expected a rewrite step for a rejected answer with no listed flaws")
	}
}

type panickingGenerator struct{}

func (panickingGenerator) GenerateInitial(ctx context.Context, query string, passages []Passage) (string, error) {
	panic("boom")
}

func (panickingGenerator) GenerateImproved(ctx context.Context, query, previousAnswer, critique string, passages []Passage) (string, error) {
	panic("boom")
}

func TestRunRecoversPanicAsFatal(t *testing.T) {
	retriever := &fakeRetriever{passages: []Passage{{Content: "doc", SourceID: "src"}}}
	critic := &fakeCritic{critiques: []Critique{approvedCritique()}}
	ctrl, err := NewController(retriever, panickingGenerator{}, critic)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	result, err := ctrl.Run(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error from panicking stage")
	}
	if !errors.Is(err, ragerrors.ErrFatalWorkflow) {
		t.Fatalf("error = %v, want ErrFatalWorkflow", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	_, err := NewController(nil, &fakeGenerator{}, &fakeCritic{})
	if !errors.Is(err, ragerrors.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestPassageSourcesDedupes(t *testing.T) {
	sources := passageSources([]Passage{
		{SourceID: "a"}, {SourceID: "b"}, {SourceID: "a"}, {SourceID: ""},
	})
	want := []string{"a", "b", "Unknown"}
	if len(sources) != len(want) {
		t.Fatalf("sources = %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Fatalf("sources = %v, want %v", sources, want)
		}
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "90% (high confidence)"},
		{0.7, "70% (medium confidence)"},
		{0.5, "50% (low confidence)"},
	}
	for _, tt := range tests {
		if got := FormatConfidence(tt.score); got != tt.want {
			t.Errorf("FormatConfidence(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDecideTransitions(t *testing.T) {
	tests := []struct {
		approved      bool
		iteration     int
		maxIterations int
		want          Stage
	}{
		{true, 1, 2, StageFinalize},
		{false, 1, 2, StageRewriteQuery},
		{false, 3, 2, StageFinalize},
		{false, 1, 0, StageFinalize},
		{false, 1, 1, StageRewriteQuery},
		{false, 2, 1, StageFinalize},
	}
	for _, tt := range tests {
		got := decide(tt.approved, tt.iteration, tt.maxIterations)
		if got != tt.want {
			t.Errorf("decide(%v, %d, %d) = %v, want %v",
				tt.approved, tt.iteration, tt.maxIterations, got, tt.want)
		}
	}
}
