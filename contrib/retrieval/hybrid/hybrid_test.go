package hybrid

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/ragguard/contrib/vector/inmemory"
	"github.com/sweetpotato0/ragguard/rag/document"
)

// keywordEmbedder maps known keywords onto fixed axes so similarity is
// deterministic in tests.
type keywordEmbedder struct {
	axes []string
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{axes: []string{"state", "effect", "router"}}
}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(k.axes))
	lower := strings.ToLower(text)
	for i, axis := range k.axes {
		if strings.Contains(lower, axis) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := k.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (k *keywordEmbedder) Dimension() int { return len(k.axes) }

func testDocs() []document.Document {
	return []document.Document{
		{
			ID:       "state",
			Content:  "useState manages local state in a component",
			Metadata: map[string]any{"source": "React Docs - useState"},
		},
		{
			ID:       "effect",
			Content:  "useEffect runs side effect logic after render",
			Metadata: map[string]any{"source": "React Docs - useEffect"},
		},
		{
			ID:       "router",
			Content:  "the app router maps URLs to server components",
			Metadata: map[string]any{"source": "Next.js Docs - App Router"},
		},
	}
}

func TestRetrieveBlendsVectorAndKeyword(t *testing.T) {
	engine, err := New(inmemory.New(), newKeywordEmbedder())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()

	if err := engine.IndexDocuments(ctx, testDocs()...); err != nil {
		t.Fatalf("IndexDocuments() error: %v", err)
	}

	passages, err := engine.Retrieve(ctx, "how does state work?", 2)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("expected passages")
	}
	if passages[0].SourceID != "React Docs - useState" {
		t.Errorf("best passage source = %q", passages[0].SourceID)
	}
	if len(passages) > 2 {
		t.Errorf("got %d passages, want at most 2", len(passages))
	}
}

func TestRetrieveKeywordOnlyMatch(t *testing.T) {
	engine, err := New(inmemory.New(), newKeywordEmbedder())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()

	if err := engine.IndexDocuments(ctx, testDocs()...); err != nil {
		t.Fatalf("IndexDocuments() error: %v", err)
	}

	// "useEffect" is not an embedding axis but is a BM25 term.
	passages, err := engine.Retrieve(ctx, "useEffect", 3)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	found := false
	for _, p := range passages {
		if p.SourceID == "React Docs - useEffect" {
			found = true
		}
	}
	if !found {
		t.Errorf("keyword match missing from results: %+v", passages)
	}
}

func TestStatsAndClear(t *testing.T) {
	engine, err := New(inmemory.New(), newKeywordEmbedder())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()

	if err := engine.IndexDocuments(ctx, testDocs()...); err != nil {
		t.Fatalf("IndexDocuments() error: %v", err)
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.DocumentCount != 3 {
		t.Errorf("document count = %d, want 3", stats.DocumentCount)
	}

	if err := engine.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	stats, _ = engine.Stats(ctx)
	if stats.DocumentCount != 0 {
		t.Errorf("document count after clear = %d", stats.DocumentCount)
	}
	count, _ := engine.Count(ctx)
	if count != 0 {
		t.Errorf("chunk count after clear = %d", count)
	}
}
