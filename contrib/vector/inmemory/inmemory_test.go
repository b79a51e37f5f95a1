package inmemory

import (
	"context"
	"errors"
	"testing"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/vector"
)

func TestAddAndSearch(t *testing.T) {
	store := New()
	ctx := context.Background()

	embeddings := []*vector.Embedding{
		{ID: "a", Vector: []float32{1, 0, 0}, Text: "alpha"},
		{ID: "b", Vector: []float32{0, 1, 0}, Text: "beta"},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Text: "gamma"},
	}
	for _, emb := range embeddings {
		if err := store.AddEmbedding(ctx, emb); err != nil {
			t.Fatalf("AddEmbedding(%s) error: %v", emb.ID, err)
		}
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("best match = %s, want a", results[0].ID)
	}
	if results[1].ID != "c" {
		t.Errorf("second match = %s, want c", results[1].ID)
	}
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.AddEmbedding(ctx, &vector.Embedding{ID: "short", Vector: []float32{1, 0}})
	store.AddEmbedding(ctx, &vector.Embedding{ID: "full", Vector: []float32{1, 0, 0}})

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "full" {
		t.Errorf("results = %v", results)
	}
}

func TestAddEmbeddingValidation(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.AddEmbedding(ctx, nil); err == nil {
		t.Error("expected error for nil embedding")
	}
	if err := store.AddEmbedding(ctx, &vector.Embedding{Vector: []float32{1}}); err == nil {
		t.Error("expected error for empty ID")
	}
	if err := store.AddEmbedding(ctx, &vector.Embedding{ID: "x"}); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestDeleteAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.AddEmbedding(ctx, &vector.Embedding{ID: "a", Vector: []float32{1}})

	if _, err := store.GetEmbedding(ctx, "a"); err != nil {
		t.Fatalf("GetEmbedding() error: %v", err)
	}
	if err := store.DeleteEmbedding(ctx, "a"); err != nil {
		t.Fatalf("DeleteEmbedding() error: %v", err)
	}
	if _, err := store.GetEmbedding(ctx, "a"); !errors.Is(err, ragerrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteEmbedding(ctx, "a"); !errors.Is(err, ragerrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClearAndCount(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.AddEmbedding(ctx, &vector.Embedding{ID: "a", Vector: []float32{1}})
	store.AddEmbedding(ctx, &vector.Embedding{ID: "b", Vector: []float32{1}})

	count, err := store.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("Count() = %d, %v", count, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	count, _ = store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() after clear = %d", count)
	}
}
