package markdown

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/ragguard/rag/document"
)

func TestChunkSplitsByHeadings(t *testing.T) {
	content := `# useState

` + strings.Repeat("The useState hook manages local state. ", 8) + `

## Lazy initialization

` + strings.Repeat("Pass a function for expensive initial values. ", 8) + `

## Updating state

` + strings.Repeat("State updates may be batched together. ", 8)

	chunker := New(WithMinCharacters(0))
	chunks, err := chunker.Chunk(context.Background(), document.Document{
		ID:      "doc1",
		Content: content,
	})
	if err != nil {
		t.Fatalf("Chunk() error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if got := chunks[1].Metadata["section_title"]; got != "Lazy initialization" {
		t.Errorf("section title = %v", got)
	}
	if got := chunks[1].Metadata["section_level"]; got != 2 {
		t.Errorf("section level = %v", got)
	}
}

func TestChunkMergesShortSections(t *testing.T) {
	content := `# A

tiny

# B

also tiny

# C

` + strings.Repeat("long enough section body to stand alone here. ", 10)

	chunker := New(WithMinCharacters(100))
	chunks, err := chunker.Chunk(context.Background(), document.Document{
		ID:      "doc1",
		Content: content,
	})
	if err != nil {
		t.Fatalf("Chunk() error: %v", err)
	}
	if len(chunks) >= 3 {
		t.Fatalf("got %d chunks, expected short sections to merge", len(chunks))
	}
}

func TestChunkFallsBackWithoutHeadings(t *testing.T) {
	chunker := New()
	chunks, err := chunker.Chunk(context.Background(), document.Document{
		ID:      "doc1",
		Content: "plain text without any headings",
	})
	if err != nil {
		t.Fatalf("Chunk() error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestChunkWindowsOversizedSections(t *testing.T) {
	content := "# Big\n\n" + strings.Repeat("x", 3000)
	chunker := New(WithMaxCharacters(500))

	chunks, err := chunker.Chunk(context.Background(), document.Document{
		ID:      "doc1",
		Content: content,
	})
	if err != nil {
		t.Fatalf("Chunk() error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, expected oversized section to split", len(chunks))
	}
}
