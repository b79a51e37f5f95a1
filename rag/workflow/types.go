package workflow

import (
	"context"
	"fmt"
)

// Stage identifies a state of the reflective answer loop.
type Stage string

const (
	StageRetrieve     Stage = "retrieve"
	StageGenerate     Stage = "generate"
	StageCritique     Stage = "critique"
	StageRewriteQuery Stage = "rewrite_query"
	StageFinalize     Stage = "finalize"
)

// Passage is a retrieved piece of context handed to the generator.
type Passage struct {
	Content  string  `json:"content"`
	SourceID string  `json:"source_id"`
	Score    float32 `json:"score"`
}

// Critique is the structured verdict the critic produces for an answer.
type Critique struct {
	Approved    bool     `json:"approved"`
	Confidence  float64  `json:"confidence"`
	Flaws       []string `json:"flaws,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	RawText     string   `json:"raw_text,omitempty"`
}

// Step records one stage transition in the audit trace. A step either carries
// Details or, when the stage's collaborator failed, a non-empty Error.
type Step struct {
	Stage       Stage          `json:"stage"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// RunResult is the complete outcome of one reflective run.
type RunResult struct {
	Query       string   `json:"query"`
	FinalAnswer string   `json:"final_answer"`
	Confidence  float64  `json:"confidence"`
	Approved    bool     `json:"approved"`
	Sources     []string `json:"sources"`
	Iterations  int      `json:"iterations"`
	Trace       []Step   `json:"trace"`
}

// CollectionStats describes the indexed corpus behind a retriever.
type CollectionStats struct {
	DocumentCount int `json:"document_count"`
}

// Retriever fetches context passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
	Stats(ctx context.Context) (CollectionStats, error)
}

// Generator produces answers grounded in retrieved passages.
type Generator interface {
	GenerateInitial(ctx context.Context, query string, passages []Passage) (string, error)
	GenerateImproved(ctx context.Context, query, previousAnswer, critique string, passages []Passage) (string, error)
}

// Critic evaluates answers and proposes better retrieval queries.
type Critic interface {
	Critique(ctx context.Context, query, answer string, sources []string) (Critique, error)
	ImproveQuery(ctx context.Context, query string, critique Critique) (string, error)
}

// FormatConfidence renders a confidence score for display.
func FormatConfidence(score float64) string {
	pct := int(score * 100)
	switch {
	case pct >= 90:
		return fmt.Sprintf("%d%% (high confidence)", pct)
	case pct >= 70:
		return fmt.Sprintf("%d%% (medium confidence)", pct)
	default:
		return fmt.Sprintf("%d%% (low confidence)", pct)
	}
}
