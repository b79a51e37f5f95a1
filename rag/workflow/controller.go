package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/pkg/logging"
	"github.com/sweetpotato0/ragguard/pkg/telemetry"
)

// fallbackAnswer is surfaced when the generator fails. The run continues so
// the critic and trace still see a complete cycle.
const fallbackAnswer = "Error generating response"

// Controller drives the reflective loop as an explicit state machine:
// retrieve, generate, critique, then either finalize or rewrite the query and
// run another cycle. Every transition is appended to the audit trace.
type Controller struct {
	retriever Retriever
	generator Generator
	critic    Critic

	topK          int
	maxIterations int

	logger *slog.Logger
	tracer trace.Tracer
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithTopK sets how many passages are fetched per retrieval.
func WithTopK(k int) ControllerOption {
	return func(c *Controller) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMaxIterations bounds how many critique passes may reject the answer
// before the loop gives up. Zero means a single cycle with no rewrite.
func WithMaxIterations(n int) ControllerOption {
	return func(c *Controller) {
		if n >= 0 {
			c.maxIterations = n
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController wires the three collaborators into a runnable loop.
func NewController(retriever Retriever, generator Generator, critic Critic, opts ...ControllerOption) (*Controller, error) {
	if retriever == nil || generator == nil || critic == nil {
		return nil, fmt.Errorf("%w: controller requires retriever, generator, and critic", ragerrors.ErrConfiguration)
	}

	c := &Controller{
		retriever:     retriever,
		generator:     generator,
		critic:        critic,
		topK:          5,
		maxIterations: 2,
		logger:        logging.WithComponent("workflow"),
		tracer:        telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// runState carries the mutable loop state between stages.
type runState struct {
	originalQuery string
	query         string

	passages []Passage
	sources  []string

	answer   string
	critique Critique

	// iteration counts completed critique passes; the first critique is 1.
	iteration int

	trace []Step
}

// decide is the loop's transition function after a critique pass.
func decide(approved bool, iteration, maxIterations int) Stage {
	if approved {
		return StageFinalize
	}
	if iteration > maxIterations {
		return StageFinalize
	}
	return StageRewriteQuery
}

// Run executes the full reflective loop for a query. Collaborator failures
// degrade the run but never abort it; only a panic inside a stage surfaces as
// an error, wrapped with ErrFatalWorkflow.
func (c *Controller) Run(ctx context.Context, query string) (result *RunResult, err error) {
	ctx, span := c.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow.query", query)))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ragerrors.ErrFatalWorkflow, r)
			result = nil
		}
		telemetry.End(span, err)
	}()

	st := &runState{
		originalQuery: query,
		query:         query,
	}

	stage := StageRetrieve
	for stage != StageFinalize {
		switch stage {
		case StageRetrieve:
			c.retrieve(ctx, st)
			stage = StageGenerate
		case StageGenerate:
			c.generate(ctx, st)
			stage = StageCritique
		case StageCritique:
			c.critiqueAnswer(ctx, st)
			stage = decide(st.critique.Approved, st.iteration, c.maxIterations)
		case StageRewriteQuery:
			c.rewriteQuery(ctx, st)
			stage = StageRetrieve
		}
	}

	return c.finalize(st), nil
}

func (c *Controller) retrieve(ctx context.Context, st *runState) {
	ctx, span := c.tracer.Start(ctx, "workflow.retrieve")
	passages, err := c.retriever.Retrieve(ctx, st.query, c.topK)
	telemetry.End(span, err)

	if err != nil {
		c.logger.Error("retrieval failed, continuing without context",
			"query", st.query, "error", err)
		st.passages = nil
		st.sources = nil
		st.trace = append(st.trace, Step{
			Stage:       StageRetrieve,
			Description: "Retrieval failed",
			Error:       err.Error(),
		})
		return
	}

	st.passages = passages
	st.sources = passageSources(passages)
	c.logger.Info("retrieved context", "query", st.query, "passages", len(passages))
	st.trace = append(st.trace, Step{
		Stage:       StageRetrieve,
		Description: fmt.Sprintf("Retrieved %d documents", len(passages)),
		Details:     map[string]any{"sources": st.sources},
	})
}

func (c *Controller) generate(ctx context.Context, st *runState) {
	ctx, span := c.tracer.Start(ctx, "workflow.generate")

	var (
		answer      string
		err         error
		description string
	)
	if st.iteration == 0 {
		answer, err = c.generator.GenerateInitial(ctx, st.query, st.passages)
		description = "Generated initial response"
	} else {
		answer, err = c.generator.GenerateImproved(ctx, st.query, st.answer, st.critique.RawText, st.passages)
		description = "Generated improved response"
	}
	telemetry.End(span, err)

	if err != nil {
		c.logger.Error("generation failed, using fallback answer", "error", err)
		st.answer = fallbackAnswer
		st.trace = append(st.trace, Step{
			Stage:       StageGenerate,
			Description: "Generation failed",
			Error:       err.Error(),
		})
		return
	}

	st.answer = answer
	st.trace = append(st.trace, Step{
		Stage:       StageGenerate,
		Description: description,
		Details: map[string]any{
			"context_used": len(st.passages),
			"sources":      st.sources,
		},
	})
}

func (c *Controller) critiqueAnswer(ctx context.Context, st *runState) {
	ctx, span := c.tracer.Start(ctx, "workflow.critique")
	critique, err := c.critic.Critique(ctx, st.query, st.answer, st.sources)
	telemetry.End(span, err)

	st.iteration++

	if err != nil {
		// Fail open: an unavailable critic must not block the answer.
		c.logger.Error("critique failed, approving with reduced confidence", "error", err)
		st.critique = Critique{Approved: true, Confidence: 0.5}
		st.trace = append(st.trace, Step{
			Stage:       StageCritique,
			Description: "Critique failed",
			Error:       err.Error(),
		})
		return
	}

	st.critique = critique
	c.logger.Info("critique completed",
		"approved", critique.Approved,
		"confidence", critique.Confidence,
		"flaws", len(critique.Flaws))
	st.trace = append(st.trace, Step{
		Stage:       StageCritique,
		Description: "Self-critique analysis",
		Details: map[string]any{
			"approved":   critique.Approved,
			"confidence": critique.Confidence,
			"flaws":      critique.Flaws,
		},
	})
}

func (c *Controller) rewriteQuery(ctx context.Context, st *runState) {
	ctx, span := c.tracer.Start(ctx, "workflow.rewrite_query")
	improved, err := c.critic.ImproveQuery(ctx, st.query, st.critique)
	telemetry.End(span, err)

	if err != nil {
		// Keep the current query untouched and retry retrieval with it.
		c.logger.Error("query rewrite failed, keeping current query", "error", err)
		st.trace = append(st.trace, Step{
			Stage:       StageRewriteQuery,
			Description: "Query rewrite failed",
			Error:       err.Error(),
		})
		return
	}

	c.logger.Info("rewrote query", "original", st.query, "improved", improved)
	st.trace = append(st.trace, Step{
		Stage:       StageRewriteQuery,
		Description: "Generating improved search query",
		Details: map[string]any{
			"original_query": st.query,
			"improved_query": improved,
		},
	})
	st.query = improved
}

func (c *Controller) finalize(st *runState) *RunResult {
	st.trace = append(st.trace, Step{
		Stage:       StageFinalize,
		Description: "Finalizing response",
		Details: map[string]any{
			"final_confidence": st.critique.Confidence,
			"iterations":       st.iteration,
		},
	})

	c.logger.Info("workflow completed",
		"query", st.originalQuery,
		"approved", st.critique.Approved,
		"confidence", st.critique.Confidence,
		"iterations", st.iteration)

	return &RunResult{
		Query:       st.originalQuery,
		FinalAnswer: st.answer,
		Confidence:  st.critique.Confidence,
		Approved:    st.critique.Approved,
		Sources:     st.sources,
		Iterations:  st.iteration,
		Trace:       st.trace,
	}
}

// passageSources extracts the ordered, deduplicated provenance labels.
func passageSources(passages []Passage) []string {
	if len(passages) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		src := p.SourceID
		if src == "" {
			src = "Unknown"
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
