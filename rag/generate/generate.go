package generate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/message"
	"github.com/sweetpotato0/ragguard/pkg/logging"
	"github.com/sweetpotato0/ragguard/provider"
	"github.com/sweetpotato0/ragguard/rag/tokenizer"
	"github.com/sweetpotato0/ragguard/rag/workflow"
)

const systemPrompt = `You are an expert coding assistant specializing in modern web development frameworks and best practices.

Your role is to provide accurate, up-to-date, and practical coding advice based on the most recent documentation and examples.

Guidelines:
- Always use the most recent stable APIs and patterns
- Provide complete, runnable code examples when possible
- Explain the reasoning behind your recommendations
- Highlight any important gotchas or common mistakes
- Focus on modern, production-ready solutions
- If you're uncertain about something, say so explicitly

Format your response clearly with proper code blocks and explanations.`

const improvementSystemPrompt = `You are an expert coding assistant tasked with improving a previous response based on critique feedback.

Your role is to:
- Address all the specific flaws mentioned in the critique
- Use the new context to provide more accurate information
- Maintain the helpful tone while being more precise
- Provide better, more current examples if needed

Focus on fixing the specific issues raised rather than completely rewriting the response.`

// Generator produces grounded answers through an LLM provider. It implements
// workflow.Generator.
type Generator struct {
	llm       provider.LLM
	tokenizer tokenizer.Tokenizer
	maxTokens int
	logger    *slog.Logger
}

// Option customizes the generator.
type Option func(*Generator)

// WithTokenizer enables context budgeting: retrieved context is truncated to
// maxContextTokens before prompting.
func WithTokenizer(tok tokenizer.Tokenizer, maxContextTokens int) Option {
	return func(g *Generator) {
		g.tokenizer = tok
		g.maxTokens = maxContextTokens
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a generator backed by the given LLM.
func New(llm provider.LLM, opts ...Option) (*Generator, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: generator requires an LLM", ragerrors.ErrConfiguration)
	}
	g := &Generator{
		llm:    llm,
		logger: logging.WithComponent("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateInitial answers the query grounded in the retrieved passages.
func (g *Generator) GenerateInitial(ctx context.Context, query string, passages []workflow.Passage) (string, error) {
	contextBlock := g.formatContext(ctx, passages)
	userPrompt := fmt.Sprintf(`Based on the following documentation and context, please answer the user's question:

CONTEXT:
%s

USER QUESTION:
%s

Please provide a comprehensive answer that uses the context provided above. Include relevant code examples and explanations.`, contextBlock, query)

	answer, err := g.invoke(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: initial response: %v", ragerrors.ErrGeneration, err)
	}

	g.logger.Info("generated initial response", "query", truncate(query, 50), "context_used", len(passages))
	return answer, nil
}

// GenerateImproved rewrites a previous answer using the critique and fresh
// context.
func (g *Generator) GenerateImproved(ctx context.Context, query, previousAnswer, critique string, passages []workflow.Passage) (string, error) {
	contextBlock := g.formatContext(ctx, passages)
	userPrompt := fmt.Sprintf(`Please improve the following response based on the critique provided:

ORIGINAL QUERY:
%s

PREVIOUS RESPONSE:
%s

CRITIQUE FEEDBACK:
%s

NEW CONTEXT:
%s

Please provide an improved response that addresses the critique while maintaining helpfulness and clarity.`, query, previousAnswer, critique, contextBlock)

	answer, err := g.invoke(ctx, improvementSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: improved response: %v", ragerrors.ErrGeneration, err)
	}

	g.logger.Info("generated improved response", "context_used", len(passages))
	return answer, nil
}

func (g *Generator) invoke(ctx context.Context, system, user string) (string, error) {
	messages := []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, user),
	}
	resp, err := g.llm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return CleanCodeSnippet(resp.Content), nil
}

// formatContext renders passages as numbered source blocks, applying the
// token budget when a tokenizer is configured.
func (g *Generator) formatContext(ctx context.Context, passages []workflow.Passage) string {
	if len(passages) == 0 {
		return "No relevant context found."
	}

	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		source := p.SourceID
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source %d: %s]\n%s", i+1, source, strings.TrimSpace(p.Content)))
	}
	formatted := strings.Join(parts, "\n\n")

	if g.tokenizer == nil || g.maxTokens <= 0 {
		return formatted
	}
	return g.truncateToBudget(formatted, parts)
}

func (g *Generator) truncateToBudget(formatted string, parts []string) string {
	count, err := g.tokenizer.CountTokens(formatted)
	if err != nil || count <= g.maxTokens {
		return formatted
	}

	// Drop trailing sources until the context fits.
	for len(parts) > 1 {
		parts = parts[:len(parts)-1]
		formatted = strings.Join(parts, "\n\n")
		count, err = g.tokenizer.CountTokens(formatted)
		if err != nil || count <= g.maxTokens {
			g.logger.Warn("truncated context to token budget", "sources_kept", len(parts))
			return formatted
		}
	}
	return formatted
}

var (
	reBlankRuns  = regexp.MustCompile(`\n\s*\n\s*\n`)
	reFenceOpen  = regexp.MustCompile("(?m)^(```\\w*\n|```\n)")
	reFenceClose = regexp.MustCompile("\n```$")
)

// CleanCodeSnippet normalizes a model response: collapses runs of blank
// lines and strips a bare wrapping code fence.
func CleanCodeSnippet(text string) string {
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	text = reFenceOpen.ReplaceAllString(text, "")
	text = reFenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
