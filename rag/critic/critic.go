package critic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/message"
	"github.com/sweetpotato0/ragguard/pkg/logging"
	"github.com/sweetpotato0/ragguard/provider"
	"github.com/sweetpotato0/ragguard/rag/workflow"
)

const critiqueSystemPrompt = `You are a harsh but fair senior developer and technical reviewer. Your job is to critically evaluate responses to coding questions.

Evaluate responses based on:
1. **CORRECTNESS**: Is the code accurate and will it actually work?
2. **MODERNITY**: Does it use current, stable APIs and best practices?
3. **COMPLETENESS**: Does it fully address the question asked?
4. **CLARITY**: Is the explanation clear and helpful?

Be specific about any flaws you find. If you find significant issues, list them clearly starting with "FLAW:".

If the response is good and addresses the question accurately with current information, simply respond with "APPROVED".

If there are issues, provide specific feedback about what's wrong and what should be improved.`

const queryImprovementSystemPrompt = `You are an expert at crafting search queries to find better technical documentation.

Your task is to improve a search query based on critique feedback to help find more accurate and current information.

Focus on:
- Adding specific technology versions or frameworks mentioned in the critique
- Including keywords that would find more current documentation
- Removing ambiguous terms that led to outdated results
- Adding context that would help find examples that actually work

Return only the improved search query, nothing else.`

// Critic evaluates generated answers through an LLM and derives a structured
// verdict from the reviewer's free-text output. It implements workflow.Critic.
type Critic struct {
	llm    provider.LLM
	logger *slog.Logger
}

// Option customizes the critic.
type Option func(*Critic)

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Critic) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a critic backed by the given LLM. The reviewer runs at low
// temperature for consistent verdicts.
func New(llm provider.LLM, opts ...Option) (*Critic, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: critic requires an LLM", ragerrors.ErrConfiguration)
	}
	llm.SetTemperature(0.2)
	llm.SetMaxTokens(1000)

	c := &Critic{
		llm:    llm,
		logger: logging.WithComponent("critic"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Critique reviews an answer against the query and the sources it cited.
func (c *Critic) Critique(ctx context.Context, query, answer string, sources []string) (workflow.Critique, error) {
	sourcesText := "None provided"
	if len(sources) > 0 {
		lines := make([]string, len(sources))
		for i, s := range sources {
			lines[i] = "- " + s
		}
		sourcesText = strings.Join(lines, "\n")
	}

	userPrompt := fmt.Sprintf(`Please critically evaluate this response to a coding question:

ORIGINAL QUESTION:
%s

RESPONSE TO EVALUATE:
%s

SOURCES USED:
%s

Provide your evaluation focusing on correctness, modernity, completeness, and clarity. Be specific about any issues.`, query, answer, sourcesText)

	raw, err := c.invoke(ctx, critiqueSystemPrompt, userPrompt)
	if err != nil {
		return workflow.Critique{}, fmt.Errorf("%w: %v", ragerrors.ErrCritique, err)
	}

	critique := ParseCritique(raw)
	c.logger.Info("critique completed",
		"approved", critique.Approved,
		"confidence", critique.Confidence,
		"flaws", len(critique.Flaws))
	return critique, nil
}

// ImproveQuery rewrites the retrieval query using the critique. An approved
// critique returns the query unchanged.
func (c *Critic) ImproveQuery(ctx context.Context, query string, critique workflow.Critique) (string, error) {
	if critique.Approved {
		return query, nil
	}

	flawsText := "None"
	if len(critique.Flaws) > 0 {
		flawsText = strings.Join(critique.Flaws, "\n")
	}
	suggestionsText := "None"
	if len(critique.Suggestions) > 0 {
		suggestionsText = strings.Join(critique.Suggestions, "\n")
	}

	userPrompt := fmt.Sprintf(`Improve this search query based on the critique feedback:

ORIGINAL QUERY:
%s

IDENTIFIED FLAWS:
%s

SUGGESTIONS:
%s

FULL CRITIQUE:
%s

Create a better search query that would find more accurate, current documentation.`, query, flawsText, suggestionsText, critique.RawText)

	improved, err := c.invoke(ctx, queryImprovementSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ragerrors.ErrQueryImprovement, err)
	}

	improved = strings.TrimSpace(improved)
	c.logger.Info("generated improved query", "improved", improved)
	return improved, nil
}

func (c *Critic) invoke(ctx context.Context, system, user string) (string, error) {
	messages := []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, user),
	}
	resp, err := c.llm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
