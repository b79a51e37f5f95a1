package critic

import (
	"context"
	"errors"
	"strings"
	"testing"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/message"
	"github.com/sweetpotato0/ragguard/rag/workflow"
)

type stubLLM struct {
	response    string
	err         error
	prompts     []string
	temperature float64
	maxTokens   int64
}

func (s *stubLLM) Generate(ctx context.Context, messages []*message.Message) (*message.Message, error) {
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return nil, s.err
	}
	return message.NewMessage(message.RoleAssistant, s.response), nil
}

func (s *stubLLM) SetTemperature(t float64) { s.temperature = t }
func (s *stubLLM) SetMaxTokens(n int64)     { s.maxTokens = n }
func (s *stubLLM) SetModel(m string)        {}

func TestParseCritiqueApproved(t *testing.T) {
	critique := ParseCritique("APPROVED")
	if !critique.Approved {
		t.Error("expected approval")
	}
	if critique.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", critique.Confidence)
	}
	if len(critique.Flaws) != 0 {
		t.Errorf("flaws = %v", critique.Flaws)
	}
}

func TestParseCritiqueCaseInsensitiveApproval(t *testing.T) {
	for _, raw := range []string{"approved", "I approve this response", "Approved."} {
		if c := ParseCritique(raw); !c.Approved {
			t.Errorf("ParseCritique(%q).Approved = false", raw)
		}
	}
}

func TestParseCritiqueExtractsFlaws(t *testing.T) {
	raw := "FLAW: uses deprecated componentWillMount. FLAW: missing error handling. The rest is fine"
	critique := ParseCritique(raw)

	if critique.Approved {
		t.Error("expected rejection")
	}
	if len(critique.Flaws) != 2 {
		t.Fatalf("flaws = %v, want 2", critique.Flaws)
	}
	if critique.Flaws[0] != "uses deprecated componentWillMount" {
		t.Errorf("first flaw = %q", critique.Flaws[0])
	}
	if critique.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", critique.Confidence)
	}
}

func TestParseCritiqueExtractsSuggestions(t *testing.T) {
	raw := "FLAW: outdated example. Suggestion: use the new app router instead"
	critique := ParseCritique(raw)

	if len(critique.Suggestions) != 1 {
		t.Fatalf("suggestions = %v, want 1", critique.Suggestions)
	}
	if critique.Suggestions[0] != "use the new app router instead" {
		t.Errorf("suggestion = %q", critique.Suggestions[0])
	}
}

func TestParseCritiqueRejectedWithoutFlaws(t *testing.T) {
	critique := ParseCritique("This response is vague and unconvincing")
	if critique.Approved {
		t.Error("expected rejection")
	}
	if critique.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", critique.Confidence)
	}
}

func TestConfidenceScoreTable(t *testing.T) {
	tests := []struct {
		approved bool
		flaws    int
		want     float64
	}{
		{true, 0, 0.9},
		{true, 5, 0.9},
		{false, 0, 0.7},
		{false, 1, 0.5},
		{false, 2, 0.5},
		{false, 3, 0.3},
		{false, 10, 0.3},
	}
	for _, tt := range tests {
		if got := confidenceScore(tt.approved, tt.flaws); got != tt.want {
			t.Errorf("confidenceScore(%v, %d) = %v, want %v", tt.approved, tt.flaws, got, tt.want)
		}
	}
}

func TestCritiqueBuildsReviewPrompt(t *testing.T) {
	llm := &stubLLM{response: "APPROVED"}
	c, err := New(llm)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	critique, err := c.Critique(context.Background(), "how do hooks work?", "hooks are functions",
		[]string{"React Docs - Hooks"})
	if err != nil {
		t.Fatalf("Critique() error: %v", err)
	}
	if !critique.Approved {
		t.Error("expected approval")
	}

	userPrompt := llm.prompts[len(llm.prompts)-1]
	for _, want := range []string{"how do hooks work?", "hooks are functions", "- React Docs - Hooks"} {
		if !strings.Contains(userPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, userPrompt)
		}
	}
	if llm.temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", llm.temperature)
	}
}

func TestCritiqueNoSources(t *testing.T) {
	llm := &stubLLM{response: "APPROVED"}
	c, _ := New(llm)

	if _, err := c.Critique(context.Background(), "q", "a", nil); err != nil {
		t.Fatalf("Critique() error: %v", err)
	}
	userPrompt := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(userPrompt, "None provided") {
		t.Errorf("prompt should flag missing sources:\n%s", userPrompt)
	}
}

func TestCritiqueWrapsProviderError(t *testing.T) {
	llm := &stubLLM{err: errors.New("timeout")}
	c, _ := New(llm)

	_, err := c.Critique(context.Background(), "q", "a", nil)
	if !errors.Is(err, ragerrors.ErrCritique) {
		t.Fatalf("error = %v, want ErrCritique", err)
	}
}

func TestImproveQueryApprovedReturnsOriginal(t *testing.T) {
	llm := &stubLLM{response: "should not be used"}
	c, _ := New(llm)

	improved, err := c.ImproveQuery(context.Background(), "original",
		workflow.Critique{Approved: true})
	if err != nil {
		t.Fatalf("ImproveQuery() error: %v", err)
	}
	if improved != "original" {
		t.Errorf("improved = %q, want original query", improved)
	}
	if len(llm.prompts) != 0 {
		t.Error("approved critique should not invoke the model")
	}
}

func TestImproveQueryUsesCritique(t *testing.T) {
	llm := &stubLLM{response: "  useState React 18 hooks documentation  "}
	c, _ := New(llm)

	critique := workflow.Critique{
		Flaws:       []string{"outdated API"},
		Suggestions: []string{"mention React 18"},
		RawText:     "FLAW: outdated API",
	}
	improved, err := c.ImproveQuery(context.Background(), "useState", critique)
	if err != nil {
		t.Fatalf("ImproveQuery() error: %v", err)
	}
	if improved != "useState React 18 hooks documentation" {
		t.Errorf("improved = %q", improved)
	}

	userPrompt := llm.prompts[len(llm.prompts)-1]
	for _, want := range []string{"outdated API", "mention React 18"} {
		if !strings.Contains(userPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestImproveQueryWrapsProviderError(t *testing.T) {
	llm := &stubLLM{err: errors.New("timeout")}
	c, _ := New(llm)

	_, err := c.ImproveQuery(context.Background(), "q", workflow.Critique{RawText: "FLAW: x"})
	if !errors.Is(err, ragerrors.ErrQueryImprovement) {
		t.Fatalf("error = %v, want ErrQueryImprovement", err)
	}
}
