package critic

import (
	"regexp"
	"strings"

	"github.com/sweetpotato0/ragguard/rag/workflow"
)

// The reviewer's output is free text with loose conventions: "APPROVED" for a
// clean pass, "FLAW: ..." lines for problems, and "suggestion: ..." style
// hints. The extraction here is deliberately tolerant of casing and phrasing.
var (
	reFlaw       = regexp.MustCompile(`(?i)flaw:\s*([^.]+)`)
	reSuggestion = regexp.MustCompile(`(?i)suggest[^.]*:\s*([^.]+)`)
)

// ParseCritique extracts a structured verdict from a raw reviewer response
// and scores it.
func ParseCritique(raw string) workflow.Critique {
	lower := strings.ToLower(strings.TrimSpace(raw))

	critique := workflow.Critique{
		Approved: strings.Contains(lower, "approve"),
		RawText:  raw,
	}

	if strings.Contains(lower, "flaw:") {
		for _, m := range reFlaw.FindAllStringSubmatch(raw, -1) {
			critique.Flaws = append(critique.Flaws, strings.TrimSpace(m[1]))
		}
	}
	if strings.Contains(lower, "suggest") {
		for _, m := range reSuggestion.FindAllStringSubmatch(raw, -1) {
			critique.Suggestions = append(critique.Suggestions, strings.TrimSpace(m[1]))
		}
	}

	critique.Confidence = confidenceScore(critique.Approved, len(critique.Flaws))
	return critique
}

// confidenceScore maps the verdict onto a fixed confidence scale.
func confidenceScore(approved bool, numFlaws int) float64 {
	if approved {
		return 0.9
	}
	switch {
	case numFlaws == 0:
		return 0.7
	case numFlaws <= 2:
		return 0.5
	default:
		return 0.3
	}
}
