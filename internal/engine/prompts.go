package engine

import (
	"fmt"
	"strings"

	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/index"
	"github.com/hiresight-ai/hiresight/internal/structurer"
	"github.com/hiresight-ai/hiresight/session"
)

const answerSystemPrompt = `You are a recruiting assistant answering questions about one candidate.
Answer only from the provided context. If the context does not contain the answer, say that the information is not available in the candidate's materials. Do not invent employers, dates, skills or projects. Keep answers concise and specific.`

// expandQuery joins the last few user questions with the current one, so
// follow-ups like "which of those used Go?" retrieve against their referent.
func expandQuery(history []session.Turn, window int, question string) string {
	if window <= 0 {
		return question
	}
	var prev []string
	for i := len(history) - 1; i >= 0 && len(prev) < window; i-- {
		if history[i].Role == session.RoleUser {
			prev = append(prev, history[i].Content)
		}
	}
	// restore chronological order
	for l, r := 0, len(prev)-1; l < r; l, r = l+1, r-1 {
		prev[l], prev[r] = prev[r], prev[l]
	}
	return strings.Join(append(prev, question), "\n")
}

// buildAnswerPrompt assembles retrieved chunks, a bounded slice of the
// conversation and the question into one model input.
func buildAnswerPrompt(doc *structurer.StructuredDocument, enr enrich.Result, history []session.Turn, window int, hits []index.Hit, question string) string {
	var sb strings.Builder

	if doc != nil {
		fmt.Fprintf(&sb, "Candidate document: %s\n", doc.Filename)
	}
	fmt.Fprintf(&sb, "External sources: %s\n\n", enrichmentDigest(enr))

	sb.WriteString("Context:\n")
	if len(hits) == 0 {
		sb.WriteString("(no relevant passages found)\n")
	}
	for _, h := range hits {
		source := string(h.Source)
		if h.Label != "" {
			source += "/" + h.Label
		}
		fmt.Fprintf(&sb, "[%d] (%s) %s\n", h.Rank, source, h.Text)
	}

	recent := recentTurns(history, window)
	if len(recent) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, t := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String()
}

// enrichmentDigest summarizes which external sources contributed to the
// context, so the model can attribute or disclaim them.
func enrichmentDigest(enr enrich.Result) string {
	var parts []string
	if enr.GitHubFound() && enr.GitHub.Profile != nil {
		parts = append(parts, fmt.Sprintf("GitHub profile %s (%d repos fetched)", enr.GitHub.Profile.Login, len(enr.GitHub.Repos)))
	}
	if enr.LinkedInFound() {
		parts = append(parts, "LinkedIn profile narrative")
	} else if enr.LinkedIn.Fallback {
		parts = append(parts, "LinkedIn assessment derived from the resume only")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

// recentTurns keeps the last window user/assistant pairs, skipping error
// turns so a failed answer does not pollute later prompts.
func recentTurns(history []session.Turn, window int) []session.Turn {
	if window <= 0 {
		return nil
	}
	var out []session.Turn
	pairs := 0
	for i := len(history) - 1; i >= 0 && pairs < window; i-- {
		t := history[i]
		if t.IsError {
			continue
		}
		out = append(out, t)
		if t.Role == session.RoleUser {
			pairs++
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
