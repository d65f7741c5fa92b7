package comps

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseEnvelope is the outward-facing shape of a finished search, used by
// the HTTP API and the report renderers.
type ResponseEnvelope struct {
	SearchID       string             `json:"search_id"`
	TargetName     string             `json:"target_name"`
	Status         SessionStatus      `json:"status"`
	CacheHit       bool               `json:"cache_hit"`
	Rounds         int                `json:"rounds"`
	AttemptsUsed   int                `json:"attempts_used"`
	Comparables    []ScoredComparable `json:"comparables"`
	Rejected       []ValidationResult `json:"rejected"`
	Warnings       []string           `json:"warnings,omitempty"`
	ReportMarkdown string             `json:"report_markdown"`
}

func BuildResponse(session *SearchSession) ResponseEnvelope {
	env := ResponseEnvelope{
		SearchID:     session.ID,
		TargetName:   session.Target.Name,
		Status:       session.Status,
		CacheHit:     session.CacheHit,
		Rounds:       session.Round - 1,
		AttemptsUsed: session.AttemptsUsed,
		Comparables:  session.Accepted,
		Rejected:     session.Rejected,
		Warnings:     session.Warnings,
	}
	env.ReportMarkdown = buildMarkdown(session)
	return env
}

func buildMarkdown(session *SearchSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comparable Companies Report\n\n")
	fmt.Fprintf(&b, "- Target: %s\n", session.Target.Name)
	fmt.Fprintf(&b, "- Sector: %s\n", sanitizeLine(session.Target.InferredSector))
	fmt.Fprintf(&b, "- Date: %s\n", session.CompletedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Search ID: %s\n\n", session.ID)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "Status: **%s** after %d round(s).\n", session.Status, session.Round-1)
	fmt.Fprintf(&b, "Comparables found: **%d** (rejected %d candidates).\n", len(session.Accepted), len(session.Rejected))
	if session.CacheHit {
		fmt.Fprintf(&b, "Served from a prior search for the same target.\n")
	}
	for _, w := range session.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", sanitizeLine(w))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Target Profile\n\n")
	fmt.Fprintf(&b, "- Business model: %s\n", strings.Join(session.Target.BusinessModelTags, ", "))
	fmt.Fprintf(&b, "- Specialization level: %.2f\n", session.Target.SpecializationLevel)
	fmt.Fprintf(&b, "- Key terms: %s\n", strings.Join(session.Target.NormalizedTerms, ", "))
	fmt.Fprintf(&b, "- Description: %s\n\n", sanitizeLine(session.Target.NormalizedDescription))

	fmt.Fprintf(&b, "## Ranked Comparables\n\n")
	if len(session.Accepted) == 0 {
		fmt.Fprintf(&b, "No validated comparable companies were found.\n\n")
	}
	for i, sc := range session.Accepted {
		listing := sc.Candidate.Ticker
		if listing != "" && sc.Candidate.Exchange != "" {
			listing = fmt.Sprintf("%s: %s", sc.Candidate.Exchange, sc.Candidate.Ticker)
		}
		if listing == "" {
			listing = "unlisted ticker"
		}
		fmt.Fprintf(&b, "### %d. %s (%s)\n\n", i+1, sc.Candidate.Name, listing)
		fmt.Fprintf(&b, "- Composite score: **%.2f** (%s)\n", sc.CompositeScore, Band(sc.CompositeScore))
		fmt.Fprintf(&b, "- Semantic similarity: %.3f\n", sc.SemanticSimilarity)
		fmt.Fprintf(&b, "- Focus overlap: %.3f\n", sc.FocusOverlapScore)
		fmt.Fprintf(&b, "- Business model match: %.2f\n", sc.BusinessModelScore)
		fmt.Fprintf(&b, "- Business: %s\n", sanitizeLine(sc.Candidate.BusinessActivity))
		fmt.Fprintf(&b, "- Rationale: %s\n\n", sanitizeLine(sc.Candidate.Rationale))
	}

	fmt.Fprintf(&b, "## Rejected Candidates\n\n")
	if len(session.Rejected) == 0 {
		fmt.Fprintf(&b, "None.\n\n")
	}
	for _, r := range session.Rejected {
		fmt.Fprintf(&b, "- %s: failed `%s` (%s)\n", r.Candidate.Name, r.FailingCheck, sanitizeLine(r.Evidence))
	}
	if len(session.Rejected) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Appendix\n\n")
	fmt.Fprintf(&b, "### Session (JSON)\n\n```json\n%s\n```\n", prettyJSON(session.Snapshot()))
	return b.String()
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}
