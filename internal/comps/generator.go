package comps

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const generateSchemaPrompt = `Required JSON schema:
{
  "candidates": [
    {
      "name": "string (official company name)",
      "ticker": "string or empty (primary listing ticker if known)",
      "exchange": "string or empty (e.g. NYSE, NASDAQ, LSE)",
      "business_activity": "string (15-300 chars, what the company sells)",
      "customer_segment": "string (5-200 chars, who buys it)",
      "rationale": "string (15-400 chars, why it is comparable to the target)"
    }
  ]
}`

// Generator proposes candidate comparables for one round. Breadth starts at 1
// and widens on every retry round; callers pass the union of all names
// already accepted or rejected so no candidate is proposed twice.
type Generator interface {
	Generate(ctx context.Context, profile TargetProfile, excluded map[string]struct{}, breadth int) ([]Candidate, error)
}

// LLMGenerator asks the reasoning model for candidates, filters out excluded
// and duplicate names, and returns candidates in the model's order.
type LLMGenerator struct {
	exec     *ReasoningExecutor
	perRound int
}

func NewLLMGenerator(exec *ReasoningExecutor, perRound int) *LLMGenerator {
	if perRound <= 0 {
		perRound = DefaultCandidatesPerRound
	}
	return &LLMGenerator{exec: exec, perRound: perRound}
}

type generateOutput struct {
	Candidates []Candidate `json:"candidates"`
}

func (g *LLMGenerator) Generate(ctx context.Context, profile TargetProfile, excluded map[string]struct{}, breadth int) ([]Candidate, error) {
	out := generateOutput{}
	prompt := fmt.Sprintf(
		"Candidate Generation.\n%s\n\n%s\n\nTarget company: %s\nSector: %s\nBusiness model: %s\nSpecialization level: %.2f\nNormalized description:\n%s\nKey terms: %s%s\n\nPropose up to %d publicly traded companies.",
		breadthStrategy(breadth, profile.SpecializationLevel),
		generateSchemaPrompt,
		profile.Name,
		profile.InferredSector,
		strings.Join(profile.BusinessModelTags, ", "),
		profile.SpecializationLevel,
		profile.NormalizedDescription,
		strings.Join(profile.NormalizedTerms, ", "),
		excludedClause(excluded),
		g.perRound,
	)
	if _, err := g.exec.Run(ctx, "generate", prompt, &out, func() error { return validateGenerateOutput(out, g.perRound) }); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(out.Candidates))
	var cands []Candidate
	for _, c := range out.Candidates {
		key := c.NormalizedName()
		if key == "" || key == NormalizeName(profile.Name) {
			continue
		}
		if _, ok := excluded[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		c.Name = strings.TrimSpace(c.Name)
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		c.Exchange = strings.TrimSpace(c.Exchange)
		cands = append(cands, c)
	}
	return cands, nil
}

func breadthStrategy(breadth int, specialization float64) string {
	switch {
	case breadth <= 1:
		if specialization >= 0.7 {
			return "Search strategy: the target is highly specialized. Propose only direct competitors operating in the same narrow niche with closely matching products and customers."
		}
		return "Search strategy: propose direct competitors with substantially overlapping products and customer segments."
	case breadth == 2:
		return "Search strategy: a narrow search did not return enough matches. Broaden to adjacent segments of the same sector, including companies whose product overlap is partial but whose economics are similar."
	default:
		return "Search strategy: prior searches did not return enough matches. Search sector-wide for any publicly traded company with a related business model, relaxing the product-overlap requirement while staying inside the same sector."
	}
}

func excludedClause(excluded map[string]struct{}) string {
	if len(excluded) == 0 {
		return ""
	}
	names := make([]string, 0, len(excluded))
	for n := range excluded {
		names = append(names, n)
	}
	sort.Strings(names)
	return "\n\nDo NOT propose any of these already-considered companies:\n" + strings.Join(names, "; ")
}

func validateGenerateOutput(o generateOutput, limit int) error {
	if len(o.Candidates) > limit {
		return fmt.Errorf("too many candidates (max %d)", limit)
	}
	for i, c := range o.Candidates {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("candidate %d missing name", i)
		}
		if !between(len(strings.TrimSpace(c.BusinessActivity)), 15, 300) {
			return fmt.Errorf("candidate %d business_activity length", i)
		}
		if !between(len(strings.TrimSpace(c.Rationale)), 15, 400) {
			return fmt.Errorf("candidate %d rationale length", i)
		}
	}
	return nil
}
