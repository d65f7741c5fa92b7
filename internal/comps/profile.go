package comps

import (
	"context"
	"fmt"
	"strings"
)

const profileSchemaPrompt = `Required JSON schema:
{
  "normalized_description": "string (40-1200 chars, plain business language, no marketing phrasing)",
  "normalized_terms": ["string (3-15 entries, each 2-60 chars, lowercase key business terms)"],
  "inferred_sector": "string (3-80 chars)",
  "business_model_tags": ["string (1-5 entries, e.g. software_vendor, marketplace, services, hardware, platform, subscription)"],
  "specialization_level": "float (0.0-1.0; 1.0 = single narrow niche, 0.0 = highly diversified conglomerate)"
}`

const profilePromptContext = `Normalize the company description for comparability analysis:
- Strip marketing language and restate what the company actually sells and to whom.
- Extract the key business terms that define its focus (products, customer segments, delivery model).
- Infer the sector even when the description does not name one.
- Judge specialization: a company serving one well-defined niche scores near 1.0,
  a diversified conglomerate scores near 0.0.`

// ProfileBuilder turns raw target input into a normalized TargetProfile.
type ProfileBuilder interface {
	Build(ctx context.Context, in TargetInput) (TargetProfile, error)
}

// LLMProfileBuilder builds the profile with a single reasoning call.
type LLMProfileBuilder struct {
	exec *ReasoningExecutor
}

func NewLLMProfileBuilder(exec *ReasoningExecutor) *LLMProfileBuilder {
	return &LLMProfileBuilder{exec: exec}
}

type profileOutput struct {
	NormalizedDescription string   `json:"normalized_description"`
	NormalizedTerms       []string `json:"normalized_terms"`
	InferredSector        string   `json:"inferred_sector"`
	BusinessModelTags     []string `json:"business_model_tags"`
	SpecializationLevel   float64  `json:"specialization_level"`
}

func (b *LLMProfileBuilder) Build(ctx context.Context, in TargetInput) (TargetProfile, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	if name == "" {
		return TargetProfile{}, &ProfileError{Err: fmt.Errorf("target name is empty")}
	}
	if desc == "" {
		return TargetProfile{}, &ProfileError{Err: fmt.Errorf("target description is empty")}
	}

	out := profileOutput{}
	prompt := fmt.Sprintf(
		"Target Profiling.\n%s\n\n%s\n\nCompany name: %s\nDescription:\n%s\nHomepage: %s\nIndustry code: %s",
		profilePromptContext,
		profileSchemaPrompt,
		name,
		desc,
		orNone(in.Homepage),
		orNone(in.IndustryCode),
	)
	if _, err := b.exec.Run(ctx, "profile", prompt, &out, func() error { return validateProfileOutput(out) }); err != nil {
		return TargetProfile{}, &ProfileError{Err: err}
	}

	terms := make([]string, 0, len(out.NormalizedTerms))
	for _, t := range out.NormalizedTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return TargetProfile{
		Name:                  name,
		RawDescription:        desc,
		Homepage:              strings.TrimSpace(in.Homepage),
		IndustryCode:          strings.TrimSpace(in.IndustryCode),
		NormalizedDescription: strings.TrimSpace(out.NormalizedDescription),
		NormalizedTerms:       terms,
		InferredSector:        strings.TrimSpace(out.InferredSector),
		BusinessModelTags:     out.BusinessModelTags,
		SpecializationLevel:   out.SpecializationLevel,
	}, nil
}

func validateProfileOutput(o profileOutput) error {
	if !between(len(strings.TrimSpace(o.NormalizedDescription)), 40, 1200) {
		return fmt.Errorf("normalized_description length")
	}
	if len(o.NormalizedTerms) < 3 || len(o.NormalizedTerms) > 15 {
		return fmt.Errorf("normalized_terms count")
	}
	for _, t := range o.NormalizedTerms {
		if !between(len(strings.TrimSpace(t)), 2, 60) {
			return fmt.Errorf("normalized_terms entry length")
		}
	}
	if !between(len(strings.TrimSpace(o.InferredSector)), 3, 80) {
		return fmt.Errorf("inferred_sector length")
	}
	if len(o.BusinessModelTags) < 1 || len(o.BusinessModelTags) > 5 {
		return fmt.Errorf("business_model_tags count")
	}
	if o.SpecializationLevel < 0 || o.SpecializationLevel > 1 {
		return fmt.Errorf("specialization_level out of range")
	}
	return nil
}

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	return s
}
