package comps

import (
	"context"
	"fmt"
	"strings"
)

const publicStatusSchemaPrompt = `Required JSON schema:
{
  "is_publicly_traded": "boolean",
  "status": "ACTIVE | ACQUIRED | MERGED | DELISTED | PRIVATE | UNCERTAIN",
  "confidence": "HIGH | MEDIUM | LOW",
  "ticker": "string or empty (primary listing ticker)",
  "exchange": "string or empty",
  "reason": "string (10-400 chars)"
}`

const operatingSchemaPrompt = `Required JSON schema:
{
  "is_operating_company": "boolean",
  "structural_signals": ["string (0-5 entries, e.g. holding company, SPAC, shell company, blank check, investment trust)"],
  "reason": "string (10-400 chars)"
}`

const businessModelSchemaPrompt = `Required JSON schema:
{
  "match_score": "float (0.0-1.0, how closely the candidate's business model matches the target's)",
  "explanation": "string (10-500 chars)"
}`

const dataSchemaPrompt = `Required JSON schema:
{
  "resolvable": "boolean (true when this is a real, identifiable company)",
  "evidence": "string (10-400 chars)"
}`

// CheckOutcome is the result of one boolean validation gate.
type CheckOutcome struct {
	Passed   bool
	Evidence string
	Ticker   string
	Exchange string
}

// BusinessModelOutcome carries the graded business-model comparison.
type BusinessModelOutcome struct {
	MatchScore  float64
	Explanation string
}

// CheckRunner runs the individual validation gates for one candidate.
type CheckRunner interface {
	RunDataCheck(ctx context.Context, c Candidate, profile TargetProfile) (CheckOutcome, error)
	RunPublicStatusCheck(ctx context.Context, c Candidate) (CheckOutcome, error)
	RunOperatingCheck(ctx context.Context, c Candidate) (CheckOutcome, error)
	RunBusinessModelCheck(ctx context.Context, c Candidate, profile TargetProfile) (BusinessModelOutcome, error)
}

// LLMCheckRunner implements the gates with one reasoning call each.
type LLMCheckRunner struct {
	exec *ReasoningExecutor
}

func NewLLMCheckRunner(exec *ReasoningExecutor) *LLMCheckRunner {
	return &LLMCheckRunner{exec: exec}
}

type dataCheckOutput struct {
	Resolvable bool   `json:"resolvable"`
	Evidence   string `json:"evidence"`
}

func (r *LLMCheckRunner) RunDataCheck(ctx context.Context, c Candidate, profile TargetProfile) (CheckOutcome, error) {
	// Incomplete records fail locally before spending a model call.
	if strings.TrimSpace(c.Name) == "" {
		return CheckOutcome{Passed: false, Evidence: "candidate has no name"}, nil
	}
	if activity := strings.ToLower(strings.TrimSpace(c.BusinessActivity)); activity == "" || activity == "n/a" || activity == "unknown" {
		return CheckOutcome{Passed: false, Evidence: "no usable business activity description"}, nil
	}

	out := dataCheckOutput{}
	prompt := fmt.Sprintf(
		"Data Resolvability Check.\nDetermine whether this is a real, identifiable company and the description plausibly matches it.\n\n%s\n\nCompany: %s\nTicker: %s\nStated business: %s",
		dataSchemaPrompt,
		c.Name,
		orNone(c.Ticker),
		c.BusinessActivity,
	)
	if _, err := r.exec.Run(ctx, "check_data", prompt, &out, func() error { return validateEvidence(out.Evidence) }); err != nil {
		return CheckOutcome{}, err
	}
	return CheckOutcome{Passed: out.Resolvable, Evidence: out.Evidence}, nil
}

type publicStatusOutput struct {
	IsPubliclyTraded bool   `json:"is_publicly_traded"`
	Status           string `json:"status"`
	Confidence       string `json:"confidence"`
	Ticker           string `json:"ticker"`
	Exchange         string `json:"exchange"`
	Reason           string `json:"reason"`
}

func (r *LLMCheckRunner) RunPublicStatusCheck(ctx context.Context, c Candidate) (CheckOutcome, error) {
	out := publicStatusOutput{}
	prompt := fmt.Sprintf(
		"Public Listing Check.\nDetermine whether the company is currently an independently listed public company. Acquired, merged, delisted, and private companies all fail.\n\n%s\n\nCompany: %s\nClaimed ticker: %s\nClaimed exchange: %s",
		publicStatusSchemaPrompt,
		c.Name,
		orNone(c.Ticker),
		orNone(c.Exchange),
	)
	if _, err := r.exec.Run(ctx, "check_public_status", prompt, &out, func() error { return validatePublicStatusOutput(out) }); err != nil {
		return CheckOutcome{}, err
	}

	evidence := fmt.Sprintf("%s (%s confidence): %s", out.Status, strings.ToLower(out.Confidence), out.Reason)
	switch out.Status {
	case "ACTIVE":
		if !out.IsPubliclyTraded {
			return CheckOutcome{Passed: false, Evidence: evidence}, nil
		}
		return CheckOutcome{Passed: true, Evidence: evidence, Ticker: strings.ToUpper(strings.TrimSpace(out.Ticker)), Exchange: strings.TrimSpace(out.Exchange)}, nil
	case "UNCERTAIN":
		// Uncertain with low confidence fails; otherwise pass with caveat.
		if out.Confidence == "LOW" || !out.IsPubliclyTraded {
			return CheckOutcome{Passed: false, Evidence: evidence}, nil
		}
		return CheckOutcome{Passed: true, Evidence: evidence, Ticker: strings.ToUpper(strings.TrimSpace(out.Ticker)), Exchange: strings.TrimSpace(out.Exchange)}, nil
	default:
		return CheckOutcome{Passed: false, Evidence: evidence}, nil
	}
}

type operatingOutput struct {
	IsOperatingCompany bool     `json:"is_operating_company"`
	StructuralSignals  []string `json:"structural_signals"`
	Reason             string   `json:"reason"`
}

var nonOperatingSignals = []string{
	"holding company", "spac", "shell company", "blank check",
	"investment trust", "acquisition corp",
}

func (r *LLMCheckRunner) RunOperatingCheck(ctx context.Context, c Candidate) (CheckOutcome, error) {
	out := operatingOutput{}
	prompt := fmt.Sprintf(
		"Operating Company Check.\nDetermine whether the company primarily operates a business of its own, rather than being a holding company, SPAC, shell company, blank-check vehicle, or investment trust.\n\n%s\n\nCompany: %s\nStated business: %s",
		operatingSchemaPrompt,
		c.Name,
		c.BusinessActivity,
	)
	if _, err := r.exec.Run(ctx, "check_operating", prompt, &out, func() error { return validateEvidence(out.Reason) }); err != nil {
		return CheckOutcome{}, err
	}

	passed := out.IsOperatingCompany
	if passed {
		// Structural signals override a permissive model verdict.
		for _, sig := range out.StructuralSignals {
			low := strings.ToLower(sig)
			for _, known := range nonOperatingSignals {
				if strings.Contains(low, known) {
					passed = false
				}
			}
		}
	}
	evidence := out.Reason
	if len(out.StructuralSignals) > 0 {
		evidence += " [signals: " + strings.Join(out.StructuralSignals, ", ") + "]"
	}
	return CheckOutcome{Passed: passed, Evidence: evidence}, nil
}

type businessModelOutput struct {
	MatchScore  float64 `json:"match_score"`
	Explanation string  `json:"explanation"`
}

func (r *LLMCheckRunner) RunBusinessModelCheck(ctx context.Context, c Candidate, profile TargetProfile) (BusinessModelOutcome, error) {
	out := businessModelOutput{}
	prompt := fmt.Sprintf(
		"Business Model Comparison.\nCompare how the candidate makes money with how the target makes money: revenue model, delivery model, customer segment.\n\n%s\n\nTarget: %s\nTarget business model: %s\nTarget description:\n%s\n\nCandidate: %s\nCandidate business: %s\nCandidate customers: %s",
		businessModelSchemaPrompt,
		profile.Name,
		strings.Join(profile.BusinessModelTags, ", "),
		profile.NormalizedDescription,
		c.Name,
		c.BusinessActivity,
		orNone(c.CustomerSegment),
	)
	if _, err := r.exec.Run(ctx, "check_business_model", prompt, &out, func() error { return validateBusinessModelOutput(out) }); err != nil {
		return BusinessModelOutcome{}, err
	}
	return BusinessModelOutcome{MatchScore: out.MatchScore, Explanation: out.Explanation}, nil
}

func validateEvidence(s string) error {
	if !between(len(strings.TrimSpace(s)), 10, 400) {
		return fmt.Errorf("evidence length")
	}
	return nil
}

func validatePublicStatusOutput(o publicStatusOutput) error {
	switch o.Status {
	case "ACTIVE", "ACQUIRED", "MERGED", "DELISTED", "PRIVATE", "UNCERTAIN":
	default:
		return fmt.Errorf("invalid status %q", o.Status)
	}
	switch o.Confidence {
	case "HIGH", "MEDIUM", "LOW":
	default:
		return fmt.Errorf("invalid confidence %q", o.Confidence)
	}
	return validateEvidence(o.Reason)
}

func validateBusinessModelOutput(o businessModelOutput) error {
	if o.MatchScore < 0 || o.MatchScore > 1 {
		return fmt.Errorf("match_score out of range")
	}
	if !between(len(strings.TrimSpace(o.Explanation)), 10, 500) {
		return fmt.Errorf("explanation length")
	}
	return nil
}
