package comps

import "time"

const (
	// DefaultCandidatesPerRound is how many names the generator asks the
	// model for in a single round.
	DefaultCandidatesPerRound = 25

	// DefaultValidateChunkSize bounds concurrent validation fan-out so a
	// round of checks stays inside provider rate limits.
	DefaultValidateChunkSize = 5

	// DefaultBusinessModelThreshold is the minimum evidence strength at
	// which the business-model gate passes a candidate.
	DefaultBusinessModelThreshold = 0.4
)

// TargetInput is the raw caller-supplied description of the target company.
type TargetInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Homepage     string `json:"homepage,omitempty"`
	IndustryCode string `json:"industry_code,omitempty"`
}

// TargetProfile is the normalized semantic profile of the target, built once
// per search and shared as context by every later stage. Immutable after Build.
type TargetProfile struct {
	Name                  string   `json:"name"`
	RawDescription        string   `json:"raw_description"`
	Homepage              string   `json:"homepage,omitempty"`
	IndustryCode          string   `json:"industry_code,omitempty"`
	NormalizedDescription string   `json:"normalized_description"`
	NormalizedTerms       []string `json:"normalized_terms"`
	InferredSector        string   `json:"inferred_sector"`
	BusinessModelTags     []string `json:"business_model_tags"`

	// SpecializationLevel is in [0,1]: 1.0 means the target serves one
	// narrow niche, 0.0 means it is highly diversified. It drives both the
	// generator's search strategy and the semantic weight in scoring.
	SpecializationLevel float64 `json:"specialization_level"`
}

// Candidate is one company name produced by the generator. Ticker and
// exchange come back from the model but are only trusted after validation.
type Candidate struct {
	Name             string `json:"name"`
	Ticker           string `json:"ticker,omitempty"`
	Exchange         string `json:"exchange,omitempty"`
	BusinessActivity string `json:"business_activity"`
	CustomerSegment  string `json:"customer_segment,omitempty"`
	Rationale        string `json:"rationale"`
}

// NormalizedName is the dedup key for a candidate: lowercased with
// whitespace collapsed.
func (c Candidate) NormalizedName() string {
	return NormalizeName(c.Name)
}

// FailingCheck identifies which validation gate rejected a candidate.
type FailingCheck string

const (
	CheckData             FailingCheck = "DATA"
	CheckPublicStatus     FailingCheck = "PUBLIC_STATUS"
	CheckOperatingCompany FailingCheck = "OPERATING_COMPANY"
	CheckBusinessModel    FailingCheck = "BUSINESS_MODEL"
	CheckNone             FailingCheck = "NONE"
)

// ValidationResult is the outcome of running the ordered gate checks against
// one candidate. Once FailingCheck != NONE the candidate is terminal for the
// whole session.
type ValidationResult struct {
	Candidate    Candidate    `json:"candidate"`
	Passed       bool         `json:"passed"`
	FailingCheck FailingCheck `json:"failing_check"`
	Evidence     string       `json:"evidence"`

	// BusinessModelStrength is the graded match score from the
	// business-model check, kept so the scorer can distinguish a clear
	// match from a near-threshold pass.
	BusinessModelStrength float64 `json:"business_model_strength,omitempty"`
}

// ScoredComparable is an accepted candidate with its similarity breakdown.
// Immutable once created.
type ScoredComparable struct {
	Candidate          Candidate `json:"candidate"`
	SemanticSimilarity float64   `json:"semantic_similarity"`
	FocusOverlapScore  float64   `json:"focus_overlap_score"`
	BusinessModelScore float64   `json:"business_model_score"`
	CompositeScore     float64   `json:"composite_score"`
}

// Band maps a composite score to its user-facing interpretation.
func Band(composite float64) string {
	switch {
	case composite >= 5.0:
		return "excellent"
	case composite >= 3.0:
		return "good"
	case composite >= 2.0:
		return "fair"
	default:
		return "weak"
	}
}

// SessionStatus is the lifecycle state of one search session.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusSatisfied SessionStatus = "SATISFIED"
	StatusExhausted SessionStatus = "EXHAUSTED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// SearchSession is the complete mutable state of one search. It is owned
// exclusively by the Controller for the duration of the search; external
// consumers only ever see the Snapshot taken at finalization.
type SearchSession struct {
	ID            string
	Target        TargetProfile
	Round         int
	Accepted      []ScoredComparable
	Rejected      []ValidationResult
	RejectedNames map[string]struct{}
	AttemptsUsed  int
	Status        SessionStatus
	CacheHit      bool
	Warnings      []string
	StartedAt     time.Time
	CompletedAt   time.Time
}

// SessionSnapshot is the immutable serializable view of a finished session,
// handed to persistence and API consumers.
type SessionSnapshot struct {
	ID           string             `json:"id"`
	TargetKey    string             `json:"target_key"`
	Target       TargetProfile      `json:"target"`
	Status       SessionStatus      `json:"status"`
	Rounds       int                `json:"rounds"`
	AttemptsUsed int                `json:"attempts_used"`
	Accepted     []ScoredComparable `json:"accepted"`
	Rejected     []ValidationResult `json:"rejected"`
	Warnings     []string           `json:"warnings,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
}

// Snapshot copies the session into its immutable external form.
func (s *SearchSession) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:           s.ID,
		TargetKey:    TargetKey(TargetInput{Name: s.Target.Name, Description: s.Target.RawDescription}),
		Target:       s.Target,
		Status:       s.Status,
		Rounds:       s.Round - 1,
		AttemptsUsed: s.AttemptsUsed,
		Accepted:     append([]ScoredComparable(nil), s.Accepted...),
		Rejected:     append([]ValidationResult(nil), s.Rejected...),
		Warnings:     append([]string(nil), s.Warnings...),
		StartedAt:    s.StartedAt,
		CompletedAt:  s.CompletedAt,
	}
	return snap
}

// ScoreWeights are the tunable knobs of the composite similarity score.
// SemanticBase and SemanticSpecialization combine into the semantic weight
// as base + specialization*factor, so narrow targets lean harder on
// embedding similarity.
type ScoreWeights struct {
	SemanticBase           float64 `json:"semantic_base"`
	SemanticSpecialization float64 `json:"semantic_specialization"`
	FocusMultiplier        float64 `json:"focus_multiplier"`
	ModelMultiplier        float64 `json:"model_multiplier"`
}

// DefaultScoreWeights returns the standard weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		SemanticBase:           3.0,
		SemanticSpecialization: 2.0,
		FocusMultiplier:        1.5,
		ModelMultiplier:        0.75,
	}
}

// SemanticWeight resolves the effective semantic weight for a profile.
func (w ScoreWeights) SemanticWeight(specialization float64) float64 {
	if specialization < 0 {
		specialization = 0
	}
	if specialization > 1 {
		specialization = 1
	}
	return w.SemanticBase + specialization*w.SemanticSpecialization
}

// SearchConfig is the caller-facing configuration surface, validated before
// any external call is made.
type SearchConfig struct {
	MinRequired int `json:"min_required"`
	MaxResults  int `json:"max_results"`
	MaxAttempts int `json:"max_attempts"`

	Weights                ScoreWeights `json:"weights"`
	BusinessModelThreshold float64      `json:"business_model_threshold"`
	CandidatesPerRound     int          `json:"candidates_per_round"`
}

// Validate checks the hard constraints and fails fast with a ConfigError.
func (c SearchConfig) Validate() error {
	if c.MinRequired < 1 {
		return &ConfigError{Field: "min_required", Reason: "must be at least 1"}
	}
	if c.MaxResults < c.MinRequired {
		return &ConfigError{Field: "max_results", Reason: "must be at least min_required"}
	}
	if c.MaxAttempts < 1 {
		return &ConfigError{Field: "max_attempts", Reason: "must be at least 1"}
	}
	return nil
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.Weights == (ScoreWeights{}) {
		c.Weights = DefaultScoreWeights()
	}
	if c.BusinessModelThreshold <= 0 {
		c.BusinessModelThreshold = DefaultBusinessModelThreshold
	}
	if c.CandidatesPerRound <= 0 {
		c.CandidatesPerRound = DefaultCandidatesPerRound
	}
	return c
}
