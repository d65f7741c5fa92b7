package comps

import (
	"context"
	"strings"
	"sync"
)

// Scorer assigns the composite similarity score to a validated candidate.
type Scorer interface {
	Score(ctx context.Context, vr ValidationResult, profile TargetProfile) (ScoredComparable, error)
}

// EmbeddingScorer combines embedding similarity, key-term overlap, and the
// graded business-model match into one composite score. The target embedding
// is computed once and reused for every candidate of the same profile.
type EmbeddingScorer struct {
	embed   EmbeddingClient
	weights ScoreWeights

	mu         sync.Mutex
	targetText string
	targetVec  []float64
}

func NewEmbeddingScorer(embed EmbeddingClient, weights ScoreWeights) *EmbeddingScorer {
	if weights == (ScoreWeights{}) {
		weights = DefaultScoreWeights()
	}
	return &EmbeddingScorer{embed: embed, weights: weights}
}

func (s *EmbeddingScorer) Score(ctx context.Context, vr ValidationResult, profile TargetProfile) (ScoredComparable, error) {
	targetVec, err := s.targetVector(ctx, profile)
	if err != nil {
		return ScoredComparable{}, err
	}
	candVec, err := s.embed.Embed(ctx, candidateText(vr.Candidate))
	if err != nil {
		return ScoredComparable{}, err
	}

	// Cosine lands in [-1,1]; shift to [0,1] before weighting.
	semantic := (CosineSimilarity(targetVec, candVec) + 1) / 2
	focus := focusOverlap(profile.NormalizedTerms, vr.Candidate)
	model := vr.BusinessModelStrength

	composite := semantic*s.weights.SemanticWeight(profile.SpecializationLevel) +
		focus*s.weights.FocusMultiplier +
		model*s.weights.ModelMultiplier

	return ScoredComparable{
		Candidate:          vr.Candidate,
		SemanticSimilarity: semantic,
		FocusOverlapScore:  focus,
		BusinessModelScore: model,
		CompositeScore:     composite,
	}, nil
}

func (s *EmbeddingScorer) targetVector(ctx context.Context, profile TargetProfile) ([]float64, error) {
	text := profile.NormalizedDescription
	s.mu.Lock()
	if s.targetText == text && s.targetVec != nil {
		vec := s.targetVec
		s.mu.Unlock()
		return vec, nil
	}
	s.mu.Unlock()

	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.targetText = text
	s.targetVec = vec
	s.mu.Unlock()
	return vec, nil
}

func candidateText(c Candidate) string {
	parts := []string{c.Name, c.BusinessActivity}
	if c.CustomerSegment != "" {
		parts = append(parts, "customers: "+c.CustomerSegment)
	}
	return strings.Join(parts, ". ")
}

// focusOverlap is the fraction of the target's key terms that appear in the
// candidate's own description text.
func focusOverlap(terms []string, c Candidate) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(candidateText(c))
	matched := 0
	for _, t := range terms {
		if strings.Contains(text, strings.ToLower(t)) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
