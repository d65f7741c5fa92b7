package comps

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	err     error
	calls   map[string]int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[text]++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func TestScoreCompositeFormula(t *testing.T) {
	profile := baseProfile()
	profile.SpecializationLevel = 0.5
	c := Candidate{
		Name:             "Anno Labs",
		BusinessActivity: "data annotation platform for machine learning pipelines",
		CustomerSegment:  "AI teams",
	}
	emb := &stubEmbedder{vectors: map[string][]float64{
		profile.NormalizedDescription: {1, 0, 0},
		candidateText(c):              {1, 0, 0},
	}}
	s := NewEmbeddingScorer(emb, DefaultScoreWeights())
	sc, err := s.Score(context.Background(), ValidationResult{Candidate: c, Passed: true, BusinessModelStrength: 0.8}, profile)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sc.SemanticSimilarity != 1.0 {
		t.Fatalf("semantic = %v, want 1.0 for identical vectors", sc.SemanticSimilarity)
	}
	// Terms "data annotation" and "machine learning" appear, "training data" does not.
	if math.Abs(sc.FocusOverlapScore-2.0/3.0) > 1e-9 {
		t.Fatalf("focus = %v, want 2/3", sc.FocusOverlapScore)
	}
	// weight = 3.0 + 0.5*2.0 = 4.0
	want := 1.0*4.0 + (2.0/3.0)*1.5 + 0.8*0.75
	if math.Abs(sc.CompositeScore-want) > 1e-9 {
		t.Fatalf("composite = %v, want %v", sc.CompositeScore, want)
	}
}

func TestScoreSpecializationRaisesSemanticWeight(t *testing.T) {
	c := cand("Alpha Corp")
	emb := &stubEmbedder{vectors: map[string][]float64{}}
	s := NewEmbeddingScorer(emb, DefaultScoreWeights())

	narrow := baseProfile()
	narrow.SpecializationLevel = 1.0
	diversified := baseProfile()
	diversified.SpecializationLevel = 0.0
	// Distinct descriptions so the cached target vector is not reused.
	diversified.NormalizedDescription = "diversified industrial conglomerate with many unrelated lines"

	vr := ValidationResult{Candidate: c, Passed: true, BusinessModelStrength: 0.5}
	a, err := s.Score(context.Background(), vr, narrow)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	b, err := s.Score(context.Background(), vr, diversified)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a.CompositeScore <= b.CompositeScore {
		t.Fatalf("narrow target composite %v should exceed diversified %v at equal similarity", a.CompositeScore, b.CompositeScore)
	}
}

func TestScoreTargetVectorCached(t *testing.T) {
	profile := baseProfile()
	emb := &stubEmbedder{vectors: map[string][]float64{}}
	s := NewEmbeddingScorer(emb, DefaultScoreWeights())
	vr := ValidationResult{Candidate: cand("Alpha Corp"), Passed: true}
	for i := 0; i < 3; i++ {
		if _, err := s.Score(context.Background(), vr, profile); err != nil {
			t.Fatalf("Score: %v", err)
		}
	}
	if emb.calls[profile.NormalizedDescription] != 1 {
		t.Fatalf("target embedded %d times, want 1", emb.calls[profile.NormalizedDescription])
	}
}

func TestScoreEmbedFailure(t *testing.T) {
	emb := &stubEmbedder{err: &ProviderError{Kind: ProviderTimeout, Op: "embed", Err: errors.New("deadline")}}
	s := NewEmbeddingScorer(emb, DefaultScoreWeights())
	_, err := s.Score(context.Background(), ValidationResult{Candidate: cand("Alpha Corp")}, baseProfile())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBand(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{6.1, "excellent"},
		{5.0, "excellent"},
		{4.9, "good"},
		{3.0, "good"},
		{2.5, "fair"},
		{1.9, "weak"},
	}
	for _, tc := range cases {
		if got := Band(tc.score); got != tc.want {
			t.Fatalf("Band(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
