package comps

import (
	"context"
	"fmt"
	"sync"
)

// BatchValidator runs the gate checks over a round of candidates.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, cands []Candidate, profile TargetProfile) []ValidationResult
}

// Validator applies the four gates in a fixed order and stops at the first
// failure. A provider failure during any gate rejects the candidate with an
// implicit data failure rather than failing the round.
type Validator struct {
	runner    CheckRunner
	threshold float64
	chunkSize int
}

func NewValidator(runner CheckRunner, threshold float64, chunkSize int) *Validator {
	if threshold <= 0 {
		threshold = DefaultBusinessModelThreshold
	}
	if chunkSize <= 0 {
		chunkSize = DefaultValidateChunkSize
	}
	return &Validator{runner: runner, threshold: threshold, chunkSize: chunkSize}
}

// Validate runs the ordered gates for one candidate.
func (v *Validator) Validate(ctx context.Context, c Candidate, profile TargetProfile) ValidationResult {
	data, err := v.runner.RunDataCheck(ctx, c, profile)
	if err != nil {
		return providerFailure(c, err)
	}
	if !data.Passed {
		return rejected(c, CheckData, data.Evidence)
	}

	public, err := v.runner.RunPublicStatusCheck(ctx, c)
	if err != nil {
		return providerFailure(c, err)
	}
	if !public.Passed {
		return rejected(c, CheckPublicStatus, public.Evidence)
	}
	if public.Ticker != "" {
		c.Ticker = public.Ticker
	}
	if public.Exchange != "" {
		c.Exchange = public.Exchange
	}

	operating, err := v.runner.RunOperatingCheck(ctx, c)
	if err != nil {
		return providerFailure(c, err)
	}
	if !operating.Passed {
		return rejected(c, CheckOperatingCompany, operating.Evidence)
	}

	model, err := v.runner.RunBusinessModelCheck(ctx, c, profile)
	if err != nil {
		return providerFailure(c, err)
	}
	if model.MatchScore < v.threshold {
		return ValidationResult{
			Candidate:             c,
			Passed:                false,
			FailingCheck:          CheckBusinessModel,
			Evidence:              model.Explanation,
			BusinessModelStrength: model.MatchScore,
		}
	}

	return ValidationResult{
		Candidate:             c,
		Passed:                true,
		FailingCheck:          CheckNone,
		Evidence:              model.Explanation,
		BusinessModelStrength: model.MatchScore,
	}
}

// ValidateBatch fans candidates out in fixed-size chunks and returns results
// in the same order the candidates came in, so downstream merging is
// deterministic regardless of completion order.
func (v *Validator) ValidateBatch(ctx context.Context, cands []Candidate, profile TargetProfile) []ValidationResult {
	results := make([]ValidationResult, len(cands))
	for start := 0; start < len(cands); start += v.chunkSize {
		end := start + v.chunkSize
		if end > len(cands) {
			end = len(cands)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = v.Validate(ctx, cands[i], profile)
			}(i)
		}
		wg.Wait()
	}
	return results
}

func rejected(c Candidate, check FailingCheck, evidence string) ValidationResult {
	return ValidationResult{Candidate: c, Passed: false, FailingCheck: check, Evidence: evidence}
}

func providerFailure(c Candidate, err error) ValidationResult {
	return rejected(c, CheckData, fmt.Sprintf("validation unavailable: %v", err))
}
