package comps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeCheckRunner struct {
	mu    sync.Mutex
	order []string

	data      CheckOutcome
	dataErr   error
	public    CheckOutcome
	publicErr error
	oper      CheckOutcome
	operErr   error
	model     BusinessModelOutcome
	modelErr  error
}

func (f *fakeCheckRunner) record(name string) {
	f.mu.Lock()
	f.order = append(f.order, name)
	f.mu.Unlock()
}

func (f *fakeCheckRunner) RunDataCheck(context.Context, Candidate, TargetProfile) (CheckOutcome, error) {
	f.record("data")
	return f.data, f.dataErr
}

func (f *fakeCheckRunner) RunPublicStatusCheck(context.Context, Candidate) (CheckOutcome, error) {
	f.record("public")
	return f.public, f.publicErr
}

func (f *fakeCheckRunner) RunOperatingCheck(context.Context, Candidate) (CheckOutcome, error) {
	f.record("operating")
	return f.oper, f.operErr
}

func (f *fakeCheckRunner) RunBusinessModelCheck(context.Context, Candidate, TargetProfile) (BusinessModelOutcome, error) {
	f.record("model")
	return f.model, f.modelErr
}

func passingRunner() *fakeCheckRunner {
	return &fakeCheckRunner{
		data:   CheckOutcome{Passed: true, Evidence: "real and identifiable company"},
		public: CheckOutcome{Passed: true, Evidence: "ACTIVE (high confidence): listed on NASDAQ", Ticker: "ALPH", Exchange: "NASDAQ"},
		oper:   CheckOutcome{Passed: true, Evidence: "operates its own product business"},
		model:  BusinessModelOutcome{MatchScore: 0.8, Explanation: "both sell subscription software to enterprises"},
	}
}

func TestValidateAllGatesPass(t *testing.T) {
	r := passingRunner()
	v := NewValidator(r, 0.4, 5)
	res := v.Validate(context.Background(), cand("Alpha Corp"), baseProfile())
	if !res.Passed || res.FailingCheck != CheckNone {
		t.Fatalf("result = %+v, want pass", res)
	}
	if res.Candidate.Ticker != "ALPH" || res.Candidate.Exchange != "NASDAQ" {
		t.Fatalf("verified listing not adopted: %+v", res.Candidate)
	}
	if res.BusinessModelStrength != 0.8 {
		t.Fatalf("strength = %v, want 0.8", res.BusinessModelStrength)
	}
	want := []string{"data", "public", "operating", "model"}
	if fmt.Sprint(r.order) != fmt.Sprint(want) {
		t.Fatalf("gate order = %v, want %v", r.order, want)
	}
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*fakeCheckRunner)
		check     FailingCheck
		wantCalls int
	}{
		{"data", func(r *fakeCheckRunner) { r.data = CheckOutcome{Passed: false, Evidence: "not a real company"} }, CheckData, 1},
		{"public status", func(r *fakeCheckRunner) { r.public = CheckOutcome{Passed: false, Evidence: "ACQUIRED (high confidence): bought in 2024"} }, CheckPublicStatus, 2},
		{"operating", func(r *fakeCheckRunner) { r.oper = CheckOutcome{Passed: false, Evidence: "blank-check acquisition vehicle"} }, CheckOperatingCompany, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := passingRunner()
			tc.mutate(r)
			res := NewValidator(r, 0.4, 5).Validate(context.Background(), cand("Alpha Corp"), baseProfile())
			if res.Passed || res.FailingCheck != tc.check {
				t.Fatalf("result = %+v, want failure at %s", res, tc.check)
			}
			if len(r.order) != tc.wantCalls {
				t.Fatalf("gates run = %v, want %d calls", r.order, tc.wantCalls)
			}
		})
	}
}

func TestValidateBusinessModelThreshold(t *testing.T) {
	r := passingRunner()
	r.model = BusinessModelOutcome{MatchScore: 0.3, Explanation: "candidate is hardware-led, target is services"}
	res := NewValidator(r, 0.4, 5).Validate(context.Background(), cand("Alpha Corp"), baseProfile())
	if res.Passed || res.FailingCheck != CheckBusinessModel {
		t.Fatalf("result = %+v, want BUSINESS_MODEL failure", res)
	}
	if res.BusinessModelStrength != 0.3 {
		t.Fatalf("strength = %v, want recorded even on failure", res.BusinessModelStrength)
	}
}

func TestValidateProviderErrorBecomesDataFailure(t *testing.T) {
	r := passingRunner()
	r.operErr = &ProviderError{Kind: ProviderRateLimited, Op: "check_operating", Err: errors.New("429")}
	res := NewValidator(r, 0.4, 5).Validate(context.Background(), cand("Alpha Corp"), baseProfile())
	if res.Passed || res.FailingCheck != CheckData {
		t.Fatalf("result = %+v, want DATA failure", res)
	}
}

func TestValidateBatchPreservesOrder(t *testing.T) {
	r := passingRunner()
	v := NewValidator(r, 0.4, 2)
	cands := []Candidate{cand("Alpha Corp"), cand("Beta Inc"), cand("Gamma Ltd"), cand("Delta Plc"), cand("Epsilon SA")}
	results := v.ValidateBatch(context.Background(), cands, baseProfile())
	if len(results) != len(cands) {
		t.Fatalf("results = %d, want %d", len(results), len(cands))
	}
	for i := range cands {
		if results[i].Candidate.Name != cands[i].Name {
			t.Fatalf("result %d is %s, want %s", i, results[i].Candidate.Name, cands[i].Name)
		}
	}
}
