package comps

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func generatorResponse(names ...string) string {
	var sb strings.Builder
	sb.WriteString(`{"candidates":[`)
	for i, n := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"name":%q,"ticker":"t%d","exchange":"NYSE","business_activity":"sells enterprise software products","customer_segment":"large enterprises","rationale":"overlapping products and customer base"}`, n, i)
	}
	sb.WriteString("]}")
	return sb.String()
}

func TestGenerateFiltersExcludedAndDuplicates(t *testing.T) {
	c := &scriptedCaller{responses: []string{generatorResponse("Alpha Corp", "Beta Inc", "Alpha Corporation", "Already Seen Co")}}
	g := NewLLMGenerator(NewReasoningExecutor(c), 25)
	excluded := map[string]struct{}{"already seen": {}}
	cands, err := g.Generate(context.Background(), baseProfile(), excluded, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2 after dedup and exclusion", len(cands))
	}
	if cands[0].Name != "Alpha Corp" || cands[1].Name != "Beta Inc" {
		t.Fatalf("unexpected order: %s, %s", cands[0].Name, cands[1].Name)
	}
}

func TestGenerateDropsTargetItself(t *testing.T) {
	c := &scriptedCaller{responses: []string{generatorResponse("Scale Systems Inc", "Beta Inc")}}
	g := NewLLMGenerator(NewReasoningExecutor(c), 25)
	cands, err := g.Generate(context.Background(), baseProfile(), nil, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cands) != 1 || cands[0].Name != "Beta Inc" {
		t.Fatalf("target company should never be its own comparable: %+v", cands)
	}
}

func TestGenerateEmptyResultIsNotAnError(t *testing.T) {
	c := &scriptedCaller{responses: []string{`{"candidates":[]}`}}
	g := NewLLMGenerator(NewReasoningExecutor(c), 25)
	cands, err := g.Generate(context.Background(), baseProfile(), nil, 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("candidates = %d, want 0", len(cands))
	}
}

func TestGeneratePromptWidensWithBreadth(t *testing.T) {
	c := &scriptedCaller{responses: []string{`{"candidates":[]}`, `{"candidates":[]}`, `{"candidates":[]}`}}
	g := NewLLMGenerator(NewReasoningExecutor(c), 25)
	for breadth := 1; breadth <= 3; breadth++ {
		if _, err := g.Generate(context.Background(), baseProfile(), nil, breadth); err != nil {
			t.Fatalf("Generate breadth %d: %v", breadth, err)
		}
	}
	if !strings.Contains(c.prompts[0], "direct competitors") {
		t.Fatalf("breadth 1 prompt should demand direct competitors: %q", c.prompts[0])
	}
	if !strings.Contains(c.prompts[1], "adjacent segments") {
		t.Fatalf("breadth 2 prompt should broaden to adjacent segments")
	}
	if !strings.Contains(c.prompts[2], "sector-wide") {
		t.Fatalf("breadth 3 prompt should search sector-wide")
	}
}

func TestGeneratePromptListsExclusions(t *testing.T) {
	c := &scriptedCaller{responses: []string{`{"candidates":[]}`}}
	g := NewLLMGenerator(NewReasoningExecutor(c), 25)
	excluded := map[string]struct{}{"beta": {}, "alpha": {}}
	if _, err := g.Generate(context.Background(), baseProfile(), excluded, 2); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	p := c.prompts[0]
	if !strings.Contains(p, "already-considered") || !strings.Contains(p, "alpha; beta") {
		t.Fatalf("prompt missing sorted exclusion list: %q", p)
	}
}
