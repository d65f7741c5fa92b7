package comps

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore persists finished sessions and answers cache lookups.
// FindCached returns (nil, nil) when there is no prior result for the key.
type SessionStore interface {
	FindCached(ctx context.Context, targetKey string) (*SessionSnapshot, error)
	SaveSession(ctx context.Context, snap SessionSnapshot) error
}

// ProgressFn is invoked after every completed round with values only, so
// observers cannot reach into session state.
type ProgressFn func(round, accepted int, status SessionStatus)

// Controller owns the search session end to end: profile, generate,
// validate, score, broaden, terminate, persist. Session state is touched by
// exactly one goroutine; concurrency lives inside the validator and the
// per-round scoring fan-out, both of which merge deterministically.
type Controller struct {
	profiles  ProfileBuilder
	generator Generator
	validator BatchValidator
	scorer    Scorer
	store     SessionStore
	progress  ProgressFn
	tracer    trace.Tracer
}

func NewController(profiles ProfileBuilder, generator Generator, validator BatchValidator, scorer Scorer) *Controller {
	return &Controller{
		profiles:  profiles,
		generator: generator,
		validator: validator,
		scorer:    scorer,
		tracer:    otel.Tracer("github.com/compiq/compiq/internal/comps"),
	}
}

// SetStore enables cache lookup before the search and persistence after it.
func (c *Controller) SetStore(s SessionStore) { c.store = s }

// SetProgress registers the per-round observer callback.
func (c *Controller) SetProgress(fn ProgressFn) { c.progress = fn }

// Run executes one full search. Configuration errors and profile failures
// abort before or at the first stage; everything after the profile degrades
// per candidate or per round instead of failing the search.
func (c *Controller) Run(ctx context.Context, in TargetInput, cfg SearchConfig) (*SearchSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	ctx, span := c.tracer.Start(ctx, "comps.search",
		trace.WithAttributes(attribute.String("target.name", in.Name)))
	defer span.End()

	// A cache lookup failure degrades to a warning and the search runs fresh.
	var warnings []string
	if c.store != nil {
		snap, err := c.store.FindCached(ctx, TargetKey(in))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cache lookup failed: %v", err))
		}
		if snap != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return sessionFromSnapshot(snap), nil
		}
	}

	profile, err := c.profiles.Build(ctx, in)
	if err != nil {
		return nil, err
	}

	session := &SearchSession{
		ID:            uuid.NewString(),
		Target:        profile,
		Round:         1,
		RejectedNames: map[string]struct{}{},
		Status:        StatusRunning,
		Warnings:      warnings,
		StartedAt:     time.Now().UTC(),
	}
	acceptedNames := map[string]struct{}{}
	breadth := 1

	for session.Status == StatusRunning {
		// Cancellation is honored only at round boundaries so a round's
		// results are never half-applied.
		if ctx.Err() != nil {
			session.Status = StatusCancelled
			break
		}

		c.runRound(ctx, session, profile, acceptedNames, breadth, cfg)
		session.AttemptsUsed++
		round := session.Round
		session.Round++

		switch {
		case len(session.Accepted) >= cfg.MinRequired:
			session.Status = StatusSatisfied
		case session.AttemptsUsed >= cfg.MaxAttempts:
			session.Status = StatusExhausted
		default:
			breadth++
		}
		if c.progress != nil {
			c.progress(round, len(session.Accepted), session.Status)
		}
	}

	c.finalize(ctx, session, cfg)
	span.SetAttributes(
		attribute.String("session.status", string(session.Status)),
		attribute.Int("session.accepted", len(session.Accepted)),
		attribute.Int("session.attempts", session.AttemptsUsed),
	)
	return session, nil
}

func (c *Controller) runRound(ctx context.Context, session *SearchSession, profile TargetProfile, acceptedNames map[string]struct{}, breadth int, cfg SearchConfig) {
	ctx, span := c.tracer.Start(ctx, "comps.round",
		trace.WithAttributes(attribute.Int("round", session.Round), attribute.Int("breadth", breadth)))
	defer span.End()

	excluded := make(map[string]struct{}, len(acceptedNames)+len(session.RejectedNames))
	for k := range acceptedNames {
		excluded[k] = struct{}{}
	}
	for k := range session.RejectedNames {
		excluded[k] = struct{}{}
	}

	cands, err := c.generator.Generate(ctx, profile, excluded, breadth)
	if err != nil {
		session.Warnings = append(session.Warnings, fmt.Sprintf("round %d generation failed: %v", session.Round, err))
		return
	}
	if len(cands) == 0 {
		return
	}

	results := c.validator.ValidateBatch(ctx, cands, profile)

	// Score passing candidates concurrently, then merge strictly in the
	// generator's candidate order.
	scored := make([]ScoredComparable, len(results))
	scoreErrs := make([]error, len(results))
	var wg sync.WaitGroup
	for i := range results {
		if !results[i].Passed {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scored[i], scoreErrs[i] = c.scorer.Score(ctx, results[i], profile)
		}(i)
	}
	wg.Wait()

	for i, vr := range results {
		key := vr.Candidate.NormalizedName()
		if _, dup := acceptedNames[key]; dup {
			continue
		}
		if _, dup := session.RejectedNames[key]; dup {
			continue
		}
		if !vr.Passed {
			session.RejectedNames[key] = struct{}{}
			session.Rejected = append(session.Rejected, vr)
			continue
		}
		if scoreErrs[i] != nil {
			vr.Passed = false
			vr.FailingCheck = CheckData
			vr.Evidence = fmt.Sprintf("scoring unavailable: %v", scoreErrs[i])
			session.RejectedNames[key] = struct{}{}
			session.Rejected = append(session.Rejected, vr)
			continue
		}
		acceptedNames[key] = struct{}{}
		session.Accepted = append(session.Accepted, scored[i])
	}
	span.SetAttributes(
		attribute.Int("round.candidates", len(cands)),
		attribute.Int("round.accepted_total", len(session.Accepted)),
	)
}

func (c *Controller) finalize(ctx context.Context, session *SearchSession, cfg SearchConfig) {
	SortComparables(session.Accepted)
	if len(session.Accepted) > cfg.MaxResults {
		session.Accepted = session.Accepted[:cfg.MaxResults]
	}
	session.CompletedAt = time.Now().UTC()

	if c.store != nil {
		// Persistence failure downgrades to a warning; the result set is
		// already complete and goes back to the caller regardless.
		if err := c.store.SaveSession(context.WithoutCancel(ctx), session.Snapshot()); err != nil {
			session.Warnings = append(session.Warnings, fmt.Sprintf("session not persisted: %v", err))
		}
	}
}

// SortComparables orders by composite score descending, breaking ties by
// semantic similarity descending and then candidate name ascending, so equal
// inputs always produce an identical ranking.
func SortComparables(list []ScoredComparable) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CompositeScore != list[j].CompositeScore {
			return list[i].CompositeScore > list[j].CompositeScore
		}
		if list[i].SemanticSimilarity != list[j].SemanticSimilarity {
			return list[i].SemanticSimilarity > list[j].SemanticSimilarity
		}
		return list[i].Candidate.Name < list[j].Candidate.Name
	})
}

func sessionFromSnapshot(snap *SessionSnapshot) *SearchSession {
	names := make(map[string]struct{}, len(snap.Rejected))
	for _, r := range snap.Rejected {
		names[r.Candidate.NormalizedName()] = struct{}{}
	}
	return &SearchSession{
		ID:            snap.ID,
		Target:        snap.Target,
		Round:         snap.Rounds + 1,
		Accepted:      append([]ScoredComparable(nil), snap.Accepted...),
		Rejected:      append([]ValidationResult(nil), snap.Rejected...),
		RejectedNames: names,
		AttemptsUsed:  snap.AttemptsUsed,
		Status:        snap.Status,
		CacheHit:      true,
		Warnings:      append([]string(nil), snap.Warnings...),
		StartedAt:     snap.StartedAt,
		CompletedAt:   snap.CompletedAt,
	}
}
