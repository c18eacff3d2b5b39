package worker

import (
	"context"

	"github.com/ppiankov/itinmap/internal/model"
)

// Resolver resolves one candidate into a place
type Resolver interface {
	Resolve(ctx context.Context, candidate model.CandidateLocation) (*model.ResolvedLocation, error)
}

// ResolveJob resolves a single candidate
type ResolveJob struct {
	Candidate model.CandidateLocation
	Resolver  Resolver
}

// Execute runs the resolution
func (j *ResolveJob) Execute(ctx context.Context) Result {
	loc, err := j.Resolver.Resolve(ctx, j.Candidate)
	return &ResolveResult{Candidate: j.Candidate, Location: loc, Error: err}
}

// ResolveResult is the outcome for one candidate
type ResolveResult struct {
	Candidate model.CandidateLocation
	Location  *model.ResolvedLocation
	Error     error
}

// GetError returns the resolution error, if any
func (r *ResolveResult) GetError() error {
	return r.Error
}

// BatchResolver resolves candidates concurrently with bounded parallelism
type BatchResolver struct {
	resolver    Resolver
	concurrency int
}

// NewBatchResolver creates a batch resolver running at most concurrency lookups at once
func NewBatchResolver(resolver Resolver, concurrency int) *BatchResolver {
	return &BatchResolver{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ResolveAll resolves every candidate and returns results in input order. Workers
// drain the queue in order, so the results form a prefix of candidates; the
// remainder was skipped by cancellation and carries ctx.Err().
func (b *BatchResolver) ResolveAll(ctx context.Context, candidates []model.CandidateLocation) []*ResolveResult {
	if len(candidates) == 0 {
		return []*ResolveResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, c := range candidates {
		if !pool.Submit(&ResolveJob{Candidate: c, Resolver: b.resolver}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*ResolveResult, len(candidates))
	for i, r := range results {
		out[i] = r.(*ResolveResult)
	}
	for i := len(results); i < len(candidates); i++ {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &ResolveResult{Candidate: candidates[i], Error: err}
	}
	return out
}
