package talentq

import (
	"context"
	"time"
)

// Processor is the per-domain strategy an engine runs jobs through.
// Process is invoked at most once per job; retries around outbound calls
// belong inside the processor (see RetryExecutor), never at the engine layer.
type Processor interface {
	// Process performs the unit of work and returns the encoded domain result.
	// Progress may be reported via SetProgress on the supplied context.
	Process(ctx context.Context, job *Job) ([]byte, error)

	// EstimateProcessingTime returns a client-facing ETA hint derived from
	// payload size heuristics. It must be pure and must not fail.
	EstimateProcessingTime(data []byte) time.Duration
}

// ClampEstimate bounds an estimator formula to a domain's [min, max] range.
func ClampEstimate(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// ProcessorFunc adapts plain functions to the Processor interface with a
// fixed estimate, convenient in tests and simple pipelines.
type ProcessorFunc struct {
	Fn       func(ctx context.Context, job *Job) ([]byte, error)
	Estimate time.Duration
}

func (p ProcessorFunc) Process(ctx context.Context, job *Job) ([]byte, error) {
	return p.Fn(ctx, job)
}

func (p ProcessorFunc) EstimateProcessingTime([]byte) time.Duration {
	return p.Estimate
}
