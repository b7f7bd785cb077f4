package hctx

import "context"

// Reporter receives progress updates from a processor while its job is active.
type Reporter func(progress int)

// State holds per-execution metadata wiring a processor back to the runtime.
type State struct {
	// JobID identifies the job currently being processed.
	JobID string
	// Report forwards a progress value to the store; may be nil.
	Report Reporter
}

// New creates a fresh handler state container for one job execution.
func New(jobID string, report Reporter) *State {
	return &State{JobID: jobID, Report: report}
}

type ctxKey struct{}

// WithState returns a child context carrying the given handler state.
func WithState(parent context.Context, s *State) context.Context {
	return context.WithValue(parent, ctxKey{}, s)
}

// From extracts the handler state from context if present.
func From(ctx context.Context) (*State, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
