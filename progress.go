package talentq

import (
	"context"

	"github.com/seen-ai/talentq/internal/hctx"
)

// SetProgress allows a processor to report progress (0..100) for the current
// job. The value is written through to the store so pollers see it live.
// It is a no-op if the context was not provided by an engine worker.
func SetProgress(ctx context.Context, p int) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil || st.Report == nil {
		return
	}
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	st.Report(p)
}

// JobIDFromContext returns the id of the job currently being processed,
// if the context comes from an engine worker.
func JobIDFromContext(ctx context.Context) (string, bool) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return "", false
	}
	return st.JobID, true
}
