package talentq

import "time"

type createOptions struct {
	id    string
	delay time.Duration
}

// CreateOption configures job behavior during CreateJob.
type CreateOption func(*createOptions)

// WithJobID sets a custom ID for the job. If not provided, a random UUID is
// generated. Reusing an ID in the same queue fails with ErrDuplicateJob.
func WithJobID(id string) CreateOption {
	return func(o *createOptions) {
		o.id = id
	}
}

// WithDelay schedules the job to become dispatchable after the given
// duration. Until then it counts toward the delayed stats bucket.
func WithDelay(d time.Duration) CreateOption {
	return func(o *createOptions) {
		o.delay = d
	}
}
