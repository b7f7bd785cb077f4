package talentq

// Job is one unit of asynchronous work tracked by id and status.
// It is serialized to JSON and stored in Redis as a per-job hash entry.
type Job struct {
	// ID is the unique identifier for the job, immutable after creation.
	ID string `json:"id"`
	// Queue is the name of the queue this job belongs to.
	Queue string `json:"queue"`
	// Type is a domain-specific label for the kind of work (e.g. "cv-analysis").
	Type string `json:"type"`
	// Data is the raw domain payload, immutable after creation.
	Data []byte `json:"data"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Progress is the last reported progress (0..100), monotonic while active.
	Progress int `json:"progress"`
	// Attempts counts how many times a worker picked this job up.
	Attempts int `json:"attempts"`
	// Result is the processor output, set only when Status is StatusCompleted.
	Result []byte `json:"result,omitempty"`
	// Error is the failure message, set only when Status is StatusFailed.
	Error string `json:"error,omitempty"`
	// ErrorCode is an optional machine-readable failure code.
	ErrorCode string `json:"error_code,omitempty"`
	// CreatedAt is the timestamp (ms) when the job was created.
	CreatedAt int64 `json:"created_at"`
	// StartedAt is the timestamp (ms) set on the transition to active.
	StartedAt int64 `json:"started_at,omitempty"`
	// CompletedAt is the timestamp (ms) set on the transition to a terminal state.
	CompletedAt int64 `json:"completed_at,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Status represents a job lifecycle state. Transitions are monotonic:
// pending -> active -> {completed | failed}; nothing leaves a terminal state.
type Status string

const (
	// StatusPending marks jobs accepted but not yet picked up by a worker.
	StatusPending Status = "pending"
	// StatusActive marks jobs currently being processed.
	StatusActive Status = "active"
	// StatusCompleted marks jobs that finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed marks jobs whose processing raised a terminal error.
	StatusFailed Status = "failed"
)

// AllStatuses lists every valid job status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusActive, StatusCompleted, StatusFailed}

// String returns the raw string value of the status.
func (s Status) String() string { return string(s) }

// ParseStatus converts a string into a Status, returning an error for unknown values.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusActive):
		return StatusActive, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}

// QueueStats is a point-in-time view of one queue's status buckets.
// It is derived from the store on demand, never persisted.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}
