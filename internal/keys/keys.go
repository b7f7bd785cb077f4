package keys

// Package keys centralizes Redis key construction.
// It is kept in internal to avoid leaking key formats to public API.
// Queue names are wrapped in a hash tag so every key of one queue lands on
// the same cluster slot, which lets transitions run as multi-key Lua scripts.

// Queue holds all precomputed keys for a queue name to avoid repeated concatenations.
type Queue struct {
	// Jobs is a HASH mapping job id -> job record JSON.
	Jobs string
	// Index is a LIST of job ids in creation order, backing ListAll.
	Index string
	// Pending is a LIST of job ids ready for dispatch.
	Pending string
	// Delayed is a ZSET of job ids scored by their ready-at timestamp (ms).
	Delayed string
	// Active is a ZSET of job ids scored by their started-at timestamp (ms).
	Active string
	// Completed is a ZSET of job ids scored by their completed-at timestamp (ms).
	Completed string
	// Failed is a ZSET of job ids scored by their completed-at timestamp (ms).
	Failed string
}

// For returns the set of precomputed keys for the provided queue.
func For(q string) Queue {
	prefix := "talentq:{" + q + "}:"
	return Queue{
		Jobs:      prefix + "jobs",
		Index:     prefix + "index",
		Pending:   prefix + "pending",
		Delayed:   prefix + "delayed",
		Active:    prefix + "active",
		Completed: prefix + "completed",
		Failed:    prefix + "failed",
	}
}

func Jobs(q string) string      { return For(q).Jobs }
func Index(q string) string     { return For(q).Index }
func Pending(q string) string   { return For(q).Pending }
func Delayed(q string) string   { return For(q).Delayed }
func Active(q string) string    { return For(q).Active }
func Completed(q string) string { return For(q).Completed }
func Failed(q string) string    { return For(q).Failed }
