package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/seen-ai/talentq/internal/keys"
)

// Sentinel errors surfaced by store operations. The root package maps these
// onto its public error set.
var (
	ErrNotFound          = errors.New("store: job not found")
	ErrDuplicate         = errors.New("store: duplicate job id")
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// Record is the persisted job row. It mirrors the public Job type; the
// mirror avoids an import cycle with the root package, same as the runtime
// internals of the queue this design descends from.
type Record struct {
	ID          string `json:"id"`
	Queue       string `json:"queue"`
	Type        string `json:"type"`
	Data        []byte `json:"data"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Attempts    int    `json:"attempts"`
	Result      []byte `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	StartedAt   int64  `json:"started_at,omitempty"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

// Stats holds the per-bucket job counts for one queue.
type Stats struct {
	Waiting   int64
	Active    int64
	Completed int64
	Failed    int64
	Delayed   int64
}

// Store is the durable persistence and status query surface for one queue.
// All state transitions run as single Lua scripts so concurrent pollers
// never observe a half-written transition.
type Store struct {
	rdb   redis.UniversalClient
	queue string
	k     keys.Queue
}

// New creates a store for the named queue.
func New(rdb redis.UniversalClient, queue string) *Store {
	return &Store{rdb: rdb, queue: queue, k: keys.For(queue)}
}

// Queue returns the queue name this store serves.
func (s *Store) Queue() string { return s.queue }

// Ping reports whether the backing Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// markActiveScript transitions a pending job to active, stamps started_at,
// bumps the attempt counter and indexes it in the active ZSET.
var markActiveScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return redis.error_reply('talentq_not_found') end
local job = cjson.decode(raw)
if job.status ~= 'pending' then return redis.error_reply('talentq_invalid_transition') end
job.status = 'active'
job.started_at = tonumber(ARGV[2])
job.attempts = (job.attempts or 0) + 1
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(job))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return job.attempts
`)

// markCompletedScript transitions an active job to completed with its result.
var markCompletedScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return redis.error_reply('talentq_not_found') end
local job = cjson.decode(raw)
if job.status ~= 'active' then return redis.error_reply('talentq_invalid_transition') end
job.status = 'completed'
job.progress = 100
job.completed_at = tonumber(ARGV[2])
if #ARGV[3] > 0 then job.result = ARGV[3] end
job.error = nil
job.error_code = nil
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(job))
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// markFailedScript transitions an active job to failed with its error.
var markFailedScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return redis.error_reply('talentq_not_found') end
local job = cjson.decode(raw)
if job.status ~= 'active' then return redis.error_reply('talentq_invalid_transition') end
job.status = 'failed'
job.completed_at = tonumber(ARGV[2])
job.error = ARGV[3]
if #ARGV[4] > 0 then job.error_code = ARGV[4] end
job.result = nil
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(job))
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// setProgressScript records progress for an active job; values are
// monotonic, stale or out-of-order reports are dropped.
var setProgressScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then return redis.error_reply('talentq_not_found') end
local job = cjson.decode(raw)
if job.status ~= 'active' then return 0 end
local p = tonumber(ARGV[2])
if (job.progress or 0) >= p then return 0 end
job.progress = p
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(job))
return 1
`)

// promoteOneScript atomically moves one due id from the delayed ZSET to the
// pending LIST. Returns the id on success, false if none are due.
var promoteOneScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #due == 0 then return false end
local id = due[1]
if redis.call('ZREM', KEYS[1], id) == 1 then
  redis.call('LPUSH', KEYS[2], id)
  return id
end
return false
`)

// Create persists a new job with status pending and enqueues it for
// dispatch (or parks it in the delayed ZSET when delay > 0). It is safe to
// call concurrently for unrelated jobs.
func (s *Store) Create(ctx context.Context, data []byte, jobType, id string, delay time.Duration) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	rec := Record{
		ID:        id,
		Queue:     s.queue,
		Type:      jobType,
		Data:      data,
		Status:    "pending",
		CreatedAt: now,
	}
	raw, err := json.Marshal(&rec)
	if err != nil {
		return "", err
	}

	// Reserve the id first; HSETNX doubles as the duplicate check.
	ok, err := s.rdb.HSetNX(ctx, s.k.Jobs, id, raw).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrDuplicate
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.k.Index, id)
		if delay > 0 {
			p.ZAdd(ctx, s.k.Delayed, redis.Z{
				Score:  float64(time.Now().Add(delay).UnixMilli()),
				Member: id,
			})
		} else {
			p.LPush(ctx, s.k.Pending, id)
		}
		return nil
	})
	if err != nil {
		// Rollback the reservation so the id can be reused.
		_ = s.rdb.HDel(ctx, s.k.Jobs, id).Err()
		return "", err
	}
	return id, nil
}

// Get returns the current snapshot of one job.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.HGet(ctx, s.k.Jobs, id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := sonic.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Progress returns the last recorded progress for a job (0 if not started).
func (s *Store) Progress(ctx context.Context, id string) (int, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return rec.Progress, nil
}

// ListAll returns every known job for the queue in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	ids, err := s.rdb.LRange(ctx, s.k.Index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raws, err := s.rdb.HMGet(ctx, s.k.Jobs, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(raws))
	for _, v := range raws {
		str, ok := v.(string)
		if !ok {
			continue // purged between LRANGE and HMGET
		}
		var rec Record
		if err := sonic.Unmarshal([]byte(str), &rec); err == nil {
			out = append(out, &rec)
		}
	}
	return out, nil
}

// Dequeue pops the next pending job id in FIFO order, or "" when none is ready.
func (s *Store) Dequeue(ctx context.Context) (string, error) {
	id, err := s.rdb.RPop(ctx, s.k.Pending).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// MarkActive transitions a pending job to active, stamping started_at and
// incrementing its attempt counter. Invoked only from the worker path.
func (s *Store) MarkActive(ctx context.Context, id string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	err := markActiveScript.Run(ctx, s.rdb, []string{s.k.Jobs, s.k.Active}, id, now).Err()
	return mapScriptErr(err)
}

// MarkCompleted transitions an active job to completed with its result.
// Result bytes are stored base64 inside the record, matching Go JSON []byte
// encoding so the Lua script can splice them in untouched.
func (s *Store) MarkCompleted(ctx context.Context, id string, result []byte) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	enc := ""
	if len(result) > 0 {
		enc = base64.StdEncoding.EncodeToString(result)
	}
	err := markCompletedScript.Run(ctx, s.rdb,
		[]string{s.k.Jobs, s.k.Active, s.k.Completed}, id, now, enc).Err()
	return mapScriptErr(err)
}

// MarkFailed transitions an active job to failed with a message and an
// optional machine-readable code.
func (s *Store) MarkFailed(ctx context.Context, id, msg, code string) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	err := markFailedScript.Run(ctx, s.rdb,
		[]string{s.k.Jobs, s.k.Active, s.k.Failed}, id, now, msg, code).Err()
	return mapScriptErr(err)
}

// SetProgress records progress for an active job. Reports for jobs that are
// no longer active, or that would move progress backwards, are dropped.
func (s *Store) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	err := setProgressScript.Run(ctx, s.rdb, []string{s.k.Jobs}, id, progress).Err()
	return mapScriptErr(err)
}

// PromoteDue moves jobs whose delay has elapsed from the delayed ZSET to the
// pending LIST, up to limit per call. Returns how many were promoted.
func (s *Store) PromoteDue(ctx context.Context, limit int) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	moved := 0
	for i := 0; i < limit; i++ {
		// The script returns false (mapped to redis.Nil) when nothing is due.
		err := promoteOneScript.Run(ctx, s.rdb, []string{s.k.Delayed, s.k.Pending}, now).Err()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Stats returns the per-bucket counts for this queue.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		waiting, delayed, active, completed, failed *redis.IntCmd
	)
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		waiting = p.LLen(ctx, s.k.Pending)
		delayed = p.ZCard(ctx, s.k.Delayed)
		active = p.ZCard(ctx, s.k.Active)
		completed = p.ZCard(ctx, s.k.Completed)
		failed = p.ZCard(ctx, s.k.Failed)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
	}, nil
}

// PurgeOlderThan deletes terminal jobs whose completed_at is older than the
// given age and returns how many were removed. Pending and active jobs are
// never purged regardless of age.
func (s *Store) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := strconv.FormatInt(time.Now().Add(-maxAge).UnixMilli(), 10)
	removed := 0
	for _, key := range []string{s.k.Completed, s.k.Failed} {
		for {
			ids, err := s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
				Min: "0", Max: cutoff, Offset: 0, Count: 256,
			}).Result()
			if err != nil && err != redis.Nil {
				return removed, err
			}
			if len(ids) == 0 {
				break
			}
			_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HDel(ctx, s.k.Jobs, ids...)
				p.ZRem(ctx, key, toAny(ids)...)
				for _, id := range ids {
					p.LRem(ctx, s.k.Index, 1, id)
				}
				return nil
			})
			if err != nil {
				return removed, err
			}
			removed += len(ids)
		}
	}
	return removed, nil
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func mapScriptErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "talentq_not_found"):
		return ErrNotFound
	case strings.Contains(msg, "talentq_invalid_transition"):
		return ErrInvalidTransition
	}
	return err
}
