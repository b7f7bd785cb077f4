package talentq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seen-ai/talentq/internal/hctx"
	"github.com/seen-ai/talentq/internal/store"
)

// EngineConfig defines the configuration for one queue engine.
type EngineConfig struct {
	// Concurrency is the number of worker goroutines. Default 3.
	Concurrency int
	// ProcessTimeout bounds a single Processor.Process call. Zero disables
	// the bound, leaving a hung processor to hold its job active forever.
	ProcessTimeout time.Duration
	// PollInterval is the worker sleep when the queue is empty. Default 50ms.
	PollInterval time.Duration
	// Logger is the logger used for engine events.
	Logger Logger
}

// Engine binds one job store, one processor and a worker pool into a single
// named queue. Job creation is the async boundary: CreateJob returns
// immediately and callers poll GetJobStatus until a terminal state.
type Engine struct {
	name string
	st   *store.Store
	proc Processor
	cfg  EngineConfig
	log  Logger

	mu      sync.Mutex
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates an engine for the named queue.
func NewEngine(name string, rdb redis.UniversalClient, proc Processor, cfg EngineConfig) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	l := cfg.Logger
	if l == nil {
		l = NewFmtLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		name:   name,
		st:     store.New(rdb, name),
		proc:   proc,
		cfg:    cfg,
		log:    l,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the queue name.
func (e *Engine) Name() string { return e.name }

// CreateJob validates the payload, persists a pending job and schedules it
// for processing. It returns the job id immediately; processing happens on
// the worker pool.
func (e *Engine) CreateJob(ctx context.Context, data []byte, jobType string, opts ...CreateOption) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", ErrEngineClosed
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	id, err := e.st.Create(ctx, data, jobType, o.id, o.delay)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrDuplicateJob
		}
		return "", err
	}
	e.log.Debugf("created: id=%s type=%s queue=%s delay=%s", id, jobType, e.name, o.delay)
	return id, nil
}

// GetJobStatus returns the current snapshot of one job.
func (e *Engine) GetJobStatus(ctx context.Context, id string) (*Job, error) {
	rec, err := e.st.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return fromRecord(rec), nil
}

// GetJobProgress returns the last recorded progress for a job.
func (e *Engine) GetJobProgress(ctx context.Context, id string) (int, error) {
	p, err := e.st.Progress(ctx, id)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return p, nil
}

// GetAllJobs returns every known job for the queue in insertion order.
func (e *Engine) GetAllJobs(ctx context.Context) ([]*Job, error) {
	recs, err := e.st.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Stats returns the aggregate per-bucket counts for this queue.
func (e *Engine) Stats(ctx context.Context) (QueueStats, error) {
	st, err := e.st.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{
		Waiting:   st.Waiting,
		Active:    st.Active,
		Completed: st.Completed,
		Failed:    st.Failed,
		Delayed:   st.Delayed,
	}, nil
}

// EstimateFor returns the processor's ETA hint for a payload.
func (e *Engine) EstimateFor(data []byte) time.Duration {
	return e.proc.EstimateProcessingTime(data)
}

// Cleanup removes terminal jobs older than maxAge. Pending and active jobs
// are retained regardless of age.
func (e *Engine) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := e.st.PurgeOlderThan(ctx, maxAge)
	if err != nil {
		return n, err
	}
	if n > 0 {
		e.log.Infof("cleanup: queue=%s removed=%d", e.name, n)
	}
	return n, nil
}

// Ping reports whether the engine's store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.st.Ping(ctx)
}

// Start launches the worker pool and the delayed-job scheduler.
// It is idempotent and non-blocking.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.closed {
		e.log.Warnf("engine %s already started or closed; ignoring Start()", e.name)
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()
	e.log.Infof("starting engine: queue=%s concurrency=%d", e.name, e.cfg.Concurrency)

	for i := 0; i < e.cfg.Concurrency; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.workerLoop()
		}()
	}

	// Delayed scheduler: move due jobs from delayed to pending.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.st.PromoteDue(e.ctx, 256); err != nil && e.ctx.Err() == nil {
					e.log.Warnf("scheduler: promote failed queue=%s err=%v", e.name, err)
				}
			}
		}
	}()
}

// Shutdown stops dispatch and waits for in-flight jobs to finish, bounded by
// the context deadline. After Shutdown the engine rejects new jobs.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.started
	e.mu.Unlock()
	e.log.Infof("stopping engine: queue=%s", e.name)

	e.cancel()
	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// workerLoop pulls pending jobs and drives them through the state machine.
// A single job's failure never stops the loop.
func (e *Engine) workerLoop() {
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		id, err := e.st.Dequeue(e.ctx)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			e.log.Warnf("dequeue failed: queue=%s err=%v", e.name, err)
			time.Sleep(e.cfg.PollInterval)
			continue
		}
		if id == "" {
			time.Sleep(e.cfg.PollInterval)
			continue
		}
		e.runJob(id)
	}
}

func (e *Engine) runJob(id string) {
	// Transitions use a background-derived context so a shutdown mid-job
	// still records the terminal state.
	bg := context.Background()

	if err := e.st.MarkActive(bg, id); err != nil {
		e.log.Errorf("mark active failed: id=%s queue=%s err=%v", id, e.name, err)
		return
	}
	rec, err := e.st.Get(bg, id)
	if err != nil {
		e.log.Errorf("load failed: id=%s queue=%s err=%v", id, e.name, err)
		return
	}
	job := fromRecord(rec)

	// In-flight jobs run to completion during a drain, so the processor
	// context is not tied to the engine context.
	procCtx := bg
	var cancel context.CancelFunc
	if e.cfg.ProcessTimeout > 0 {
		procCtx, cancel = context.WithTimeout(procCtx, e.cfg.ProcessTimeout)
	}
	st := hctx.New(id, func(p int) {
		if err := e.st.SetProgress(bg, id, p); err != nil {
			e.log.Warnf("progress update failed: id=%s queue=%s err=%v", id, e.name, err)
		}
	})
	result, perr := e.safeProcess(hctx.WithState(procCtx, st), job)
	if cancel != nil {
		cancel()
	}

	if perr != nil {
		code := classifyCode(perr)
		if err := e.st.MarkFailed(bg, id, perr.Error(), code); err != nil {
			e.log.Errorf("mark failed failed: id=%s queue=%s err=%v", id, e.name, err)
			return
		}
		e.log.Warnf("job failed: id=%s type=%s queue=%s err=%v", id, job.Type, e.name, perr)
		return
	}
	if err := e.st.MarkCompleted(bg, id, result); err != nil {
		e.log.Errorf("mark completed failed: id=%s queue=%s err=%v", id, e.name, err)
		return
	}
	e.log.Debugf("processed: id=%s type=%s queue=%s", id, job.Type, e.name)
}

// safeProcess shields the worker loop from panicking processors.
func (e *Engine) safeProcess(ctx context.Context, job *Job) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &processorPanicError{value: r}
		}
	}()
	return e.proc.Process(ctx, job)
}

type processorPanicError struct{ value any }

func (e *processorPanicError) Error() string {
	return "processor panic: " + panicString(e.value)
}

func panicString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case error:
		return s.Error()
	default:
		return "unknown"
	}
}

// classifyCode maps a processing error to the machine-readable code stored
// on the failed job.
func classifyCode(err error) string {
	var he *HTTPError
	switch {
	case errors.As(err, &he):
		if he.Status >= 500 {
			return "UPSTREAM_ERROR"
		}
		return "UPSTREAM_REJECTED"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return "PROCESSING_ERROR"
	}
}

func fromRecord(r *store.Record) *Job {
	return &Job{
		ID:          r.ID,
		Queue:       r.Queue,
		Type:        r.Type,
		Data:        r.Data,
		Status:      Status(r.Status),
		Progress:    r.Progress,
		Attempts:    r.Attempts,
		Result:      r.Result,
		Error:       r.Error,
		ErrorCode:   r.ErrorCode,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrJobNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, store.ErrDuplicate):
		return ErrDuplicateJob
	default:
		return err
	}
}
