package talentq

import (
	"context"
	"sort"
	"sync"
	"time"
)

// healthMinTerminal is the number of terminal jobs a queue must accumulate
// before its failure ratio counts against health; healthMaxFailedRatio is
// the ratio above which the queue is reported unhealthy.
const (
	healthMinTerminal    = 10
	healthMaxFailedRatio = 0.5
)

// HealthStatus aggregates reachability and failure-ratio health per queue.
type HealthStatus struct {
	Healthy   bool            `json:"healthy"`
	Queues    map[string]bool `json:"queues"`
	Timestamp time.Time       `json:"timestamp"`
}

// Manager is the process-wide registry of queue engines. It is constructed
// once at startup and passed by reference to whatever needs it; there is no
// hidden singleton accessor.
type Manager struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	log     Logger
}

// NewManager creates an empty engine registry.
func NewManager(log Logger) *Manager {
	if log == nil {
		log = NewFmtLogger()
	}
	return &Manager{engines: make(map[string]*Engine), log: log}
}

// Register adds an engine under its queue name, replacing any previous entry.
func (m *Manager) Register(e *Engine) {
	m.mu.Lock()
	m.engines[e.Name()] = e
	m.mu.Unlock()
	m.log.Infof("registered queue: %s", e.Name())
}

// Get returns the engine for the named queue.
func (m *Manager) Get(name string) (*Engine, error) {
	m.mu.RLock()
	e, ok := m.engines[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownQueue
	}
	return e, nil
}

// Names returns the registered queue names in stable order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.engines))
	for name := range m.engines {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// AllStats returns the stats of every registered queue.
func (m *Manager) AllStats(ctx context.Context) (map[string]QueueStats, error) {
	out := make(map[string]QueueStats)
	for _, name := range m.Names() {
		e, err := m.Get(name)
		if err != nil {
			continue
		}
		st, err := e.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out[name] = st
	}
	return out, nil
}

// Health reports per-queue health. A queue is healthy when its store is
// reachable and, once it has seen enough terminal jobs, its failure ratio
// stays at or below the threshold.
func (m *Manager) Health(ctx context.Context) HealthStatus {
	hs := HealthStatus{
		Healthy:   true,
		Queues:    make(map[string]bool),
		Timestamp: time.Now().UTC(),
	}
	for _, name := range m.Names() {
		e, err := m.Get(name)
		if err != nil {
			continue
		}
		ok := m.queueHealthy(ctx, e)
		hs.Queues[name] = ok
		if !ok {
			hs.Healthy = false
		}
	}
	return hs
}

func (m *Manager) queueHealthy(ctx context.Context, e *Engine) bool {
	if err := e.Ping(ctx); err != nil {
		m.log.Warnf("health: queue %s unreachable: %v", e.Name(), err)
		return false
	}
	st, err := e.Stats(ctx)
	if err != nil {
		m.log.Warnf("health: queue %s stats failed: %v", e.Name(), err)
		return false
	}
	terminal := st.Completed + st.Failed
	if terminal < healthMinTerminal {
		return true
	}
	return float64(st.Failed)/float64(terminal) <= healthMaxFailedRatio
}

// CleanupAll purges terminal jobs older than maxAge from every queue and
// returns the per-queue removal counts.
func (m *Manager) CleanupAll(ctx context.Context, maxAge time.Duration) (map[string]int, error) {
	out := make(map[string]int)
	for _, name := range m.Names() {
		e, err := m.Get(name)
		if err != nil {
			continue
		}
		n, err := e.Cleanup(ctx, maxAge)
		if err != nil {
			return out, err
		}
		out[name] = n
	}
	return out, nil
}

// StartAll starts every registered engine.
func (m *Manager) StartAll() {
	for _, name := range m.Names() {
		if e, err := m.Get(name); err == nil {
			e.Start()
		}
	}
}

// ShutdownAll drains every registered engine, bounded by the context
// deadline, used for maintenance-mode draining. The first error is returned
// but every engine is still asked to stop.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	var first error
	for _, name := range m.Names() {
		e, err := m.Get(name)
		if err != nil {
			continue
		}
		if err := e.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
