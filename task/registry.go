package task

import (
	"strings"
	"sync"
	"time"

	"ScoreFM/logger"
	"ScoreFM/model"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// entry is the registry-owned task row. Exactly one worker writes a
// row after creation; the registry mutex protects the map itself.
type entry struct {
	status  Status
	result  *model.Track
	err     string
	updated time.Time
}

// Snapshot is a read-only copy of a task row handed to callers.
type Snapshot struct {
	ID     string
	Status Status
	Result *model.Track
	Error  string
}

// Registry is the in-process task table. It is injected into handlers
// and workers; there is no package-level instance.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*entry

	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewRegistry creates a registry. Terminal tasks older than ttl are
// evicted by a janitor goroutine; ttl <= 0 disables eviction.
func NewRegistry(ttl time.Duration) *Registry {
	r := &Registry{
		tasks: make(map[string]*entry),
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	if ttl > 0 {
		go r.janitor()
	}
	return r
}

// Close stops the eviction janitor.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}

// Create inserts a new task in the queued state and returns its id.
func (r *Registry) Create() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = &entry{status: StatusQueued, updated: time.Now()}
	return id
}

// Run transitions a task to running. Writes to terminal or unknown
// tasks are ignored.
func (r *Registry) Run(id string) {
	r.set(id, StatusRunning, nil, "")
}

// Succeed records the produced Track and moves the task to succeeded.
func (r *Registry) Succeed(id string, result *model.Track) {
	r.set(id, StatusSucceeded, result, "")
}

// Fail records the failure message and moves the task to failed.
func (r *Registry) Fail(id string, msg string) {
	r.set(id, StatusFailed, nil, msg)
}

func (r *Registry) set(id string, status Status, result *model.Track, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[id]
	if !ok {
		logger.Warn("status write for unknown task", logger.String("taskId", id))
		return
	}
	if e.status.Terminal() {
		// Terminal states are immutable.
		logger.Warn("status write to terminal task ignored",
			logger.String("taskId", id),
			logger.String("status", string(e.status)))
		return
	}

	e.status = status
	e.result = result
	e.err = errMsg
	e.updated = time.Now()
}

// Get returns a snapshot of a task, or ok=false for unknown ids.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{ID: id, Status: e.status, Result: e.result, Error: e.err}, true
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// janitor evicts terminal tasks that clients have had ttl time to read.
func (r *Registry) janitor() {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

func (r *Registry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.tasks {
		if e.status.Terminal() && now.Sub(e.updated) > r.ttl {
			delete(r.tasks, id)
			logger.Debug("evicted expired task", logger.String("taskId", id))
		}
	}
}
