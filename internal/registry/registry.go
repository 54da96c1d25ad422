// Package registry tracks the status of every computer (minigame server or
// other controller-managed process) the Brain knows about — spec.md §4.C.
// Adapted from the teacher's internal/metrics.Collector atomic-guarded
// struct and routing.Router's RWMutex-guarded client map, generalized from
// a boolean/counter set into a name -> status map.
package registry

import (
	"sort"
	"sync"

	"github.com/ephemeral-minigames/controller/internal/metricsx"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// Status is a computer's lifecycle stage.
type Status int

const (
	// Starting means a container has been asked for but has not yet
	// authenticated over the wire protocol.
	Starting Status = iota
	// Online means the computer authenticated and is live.
	Online
	// Offline means the computer is gone; SetStatus(name, Offline) removes
	// the entry entirely rather than recording it.
	Offline
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Entry is one (name, status) pair returned by Snapshot.
type Entry struct {
	Name   string
	Status Status
}

// Registry is a thread-safe name -> Status map, sorted on read.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Status
	metrics *metricsx.Collectors
}

// New creates an empty Registry. metrics may be nil, in which case gauge
// updates are skipped (used by tests that don't care about Prometheus).
func New(metrics *metricsx.Collectors) *Registry {
	return &Registry{
		byName:  make(map[string]Status),
		metrics: metrics,
	}
}

// SetStatus records name's status. Offline deletes the entry; any other
// status upserts it. Per spec.md §4.C's poison-tolerant requirement,
// translated to Go (mutexes cannot be poisoned, but a panicking holder can
// still leave the map in a bad spot) a panic inside the critical section is
// recovered, logged, and does not propagate — the registry keeps its
// last-good state instead of wedging every future caller behind a dead
// lock.
func (r *Registry) SetStatus(name string, status Status) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("registry: recovered panic in SetStatus(%q, %v): %v", name, status, rec)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if status == Offline {
		delete(r.byName, name)
	} else {
		r.byName[name] = status
	}

	r.updateGaugesLocked()
}

// Lookup returns name's current status, if recorded.
func (r *Registry) Lookup(name string) (status Status, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("registry: recovered panic in Lookup(%q): %v", name, rec)
			status, ok = 0, false
		}
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok = r.byName[name]
	return status, ok
}

// Snapshot returns every (name, status) pair, sorted by name.
func (r *Registry) Snapshot() (entries []Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("registry: recovered panic in Snapshot: %v", rec)
			entries = nil
		}
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries = make([]Entry, 0, len(r.byName))
	for name, status := range r.byName {
		entries = append(entries, Entry{Name: name, Status: status})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// updateGaugesLocked must be called with r.mu held.
func (r *Registry) updateGaugesLocked() {
	if r.metrics == nil {
		return
	}

	var starting, online float64
	for _, status := range r.byName {
		switch status {
		case Starting:
			starting++
		case Online:
			online++
		}
	}
	r.metrics.ComputersStarting.Set(starting)
	r.metrics.ComputersOnline.Set(online)
}
