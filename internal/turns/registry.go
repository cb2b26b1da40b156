// Package turns is the Turn Processing Pipeline from spec.md §4.5. Registry
// deduplicates concurrent processTurn calls for the same turnId so only
// one pipeline runs and every caller observes the same event stream
// (spec.md §5, SPEC_FULL.md §5.E).
package turns

import (
	"sync"

	"github.com/personalagent/runtime/internal/domain"
)

// inflight buffers every event emitted for one turnId so a late-attaching
// subscriber replays history before receiving live events.
type inflight struct {
	mu     sync.Mutex
	events []domain.TurnStreamEvent
	done   bool
	subs   []chan domain.TurnStreamEvent
}

func newInflight() *inflight {
	return &inflight{}
}

func (f *inflight) subscribe() <-chan domain.TurnStreamEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan domain.TurnStreamEvent, len(f.events)+8)
	for _, e := range f.events {
		ch <- e
	}
	if f.done {
		close(ch)
		return ch
	}
	f.subs = append(f.subs, ch)
	return ch
}

func (f *inflight) publish(e domain.TurnStreamEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.events = append(f.events, e)
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber: it already has the full replay buffer on
			// next subscribe; drop rather than block the pipeline.
		}
	}
}

func (f *inflight) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

// Registry is the per-turnId dedup table.
type Registry struct {
	mu        sync.Mutex
	inflights map[string]*inflight
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{inflights: make(map[string]*inflight)}
}

// Attach returns the event channel of an already-running pipeline for
// turnID, or ok=false if none is running.
func (r *Registry) Attach(turnID string) (<-chan domain.TurnStreamEvent, bool) {
	r.mu.Lock()
	f, ok := r.inflights[turnID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return f.subscribe(), true
}

// Start registers a new in-flight pipeline for turnID and returns the
// handle to publish events on plus the channel the original caller
// subscribes to. The caller MUST invoke the returned finish func exactly
// once when the pipeline completes, which also unregisters turnID.
func (r *Registry) Start(turnID string) (publish func(domain.TurnStreamEvent), subscription <-chan domain.TurnStreamEvent, finish func()) {
	f := newInflight()

	r.mu.Lock()
	r.inflights[turnID] = f
	r.mu.Unlock()

	return f.publish, f.subscribe(), func() {
		f.finish()
		r.mu.Lock()
		delete(r.inflights, turnID)
		r.mu.Unlock()
	}
}
