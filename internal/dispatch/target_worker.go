package dispatch

import (
	"context"
	"sync"

	"github.com/lair-chat/lair-chat-server/internal/events"
)

// workerQueueSize bounds how many pending events a single target's worker
// will buffer before Dispatch blocks the caller. A target receiving more
// than this many undelivered events is itself a sign of an overloaded
// recipient set, not something the dispatcher should paper over by dropping
// events silently.
const workerQueueSize = 256

// workerPool funnels each target's events through a single buffered
// channel/goroutine pair, so that events about the same room or DM pair are
// delivered in the order they were committed while different targets
// proceed fully in parallel — a single dispatch loop sharded by target
// instead of one global loop serializing every event.
//
// A worker, once created for a key, runs for the lifetime of the process —
// mirroring internal/engine's keyedMutex (a sync.Map that never evicts).
// The set of distinct targets (rooms and DM pairs) is bounded by the data
// the server holds, not by event volume, so this is a bounded, not
// unbounded, amount of idle goroutine/channel state.
type workerPool struct {
	mu sync.Mutex
	workers map[string]chan events.Event

	process func(context.Context, events.Event)
}

func newWorkerPool(process func(context.Context, events.Event)) *workerPool {
	return &workerPool{
		workers: make(map[string]chan events.Event),
		process: process,
	}
}

// enqueue routes evt onto key's worker, creating it on first use.
func (p *workerPool) enqueue(key string, evt events.Event) {
	p.getOrCreate(key) <- evt
}

func (p *workerPool) getOrCreate(key string) chan events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.workers[key]; ok {
		return ch
	}
	ch := make(chan events.Event, workerQueueSize)
	p.workers[key] = ch
	go p.run(ch)
	return ch
}

func (p *workerPool) run(ch chan events.Event) {
	for evt := range ch {
		p.process(context.Background(), evt)
	}
}
