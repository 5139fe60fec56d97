// Package events fans mining events out to registered receivers.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a receiver can fall behind before
// events are dropped for it. It also bounds the history replayed to new
// receivers so the replay never blocks.
const messageBuffer = 100

// Events keeps the receivers of a mining run and the most recent events of
// that run. A mining run is usually over before anyone connects, so a new
// receiver starts with the recorded history.
type Events struct {
	mu      sync.RWMutex
	m       map[string]chan string
	history []string
	dropped uint64
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire. The history is kept.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events. A new channel is loaded with the history first.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.m[id]; exists {
		return ch
	}

	ch := make(chan string, messageBuffer)
	for _, s := range evt.history {
		ch <- s
	}

	evt.m[id] = ch
	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Dropped returns the number of deliveries skipped because a receiver was
// full.
func (evt *Events) Dropped() uint64 {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return evt.dropped
}

// History returns a copy of the recorded events, oldest first.
func (evt *Events) History() []string {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	history := make([]string, len(evt.history))
	copy(history, evt.history)

	return history
}

// Send records the message and signals it to every registered channel.
// Send will not block waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.history = append(evt.history, s)
	if n := len(evt.history); n > messageBuffer {
		evt.history = append(evt.history[:0], evt.history[n-messageBuffer:]...)
	}

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
			evt.dropped++
		}
	}
}
