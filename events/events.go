// Package events delivers the outbound host protocol: load, run, suite and
// test state notifications. Producers write to a Sink that is passed to them
// explicitly; there is no process-wide emitter.
package events

import (
	"sync"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

// Sink consumes events.
type Sink interface {
	Emit(ev types.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev types.Event)

func (f SinkFunc) Emit(ev types.Event) {
	f(ev)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(types.Event) {})

// Multi fans each event out to all sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ev types.Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(ev)
			}
		}
	})
}

// Collector records events in memory.
type Collector struct {
	mu     sync.Mutex
	events []types.Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(ev types.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Filter returns the recorded events of the given type.
func (c *Collector) Filter(t types.EventType) []types.Event {
	var out []types.Event
	for _, ev := range c.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
