// Package events carries pipeline progress from the sequencer to a single
// subscriber as an ordered, finite event stream. A bridge lives for one
// pipeline phase: it terminates on a terminal event and is never restarted.
// A subscription taken after termination observes only a closed channel, the
// terminal event is not replayed.
package events

import "sync"

// Type names a stage event on the wire. Values are part of the client-facing
// stream contract and must stay stable.
type Type string

const (
	TypeDraftStart            Type = "draft_start"
	TypeDraftComplete         Type = "draft_complete"
	TypeClarificationRequired Type = "clarification_required"
	TypeStage0Start           Type = "stage0_start"
	TypeStage0Complete        Type = "stage0_complete"
	TypeBrainstormStart       Type = "brainstorm_start"
	TypeBrainstormComplete    Type = "brainstorm_complete"
	TypeContributionsStart    Type = "contributions_start"
	TypeExpertStart           Type = "expert_start"
	TypeExpertComplete        Type = "expert_complete"
	TypeContributionsComplete Type = "contributions_complete"
	TypeVerificationStart     Type = "verification_start"
	TypeVerificationComplete  Type = "verification_complete"
	TypePlanningStart         Type = "planning_start"
	TypePlanningComplete      Type = "planning_complete"
	TypeEditorialStart        Type = "editorial_start"
	TypeEditorialComplete     Type = "editorial_complete"
	TypeFinalStart            Type = "final_start"
	TypeFinalComplete         Type = "final_complete"
	TypeTitleUpdated          Type = "title_updated"
	TypeComplete              Type = "complete"
	TypeError                 Type = "error"
)

// Terminal reports whether t ends a stream. clarification_required is the
// draft phase's checkpoint boundary and terminates the initiation stream.
func (t Type) Terminal() bool {
	switch t {
	case TypeComplete, TypeError, TypeClarificationRequired:
		return true
	}
	return false
}

// Event is one progress notification. Data is either a structured object or
// markdown text, per the event type; Message carries human-readable error
// text for TypeError.
type Event struct {
	Type    Type   `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Bridge delivers events from one producer (the sequencer) to one consumer.
// Emit never blocks the pipeline: if the subscriber has fallen behind the
// buffer, non-terminal events are dropped. Terminal events always close the
// stream.
type Bridge struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewBridge creates a Bridge buffered for bufSize in-flight events. A zero
// or negative size gets a sensible default.
func NewBridge(bufSize int) *Bridge {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bridge{ch: make(chan Event, bufSize)}
}

// Subscribe returns the read-only event channel. The channel is closed after
// the terminal event is delivered (or after Close).
func (b *Bridge) Subscribe() <-chan Event {
	return b.ch
}

// Emit delivers an event. Non-terminal events are dropped if the buffer is
// full; a terminal event is delivered (the buffer is drained by closing
// semantics: the subscriber reads all buffered events, then the terminal,
// then sees the channel close).
func (b *Bridge) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- ev:
	default:
		if !ev.Type.Terminal() {
			return // subscriber is behind; progress events are droppable
		}
		// Make room for the terminal event by discarding the oldest entry.
		select {
		case <-b.ch:
		default:
		}
		b.ch <- ev
	}
	if ev.Type.Terminal() {
		b.closed = true
		close(b.ch)
	}
}

// Close ends the stream without a terminal event. Used when the producer
// aborts before reaching one.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
