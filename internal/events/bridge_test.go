package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal(t *testing.T) {
	assert.True(t, TypeComplete.Terminal())
	assert.True(t, TypeError.Terminal())
	assert.True(t, TypeClarificationRequired.Terminal())

	assert.False(t, TypeDraftStart.Terminal())
	assert.False(t, TypeExpertComplete.Terminal())
	assert.False(t, TypeFinalComplete.Terminal())
}

func TestEmitPreservesOrder(t *testing.T) {
	b := NewBridge(8)
	b.Emit(Event{Type: TypeStage0Start})
	b.Emit(Event{Type: TypeStage0Complete})
	b.Emit(Event{Type: TypeComplete})

	sub := b.Subscribe()
	var got []Type
	for ev := range sub {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []Type{TypeStage0Start, TypeStage0Complete, TypeComplete}, got)
}

func TestTerminalClosesStream(t *testing.T) {
	b := NewBridge(4)
	b.Emit(Event{Type: TypeComplete})

	sub := b.Subscribe()
	ev, ok := <-sub
	require.True(t, ok)
	assert.Equal(t, TypeComplete, ev.Type)

	_, ok = <-sub
	assert.False(t, ok, "channel must be closed after the terminal event")
}

func TestEmitAfterTerminalIsIgnored(t *testing.T) {
	b := NewBridge(4)
	b.Emit(Event{Type: TypeError, Message: "boom"})
	b.Emit(Event{Type: TypeComplete}) // must not panic or send

	sub := b.Subscribe()
	ev := <-sub
	assert.Equal(t, TypeError, ev.Type)
	assert.Equal(t, "boom", ev.Message)

	_, ok := <-sub
	assert.False(t, ok)
}

func TestSlowSubscriberDropsProgressNotTerminal(t *testing.T) {
	b := NewBridge(2)
	// Nobody is reading; fill the buffer and keep emitting.
	b.Emit(Event{Type: TypeBrainstormStart})
	b.Emit(Event{Type: TypeBrainstormComplete})
	b.Emit(Event{Type: TypeContributionsStart}) // dropped, buffer full
	b.Emit(Event{Type: TypeComplete})           // evicts oldest, always delivered

	var got []Type
	for ev := range b.Subscribe() {
		got = append(got, ev.Type)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, TypeComplete, got[len(got)-1], "terminal event must always arrive")
	assert.NotContains(t, got, TypeContributionsStart)
}

func TestEmitNeverBlocksProducer(t *testing.T) {
	b := NewBridge(1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Emit(Event{Type: TypeExpertStart})
		}
		b.Emit(Event{Type: TypeComplete})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked on a full bridge")
	}
}

func TestCloseWithoutTerminal(t *testing.T) {
	b := NewBridge(4)
	b.Emit(Event{Type: TypeDraftStart})
	b.Close()
	b.Close() // idempotent

	var got []Type
	for ev := range b.Subscribe() {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []Type{TypeDraftStart}, got)
}
