package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{Type: TypeLogin, UserID: 42, Success: true})

	select {
	case got := <-sink.Events():
		if got.Type != TypeLogin || got.UserID != 42 {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	// Nil receivers are valid no-ops.
	d.Emit(context.Background(), Event{Type: TypeLogout})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected 0 dropped on nil dispatcher")
	}
}

// blockingSink stalls until released so the dispatcher buffer fills up.
type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Emit(_ context.Context, _ Event) {
	<-s.release
}

func (s *blockingSink) unblock() {
	s.once.Do(func() { close(s.release) })
}

func TestDropIfFullCountsDiscards(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event is consumed into the blocked sink, second fills the
	// buffer; everything after is discarded.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: TypeLoginFailed})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	sink.unblock()
	d.Close()
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{Type: TypeTokenRevoked})
	}
	d.Close()

	delivered := 0
	for {
		select {
		case <-sink.Events():
			delivered++
		default:
			if delivered != 5 {
				t.Fatalf("expected 5 delivered after close, got %d", delivered)
			}
			return
		}
	}
}

func TestEmitAfterCloseNoOp(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{Type: TypeLogin})

	select {
	case <-sink.Events():
		t.Fatal("expected no delivery after close")
	case <-time.After(50 * time.Millisecond):
	}
}
