package broadcast

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestBroadcaster() *Broadcaster {
	return NewBroadcaster(zerolog.Nop())
}

func TestNewBroadcaster(t *testing.T) {
	b := newTestBroadcaster()
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_RegisterUnregister(t *testing.T) {
	b := newTestBroadcaster()

	ch := b.Register("c1")
	if ch == nil {
		t.Fatal("Register() returned nil")
	}
	b.Join("R1", "c1")
	if len(b.rooms["R1"]) != 1 {
		t.Errorf("members = %d, want 1", len(b.rooms["R1"]))
	}

	b.Unregister("c1")

	if len(b.rooms["R1"]) != 0 {
		t.Errorf("members after unregister = %d, want 0", len(b.rooms["R1"]))
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unregister")
	}

	// Should not panic
	b.Unregister("c1")
}

func TestBroadcaster_ToRoom(t *testing.T) {
	b := newTestBroadcaster()

	ch1 := b.Register("c1")
	ch2 := b.Register("c2")
	ch3 := b.Register("c3")
	b.Join("R1", "c1")
	b.Join("R1", "c2")
	b.Join("R2", "c3")

	b.ToRoom("R1", []byte("hello"))

	for name, ch := range map[string]chan []byte{"c1": ch1, "c2": ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Errorf("%s got %q, want hello", name, msg)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("%s timed out", name)
		}
	}

	select {
	case msg := <-ch3:
		t.Fatalf("c3 is in another room but got %q", msg)
	default:
	}
}

func TestBroadcaster_ToConn(t *testing.T) {
	b := newTestBroadcaster()
	ch := b.Register("c1")

	b.ToConn("c1", []byte("direct"))
	b.ToConn("unknown", []byte("ignored"))

	if msg := <-ch; string(msg) != "direct" {
		t.Errorf("got %q, want direct", msg)
	}
}

func TestBroadcaster_LeaveAndDetach(t *testing.T) {
	b := newTestBroadcaster()
	ch1 := b.Register("c1")
	b.Register("c2")
	b.Join("R1", "c1")
	b.Join("R1", "c2")

	b.Leave("R1", "c2")
	if len(b.rooms["R1"]) != 1 {
		t.Errorf("members after leave = %d, want 1", len(b.rooms["R1"]))
	}

	b.DetachRoom("R1")
	b.ToRoom("R1", []byte("late"))

	select {
	case msg := <-ch1:
		t.Fatalf("detached connection got %q", msg)
	default:
	}
	if len(b.rooms["R1"]) != 0 {
		t.Error("room group should be gone after DetachRoom")
	}
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	b := newTestBroadcaster()

	b.Register("c1")
	b.Join("R1", "c1")

	for i := 0; i < sendBuffer; i++ {
		b.ToRoom("R1", []byte("fill"))
	}

	// This should not block even though channel is full
	done := make(chan bool)
	go func() {
		b.ToRoom("R1", []byte("overflow"))
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("ToRoom blocked on full channel")
	}
}

func TestBroadcaster_RegisterReplacesChannel(t *testing.T) {
	b := newTestBroadcaster()
	old := b.Register("c1")
	fresh := b.Register("c1")

	if _, ok := <-old; ok {
		t.Error("old channel should be closed when the connection ID is reused")
	}
	b.ToConn("c1", []byte("x"))
	if msg := <-fresh; string(msg) != "x" {
		t.Errorf("got %q, want x", msg)
	}
}
