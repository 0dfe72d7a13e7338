package wshub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// echoServer upgrades every request and echoes frames back through Send.
func echoServer(t *testing.T, perSecond float64, burst int, limited *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()

		send := make(chan []byte, 16)
		c := NewClient("conn-1", conn, send, perSecond, burst)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go c.WritePump(ctx)

		_ = c.ReadPump(ctx, func(msg []byte) {
			send <- append([]byte("echo:"), msg...)
		}, func() {
			limited.Add(1)
		})
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestPumpsRoundTrip(t *testing.T) {
	var limited atomic.Int32
	srv := echoServer(t, 100, 100, &limited)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"list-public-rooms"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, want := string(data), `echo:{"type":"list-public-rooms"}`; got != want {
		t.Errorf("echo = %q, want %q", got, want)
	}
}

func TestReadPumpRateLimits(t *testing.T) {
	var limited atomic.Int32
	srv := echoServer(t, 0.001, 2, &limited)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		if err := conn.Write(ctx, websocket.MessageText, []byte("x")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, _, err := conn.Read(ctx); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for limited.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := limited.Load(); got != 3 {
		t.Errorf("limited = %d, want 3", got)
	}
}

func TestWritePumpStopsOnClosedSend(t *testing.T) {
	send := make(chan []byte)
	c := &Client{ConnID: "conn-1", Send: send}
	done := make(chan struct{})
	go func() {
		c.WritePump(context.Background())
		close(done)
	}()
	close(send)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WritePump did not return after Send was closed")
	}
}
