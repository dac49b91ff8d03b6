package pushchan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// The server pushes one text and one binary frame; both must reach the
// callback as normalized Frames.
func TestFrameNormalization(t *testing.T) {
	payload := []byte(`{"kind":"game_update","data":{"id":"bob"}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			t.Errorf("write text: %v", err)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
			t.Errorf("write binary: %v", err)
		}
		// Hold the connection open until the client closes.
		_, _, _ = conn.Read(ctx)
	}))
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	ws := NewWebSocket(wsURL, 0, time.Millisecond)

	var mu sync.Mutex
	var frames []Frame
	got := make(chan struct{}, 2)
	ws.OnFrame(func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
		got <- struct{}{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	if err := ws.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Binary || !frames[1].Binary {
		t.Fatalf("frame shapes not preserved: %v %v", frames[0].Binary, frames[1].Binary)
	}
	for i, f := range frames {
		if string(f.Data) != string(payload) {
			t.Fatalf("frame %d payload mismatch: %s", i, f.Data)
		}
	}
}

func TestConnectFailureSetsFailedState(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1", 0, time.Millisecond)

	var mu sync.Mutex
	var seen []State
	ws.OnStateChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err == nil {
		t.Fatalf("expected connect error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != StateFailed {
		t.Fatalf("expected final state failed, got %v", seen)
	}
}
