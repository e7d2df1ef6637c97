package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/daybook-app/daybook/internal/sync"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	time.Sleep(50 * time.Millisecond)
	return srv
}

func TestServer_StartStop(t *testing.T) {
	srv := startTestServer(t)
	if srv.Addr() == "" {
		t.Fatal("server address is empty")
	}
}

func TestServer_BroadcastReachesClient(t *testing.T) {
	srv := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the hello.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read hello: %v", err)
	}
	var hello Message
	if err := json.Unmarshal(data, &hello); err != nil || hello.Type != MessageTypeHello {
		t.Fatalf("hello frame = %s (err %v)", data, err)
	}

	// A finished cycle shows up as a cycle_done frame.
	started := time.Now()
	srv.BroadcastEvent(sync.Event{
		Status: sync.StatusIdle,
		At:     started,
		Result: &sync.Result{
			StartedAt:   started,
			FinishedAt:  started.Add(200 * time.Millisecond),
			Pushed:      3,
			PulledTasks: 2,
		},
	})

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("broadcast frame does not parse: %v", err)
	}
	if msg.Type != MessageTypeCycleDone {
		t.Fatalf("frame type = %s, want cycle_done", msg.Type)
	}
	var cycle CycleData
	if err := json.Unmarshal(msg.Data, &cycle); err != nil {
		t.Fatalf("cycle data does not parse: %v", err)
	}
	if cycle.Pushed != 3 || cycle.PulledTasks != 2 || cycle.DurationMS != 200 {
		t.Errorf("cycle data = %+v", cycle)
	}
}

func TestServer_ClientCountTracksDisconnects(t *testing.T) {
	srv := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := srv.clientCount(); got != 1 {
		t.Errorf("client count = %d, want 1", got)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline := time.Now().Add(2 * time.Second)
	for srv.clientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := srv.clientCount(); got != 0 {
		t.Errorf("client count after disconnect = %d, want 0", got)
	}
}
