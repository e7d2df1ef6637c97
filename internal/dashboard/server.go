// Package dashboard serves a local WebSocket feed of sync activity so a
// browser page (or wscat) can watch push/pull cycles live.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	stdsync "sync"
	"time"

	"github.com/coder/websocket"

	"github.com/daybook-app/daybook/internal/sync"
)

// MessageType tags a dashboard broadcast.
type MessageType string

const (
	// MessageTypeSyncStatus reports the orchestrator entering a phase.
	MessageTypeSyncStatus MessageType = "sync_status"

	// MessageTypeCycleDone carries the result of a finished cycle.
	MessageTypeCycleDone MessageType = "cycle_done"

	// MessageTypeHello greets a newly connected client.
	MessageTypeHello MessageType = "hello"
)

// Message is one broadcast frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CycleData is the wire shape of a finished cycle.
type CycleData struct {
	Skipped      string `json:"skipped,omitempty"`
	Pushed       int    `json:"pushed"`
	DeadLettered int    `json:"deadLettered"`
	PulledTasks  int    `json:"pulledTasks"`
	PulledNotes  int    `json:"pulledNotes"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"durationMs"`
}

// Server manages WebSocket clients and broadcasts sync events.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu stdsync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Port to bind on 127.0.0.1. Zero picks an ephemeral port.
	Port   int
	Logger *log.Logger
}

// NewServer creates a dashboard server. It does not listen until Start.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}
}

// Attach subscribes the server to an orchestrator's events.
func (s *Server) Attach(orc *sync.Orchestrator) {
	orc.Subscribe(func(ev sync.Event) {
		s.BroadcastEvent(ev)
	})
}

// BroadcastEvent translates an orchestrator event to a frame.
func (s *Server) BroadcastEvent(ev sync.Event) {
	if ev.Result == nil {
		data, _ := json.Marshal(map[string]string{"status": string(ev.Status)})
		s.Broadcast(Message{Type: MessageTypeSyncStatus, Timestamp: ev.At, Data: data})
		return
	}
	res := ev.Result
	cycle := CycleData{
		Skipped:      res.Skipped,
		Pushed:       res.Pushed,
		DeadLettered: res.DeadLettered,
		PulledTasks:  res.PulledTasks,
		PulledNotes:  res.PulledNotes,
		DurationMS:   res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}
	if res.Err != nil {
		cycle.Error = res.Err.Error()
	}
	data, _ := json.Marshal(cycle)
	s.Broadcast(Message{Type: MessageTypeCycleDone, Timestamp: ev.At, Data: data})
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Start begins listening and broadcasting.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("dashboard listening on ws://%s/ws", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("dashboard server error: %v", err)
		}
	}()
	return nil
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	s.wg.Wait()
	return nil
}

// Broadcast queues msg for every connected client. Frames are dropped,
// not blocked on, when the channel is full.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Printf("broadcast channel full, dropping %s frame", msg.Type)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("failed to marshal frame: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("client connected (total: %d)", count)

	hello, _ := json.Marshal(Message{Type: MessageTypeHello, Timestamp: time.Now()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, hello)
	cancel()

	go s.readLoop(conn)
}

// readLoop drains client frames to notice disconnects; inbound content
// is ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.clientCount(),
	})
}

func (s *Server) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
